package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/tsmcp/internal/scanner"
	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/panbanda/tsmcp/pkg/config"
)

// ServerName is the implementation name announced to clients.
const ServerName = "tree-sitter-mcp"

// Server wraps the MCP server and the analysis session its tools share.
type Server struct {
	server  *mcp.Server
	session *analyzer.Analyzer
	scanner *scanner.Scanner
	config  *config.Config
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSession shares an existing analysis session, typically one whose
// cache is also fed by a file watcher.
func WithSession(session *analyzer.Analyzer) Option {
	return func(s *Server) {
		s.session = session
	}
}

// WithConfig sets the configuration used for tool defaults.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithLogger sets the logger. It must not write to stdout, which carries
// the protocol.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server with all tools and prompts registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.DefaultConfig()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.session == nil {
		s.session = analyzer.New(
			analyzer.WithLogger(s.logger),
			analyzer.WithMaxCacheEntries(s.config.Cache.MaxEntries),
		)
	}
	s.scanner = scanner.NewScanner(s.config, s.logger)

	s.server = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version,
		},
		nil,
	)
	s.registerTools()
	s.registerPrompts()
	return s
}

// Session returns the analysis session shared by the tools.
func (s *Server) Session() *analyzer.Analyzer { return s.session }

// Run serves over stdio until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", "name", ServerName)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves one session over an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

type toolDef struct {
	name        string
	description string
	schema      func(s *Server) any
	handler     func(s *Server, ctx context.Context, a args) any
}

var tools = []toolDef{
	{"parse_file", describeParseFile(), (*Server).parseFileSchema, (*Server).handleParseFile},
	{"find_classes", describeFindClasses(), (*Server).findClassesSchema, (*Server).handleFindClasses},
	{"find_functions", describeFindFunctions(), (*Server).findFunctionsSchema, (*Server).handleFindFunctions},
	{"execute_query", describeExecuteQuery(), (*Server).executeQuerySchema, (*Server).handleExecuteQuery},
	{"get_class_hierarchy", describeClassHierarchy(), (*Server).classHierarchySchema, (*Server).handleClassHierarchy},
	{"get_dependency_graph", describeDependencyGraph(), (*Server).dependencyGraphSchema, (*Server).handleDependencyGraph},
	{"get_symbol_context", describeSymbolContext(), (*Server).symbolContextSchema, (*Server).handleSymbolContext},
	{"get_file_summary", describeFileSummary(), (*Server).fileSummarySchema, (*Server).handleFileSummary},
	{"extract_interface", describeExtractInterface(), (*Server).extractInterfaceSchema, (*Server).handleExtractInterface},
	{"find_references", describeFindReferences(), (*Server).findReferencesSchema, (*Server).handleFindReferences},
	{"cache_info", describeCacheInfo(), (*Server).cacheInfoSchema, (*Server).handleCacheInfo},
}

// registerTools adds every analysis tool to the server. Arguments are
// decoded by the handlers themselves so that malformed input produces the
// tool's own error object rather than a protocol error.
func (s *Server) registerTools() {
	for _, t := range tools {
		s.server.AddTool(&mcp.Tool{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.schema(s),
		}, s.rawHandler(t.name, t.handler))
	}
}

// ToolNames lists the registered tools in registration order.
func ToolNames() []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.name
	}
	return names
}
