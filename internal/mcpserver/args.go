package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	toon "github.com/toon-format/toon-go"
)

// Error messages shared by the tools.
const (
	errNoCppFiles      = "No C++ files found at specified path(s)"
	errNoFilesMatched  = "No files found matching the specified paths"
	errNoFilesResolved = "Failed to resolve any files from filepath"
	errFilepathType    = "filepath must be a string or array of strings"
)

// args are the decoded arguments of one tool call. Numbers arrive as
// float64, as decoded by encoding/json.
type args map[string]any

func decodeArgs(raw json.RawMessage) (args, error) {
	a := args{}
	if len(raw) == 0 || string(raw) == "null" {
		return a, nil
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return a, nil
}

func (a args) has(key string) bool {
	_, ok := a[key]
	return ok
}

func (a args) boolean(key string, def bool) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return def
}

func (a args) integer(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func (a args) str(key, def string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return def
}

// strs reads a string array. A single string is accepted as a one-element
// list; other element types are skipped.
func (a args) strs(key string, def []string) []string {
	switch v := a[key].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return def
}

// filepaths reads the filepath argument, which is a string or an array of
// strings. ok is false when the argument has another type.
func (a args) filepaths() (paths []string, ok bool) {
	switch v := a["filepath"].(type) {
	case string:
		return []string{v}, true
	case []any:
		for _, item := range v {
			s, isString := item.(string)
			if !isString {
				return nil, false
			}
			paths = append(paths, s)
		}
		return paths, true
	}
	return nil, false
}

func failure(msg string) map[string]any {
	return map[string]any{
		"error":   msg,
		"success": false,
	}
}

func missing(param string) map[string]any {
	return failure("Missing required parameter: " + param)
}

// rawHandler adapts a tool function to the SDK. The payload is rendered as
// indented JSON, or TOON when the call asks for format "toon", and the
// result is flagged as an error when the payload carries a top-level
// "error" field.
func (s *Server) rawHandler(name string, fn func(s *Server, ctx context.Context, a args) any) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}
		a, err := decodeArgs(raw)
		if err != nil {
			return render(failure(fmt.Sprintf("Invalid arguments: %v", err)), "json")
		}

		s.logger.Debug("tool call", "tool", name, "args", len(a))
		return render(fn(s, ctx, a), a.str("format", "json"))
	}
}

func render(payload any, format string) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}

	isError := false
	if m, ok := generic.(map[string]any); ok {
		_, isError = m["error"]
	}

	var text []byte
	if format == "toon" {
		text, err = toon.Marshal(generic, toon.WithIndent(2))
	} else {
		text, err = json.MarshalIndent(generic, "", "  ")
	}
	if err != nil {
		return nil, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(text)},
		},
		IsError: isError,
	}, nil
}
