package mcpserver

import (
	"encoding/json"
	"strings"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	registryName   = "io.github.panbanda/tsmcp"
	repositoryURL  = "https://github.com/panbanda/tsmcp"
	imageName      = "ghcr.io/panbanda/tsmcp"
)

// Manifest is the registry server.json document.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package is one way of launching the server.
type Package struct {
	RegistryType         string        `json:"registryType"`
	Identifier           string        `json:"identifier"`
	PackageArguments     []Argument    `json:"packageArguments,omitempty"`
	EnvironmentVariables []EnvVariable `json:"environmentVariables,omitempty"`
	Transport            Transport     `json:"transport"`
}

// Argument is a command-line argument. Named arguments carry the flag in
// Name, positional ones carry Value.
type Argument struct {
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

// EnvVariable is an environment variable the server reads at startup.
type EnvVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
}

type Transport struct {
	Type string `json:"type"`
}

// manifestEnv lists the variables the CLI binds to global flags.
var manifestEnv = []EnvVariable{
	{Name: "TSMCP_CONFIG", Description: "Path to a TOML, YAML or JSON config file"},
	{Name: "TSMCP_LOG_LEVEL", Description: "Log level written to stderr", Default: "info"},
}

// GenerateManifest renders server.json for registry publication. The
// description names every registered tool.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" || version == "dev" {
		version = "0.0.0"
	}

	m := Manifest{
		Schema:      manifestSchema,
		Name:        registryName,
		Description: "Tree-sitter structural analysis of C++ and Python. Tools: " + strings.Join(ToolNames(), ", "),
		Version:     version,
		Repository:  &Repository{URL: repositoryURL, Source: "github"},
		Packages: []Package{{
			RegistryType: "oci",
			Identifier:   imageName + ":" + version,
			PackageArguments: []Argument{
				{Type: "positional", Value: "mcp"},
				{Type: "named", Name: "--watch", Description: "Evict cached parses when files change"},
			},
			EnvironmentVariables: manifestEnv,
			Transport:            Transport{Type: "stdio"},
		}},
	}
	return json.MarshalIndent(m, "", "  ")
}
