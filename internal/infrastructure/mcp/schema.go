package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/critique/pkg/ai"
	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

// SchemaVersion is the current MCP tool schema version (semver).
const SchemaVersion = "1.0.0"

const schemaURI = "critique://schema"

type schemaResponse struct {
	SchemaVersion string          `json:"schema_version"`
	ServerVersion string          `json:"server_version"`
	Tones         []critique.Tone `json:"tones"`
	ThemeColors   []string        `json:"theme_colors"`
	Providers     []string        `json:"providers"`
}

func buildSchema() schemaResponse {
	colors := make([]string, 0, len(critique.AllThemeColors()))
	for _, c := range critique.AllThemeColors() {
		colors = append(colors, string(c))
	}
	return schemaResponse{
		SchemaVersion: SchemaVersion,
		ServerVersion: Version,
		Tones:         critique.AllTones(),
		ThemeColors:   colors,
		Providers:     ai.SupportedProviders(),
	}
}

func (s *Server) registerSchemaResource() {
	s.mcpServer.Resource(schemaURI).
		Name(schemaURI).
		Description("Tool schema version, tones, theme colors and providers").
		MimeType("application/json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			data, err := json.Marshal(buildSchema())
			if err != nil {
				return nil, err
			}
			return &mcplib.ResourceContent{
				URI:      schemaURI,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}
