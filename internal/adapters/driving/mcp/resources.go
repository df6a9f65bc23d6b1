package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "tbqa://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "history",
		Name:        "history",
		Description: "Remembered conversation turns with their entities and intents, oldest first",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "drugs/{text}",
		Name:        "drug-search",
		Description: "Drug names matching any word of the given text",
		MIMEType:    "application/json",
	}, s.handleDrugsResource)
}

func (s *Server) handleHistoryResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, s.ports.QA.History())
}

func (s *Server) handleDrugsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	text := extractDrugText(req.Params.URI)
	if text == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	drugs, err := s.ports.QA.FindDrugs(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("finding drugs: %w", err)
	}
	if drugs == nil {
		drugs = []string{}
	}
	return jsonResource(req.Params.URI, drugs)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDrugText extracts the search text from tbqa://drugs/{text}.
func extractDrugText(uri string) string {
	const prefix = uriScheme + "drugs/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	text, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
