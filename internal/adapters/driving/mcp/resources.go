package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for pixdex resources.
	uriScheme = "pixdex://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "index/status",
		Name:        "index-status",
		Description: "Freshness of the similarity index",
		MIMEType:    "application/json",
	}, s.handleIndexStatusResource)

	if s.ports.Gallery != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "gallery/months",
			Name:        "gallery-months",
			Description: "Photo counts per month from the cached asset list",
			MIMEType:    "application/json",
		}, s.handleMonthsResource)
	}

	if s.ports.Keyword != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "keywords/{keyword}",
			Name:        "keyword-assets",
			Description: "Photos tagged with a keyword",
			MIMEType:    "application/json",
		}, s.handleKeywordResource)
	}
}

func (s *Server) handleIndexStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.Similarity.IndexStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading index status: %w", err)
	}

	info := struct {
		Generation      uint64 `json:"generation"`
		StoreGeneration uint64 `json:"store_generation"`
		Bits            int    `json:"bits"`
		Count           int    `json:"count"`
		Stale           bool   `json:"stale"`
	}{status.Generation, status.StoreGeneration, status.Bits, status.Count, status.Stale}

	return jsonResult(req.Params.URI, info)
}

func (s *Server) handleMonthsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	months, err := s.ports.Gallery.Months(ctx)
	if err != nil {
		return nil, fmt.Errorf("grouping gallery: %w", err)
	}

	type monthInfo struct {
		Label string `json:"label"`
		Count int    `json:"count"`
	}
	infos := make([]monthInfo, len(months))
	for i, m := range months {
		infos[i] = monthInfo{Label: m.Label(), Count: len(m.Assets)}
	}

	return jsonResult(req.Params.URI, infos)
}

func (s *Server) handleKeywordResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	keyword := extractKeyword(req.Params.URI)
	if keyword == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	uris, err := s.ports.Keyword.Search(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("searching keyword: %w", err)
	}
	if uris == nil {
		uris = []string{}
	}

	return jsonResult(req.Params.URI, uris)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractKeyword extracts the keyword from a URI like pixdex://keywords/{keyword}.
func extractKeyword(uri string) string {
	const prefix = uriScheme + "keywords/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	keyword, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil || strings.Contains(keyword, "/") {
		return ""
	}
	return keyword
}
