package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// defaultLimit caps tool results when the caller gives no limit.
const defaultLimit = 20

// SimilarInput is the input schema for the similar_images tool.
type SimilarInput struct {
	URI   string `json:"uri" jsonschema:"the asset URI to find similar images for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 20)"`
}

// SimilarOutput is the output schema for the similar_images tool.
type SimilarOutput struct {
	Results []domain.SimilarAsset `json:"results"`
	Count   int                   `json:"count"`
}

// KeywordInput is the input schema for the search_keyword tool.
type KeywordInput struct {
	Keyword string `json:"keyword" jsonschema:"the tag to search for, case-insensitive"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 20)"`
}

// URIsOutput lists matching asset URIs.
type URIsOutput struct {
	URIs  []string `json:"uris"`
	Count int      `json:"count"`
}

// AssetInput identifies one asset.
type AssetInput struct {
	URI string `json:"uri" jsonschema:"the asset URI"`
}

// KeywordsOutput is the output schema for the asset_keywords tool.
type KeywordsOutput struct {
	URI      string   `json:"uri"`
	Keywords []string `json:"keywords"`
}

// SyncStatusInput takes no arguments.
type SyncStatusInput struct{}

// SyncStatusOutput is the output schema for the sync_status tool.
type SyncStatusOutput struct {
	PassID    string  `json:"pass_id,omitempty"`
	Phase     string  `json:"phase"`
	Progress  float64 `json:"progress"`
	Complete  bool    `json:"complete"`
	Total     int     `json:"total"`
	Extracted int     `json:"extracted"`
	Skipped   int     `json:"skipped"`
	Failed    int     `json:"failed"`
	Removed   int     `json:"removed"`
	Error     string  `json:"error,omitempty"`
}

// errEmptyURI is returned when a tool is invoked without a URI.
var errEmptyURI = errors.New("uri is required")

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "similar_images",
		Description: "Find photos visually similar to the given photo, with cosine scores",
	}, s.handleSimilar)

	if s.ports.Keyword != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "search_keyword",
			Description: "Find photos tagged with a keyword",
		}, s.handleSearchKeyword)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "asset_keywords",
			Description: "List the tags of one photo",
		}, s.handleAssetKeywords)
	}

	if s.ports.Sync != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "sync_status",
			Description: "Report progress of the current or last library sync",
		}, s.handleSyncStatus)
	}
}

func (s *Server) handleSimilar(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SimilarInput,
) (*mcp.CallToolResult, SimilarOutput, error) {
	if input.URI == "" {
		return nil, SimilarOutput{}, errEmptyURI
	}

	results, err := s.ports.Similarity.Similar(ctx, input.URI)
	if err != nil {
		return nil, SimilarOutput{}, err
	}
	results = truncate(results, input.Limit)
	if results == nil {
		results = []domain.SimilarAsset{}
	}

	return nil, SimilarOutput{Results: results, Count: len(results)}, nil
}

func (s *Server) handleSearchKeyword(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input KeywordInput,
) (*mcp.CallToolResult, URIsOutput, error) {
	uris, err := s.ports.Keyword.Search(ctx, input.Keyword)
	if err != nil {
		return nil, URIsOutput{}, err
	}
	uris = truncate(uris, input.Limit)
	if uris == nil {
		uris = []string{}
	}

	return nil, URIsOutput{URIs: uris, Count: len(uris)}, nil
}

func (s *Server) handleAssetKeywords(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssetInput,
) (*mcp.CallToolResult, KeywordsOutput, error) {
	if input.URI == "" {
		return nil, KeywordsOutput{}, errEmptyURI
	}

	keywords, err := s.ports.Keyword.KeywordsFor(ctx, input.URI)
	if err != nil {
		return nil, KeywordsOutput{}, err
	}

	return nil, KeywordsOutput{URI: input.URI, Keywords: keywords}, nil
}

func (s *Server) handleSyncStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ SyncStatusInput,
) (*mcp.CallToolResult, SyncStatusOutput, error) {
	return nil, syncStatusOutput(s.ports.Sync.Status()), nil
}

func syncStatusOutput(state domain.SyncState) SyncStatusOutput {
	out := SyncStatusOutput{
		PassID:    state.PassID,
		Phase:     string(state.Phase),
		Progress:  state.Progress,
		Complete:  state.Complete,
		Total:     state.Total,
		Extracted: state.Extracted,
		Skipped:   state.Skipped,
		Failed:    state.Failed,
		Removed:   state.Removed,
	}
	if out.Phase == "" {
		out.Phase = string(domain.SyncIdle)
	}
	if state.Err != nil {
		out.Error = state.Err.Error()
	}
	return out
}

func truncate[T any](items []T, limit int) []T {
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
