package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
	"github.com/custodia-labs/pixdex/internal/core/ports/driving"
)

// Ensure KeywordService implements the interface.
var _ driving.KeywordService = (*KeywordService)(nil)

// KeywordService answers tag lookups over extracted keywords.
type KeywordService struct {
	store driven.KeywordStore
}

// NewKeywordService creates a keyword service.
func NewKeywordService(store driven.KeywordStore) *KeywordService {
	return &KeywordService{store: store}
}

// Search returns the URIs tagged with keyword. Matching is exact on the
// normalised tag, so "Beach " finds assets tagged "beach".
func (s *KeywordService) Search(ctx context.Context, keyword string) ([]string, error) {
	if len(domain.NormaliseKeywords([]string{keyword})) == 0 {
		return nil, fmt.Errorf("%w: empty keyword", domain.ErrInvalidInput)
	}
	uris, err := s.store.SearchKeyword(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("search keyword: %w", err)
	}
	return uris, nil
}

// KeywordsFor returns the tags of uri, empty when it has no record.
func (s *KeywordService) KeywordsFor(ctx context.Context, uri string) ([]string, error) {
	keywords, err := s.store.Keywords(ctx, uri)
	if errors.Is(err, domain.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get keywords: %w", err)
	}
	return keywords, nil
}
