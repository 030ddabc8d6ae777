package driving

import "context"

// KeywordService answers tag queries.
type KeywordService interface {
	// Search returns URIs tagged with keyword.
	Search(ctx context.Context, keyword string) ([]string, error)

	// KeywordsFor returns the tags of an asset, empty if it has none.
	KeywordsFor(ctx context.Context, uri string) ([]string, error)
}
