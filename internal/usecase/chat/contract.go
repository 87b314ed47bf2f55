package chat

import (
	"context"

	"github.com/kailas-cloud/prodrag/internal/usecase/search"
)

// Searcher retrieves grounding documents for a message.
type Searcher interface {
	Search(ctx context.Context, query string) (search.Response, error)
}
