package ingest

import (
	"context"

	"github.com/kailas-cloud/labchat/internal/domain"
	domqa "github.com/kailas-cloud/labchat/internal/domain/qa"
)

// Embedder vectorizes question and answer text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Repository stores documents and owns their vector indexes.
type Repository interface {
	EnsureIndexes(ctx context.Context, targets []domain.SearchTarget) ([]string, error)
	Upsert(ctx context.Context, docs []domqa.Document) error
}
