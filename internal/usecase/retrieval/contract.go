package retrieval

import (
	"context"

	"github.com/kailas-cloud/labchat/internal/domain"
	"github.com/kailas-cloud/labchat/internal/domain/candidate"
)

// Searcher runs one similarity search against one target field.
type Searcher interface {
	Search(ctx context.Context, vector []float32, target domain.SearchTarget) ([]candidate.Candidate, error)
}

// Auditor appends entries to the activity log. Failures are reported but never fatal.
type Auditor interface {
	Append(message string) error
}
