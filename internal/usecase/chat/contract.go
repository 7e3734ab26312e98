package chat

import (
	"context"

	"github.com/kailas-cloud/labchat/internal/domain"
	"github.com/kailas-cloud/labchat/internal/domain/candidate"
	"github.com/kailas-cloud/labchat/internal/domain/prompt"
)

// Embedder vectorizes the user query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Retriever finds candidates relevant to a query vector.
type Retriever interface {
	Retrieve(ctx context.Context, vector []float32) ([]candidate.Candidate, error)
}

// Completer produces the reply for an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, messages []prompt.Message) (string, error)
}

// Auditor appends entries to the activity log. Failures are reported but never fatal.
type Auditor interface {
	Append(message string) error
}
