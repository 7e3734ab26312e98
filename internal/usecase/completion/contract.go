package completion

import (
	"context"

	"github.com/kailas-cloud/labchat/internal/domain/prompt"
)

// Completer produces a reply for a prompt.
type Completer interface {
	Complete(ctx context.Context, messages []prompt.Message) (string, error)
}

// Auditor appends entries to the activity log. Failures are reported but never fatal.
type Auditor interface {
	Append(message string) error
}
