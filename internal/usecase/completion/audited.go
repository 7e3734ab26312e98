package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labchat/internal/domain"
	"github.com/kailas-cloud/labchat/internal/domain/prompt"
)

// AuditedCompleter records every prompt and reply in the activity log
// and normalizes failures to domain.ErrCompletionService.
type AuditedCompleter struct {
	inner  Completer
	model  string
	audit  Auditor
	logger *zap.Logger
}

// NewAuditedCompleter wraps a completer with audit logging.
func NewAuditedCompleter(inner Completer, model string, audit Auditor, logger *zap.Logger) *AuditedCompleter {
	return &AuditedCompleter{
		inner:  inner,
		model:  model,
		audit:  audit,
		logger: logger,
	}
}

// Complete logs the full payload, delegates, and logs the generated text.
func (c *AuditedCompleter) Complete(ctx context.Context, messages []prompt.Message) (string, error) {
	if payload, err := json.Marshal(messages); err == nil {
		_ = c.audit.Append("Generating chat completion for messages: " + string(payload))
	}

	start := time.Now()

	reply, err := c.inner.Complete(ctx, messages)

	duration := time.Since(start)

	if err != nil {
		if !errors.Is(err, domain.ErrCompletionService) {
			err = fmt.Errorf("%w: %w", domain.ErrCompletionService, err)
		}
		c.logger.Error("Chat completion failed",
			zap.String("model", c.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		_ = c.audit.Append("Error generating chat completion: " + err.Error())
		return "", err
	}

	_ = c.audit.Append("Generated chat completion: " + reply)

	c.logger.Debug("Chat completion completed",
		zap.String("model", c.model),
		zap.Duration("duration", duration),
		zap.Int("messages", len(messages)),
		zap.Int("reply_len", len(reply)),
	)

	return reply, nil
}
