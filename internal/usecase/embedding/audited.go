package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labchat/internal/domain"
)

// AuditedEmbedder validates input, records the exchange in the activity log,
// and normalizes failures to domain.ErrEmbeddingService.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type AuditedEmbedder struct {
	inner  domain.Embedder
	model  string
	audit  Auditor
	logger *zap.Logger
}

// NewAuditedEmbedder wraps an embedder with validation and audit logging.
func NewAuditedEmbedder(inner domain.Embedder, model string, audit Auditor, logger *zap.Logger) *AuditedEmbedder {
	return &AuditedEmbedder{
		inner:  inner,
		model:  model,
		audit:  audit,
		logger: logger,
	}
}

// Embed trims the text, rejects empty input, and delegates to the inner embedder.
func (p *AuditedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: text to embed is empty", domain.ErrInvalidInput)
	}

	_ = p.audit.Append("Sending data to AI: " + text)

	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err == nil && len(result.Embedding) == 0 {
		err = fmt.Errorf("%w: provider returned an empty vector", domain.ErrEmbeddingService)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingService) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingService, err)
		}
		p.logger.Error("Embedding request failed",
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		_ = p.audit.Append("Error generating embeddings: " + err.Error())
		return domain.EmbeddingResult{}, err
	}

	_ = p.audit.Append(fmt.Sprintf("Generated query embedding: %d dimensions", len(result.Embedding)))

	p.logger.Debug("Embedding request completed",
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}
