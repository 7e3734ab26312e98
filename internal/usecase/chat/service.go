package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labchat/internal/domain"
	"github.com/kailas-cloud/labchat/internal/domain/candidate"
	"github.com/kailas-cloud/labchat/internal/domain/prompt"
	"github.com/kailas-cloud/labchat/internal/logger"
	"github.com/kailas-cloud/labchat/internal/metrics"
)

// DefaultFallbackReply is returned when no stored answer is relevant enough.
const DefaultFallbackReply = "I'm sorry, I couldn't find a relevant answer. Please try rephrasing your question."

// contextPreviewLen bounds the context excerpt written to the activity log.
const contextPreviewLen = 500

// Options configures prompt assembly and debug output.
type Options struct {
	SystemPrompt     string
	FallbackReply    string
	MaxContextTokens int
	Debug            bool
}

// DebugInfo exposes the intermediate pipeline state of one turn.
type DebugInfo struct {
	Query             string                `json:"query"`
	QueryEmbedding    []float32             `json:"queryEmbedding"`
	RelevantDocuments []candidate.Candidate `json:"relevantDocuments"`
	Context           string                `json:"context"`
	Messages          []prompt.Message      `json:"messages"`
}

// Result is the outcome of one chat turn. Debug is nil unless debug output is enabled.
type Result struct {
	Reply string
	Debug *DebugInfo
}

// Service answers a question from the stored Q/A pairs.
type Service struct {
	embed    Embedder
	retrieve Retriever
	complete Completer
	audit    Auditor
	opts     Options
	logger   *zap.Logger
}

// New creates a chat service. Zero-valued options fall back to package defaults.
func New(embed Embedder, retrieve Retriever, complete Completer, audit Auditor, opts Options, logger *zap.Logger) *Service {
	if opts.FallbackReply == "" {
		opts.FallbackReply = DefaultFallbackReply
	}
	if opts.MaxContextTokens <= 0 {
		opts.MaxContextTokens = DefaultMaxContextTokens
	}
	return &Service{
		embed:    embed,
		retrieve: retrieve,
		complete: complete,
		audit:    audit,
		opts:     opts,
		logger:   logger,
	}
}

// Chat runs one turn: embed, retrieve, summarize, prompt, complete.
// With no relevant candidates it returns the fallback reply without calling the model.
func (s *Service) Chat(ctx context.Context, query string) (Result, error) {
	res, outcome, err := s.chat(ctx, query)
	if err != nil {
		outcome = metrics.OutcomeError
		_ = s.audit.Append("Error processing chat: " + err.Error())
	}
	metrics.ChatRequestsTotal.WithLabelValues(outcome).Inc()
	return res, err
}

func (s *Service) chat(ctx context.Context, query string) (Result, string, error) {
	// The query is forwarded verbatim; only blank input is rejected.
	if strings.TrimSpace(query) == "" {
		return Result{}, "", fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	log := logger.FromContext(ctx, s.logger)

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return Result{}, "", fmt.Errorf("embed query: %w", err)
	}

	docs, err := s.retrieve.Retrieve(ctx, emb.Embedding)
	if err != nil {
		return Result{}, "", fmt.Errorf("retrieve documents: %w", err)
	}

	if len(docs) == 0 {
		log.Info("No relevant documents, returning fallback reply")
		return Result{Reply: s.opts.FallbackReply}, metrics.OutcomeFallback, nil
	}

	var debug *DebugInfo
	if s.opts.Debug {
		debug = &DebugInfo{
			Query:             query,
			QueryEmbedding:    emb.Embedding,
			RelevantDocuments: docs,
		}
	}

	contextText := Summarize(docs, s.opts.MaxContextTokens)
	_ = s.audit.Append("Context for chat completion: " + preview(contextText, contextPreviewLen) + "...")

	messages := prompt.BuildMessages(query, contextText, s.opts.SystemPrompt)
	if debug != nil {
		debug.Context = contextText
		debug.Messages = messages
	}

	reply, err := s.complete.Complete(ctx, messages)
	if err != nil {
		return Result{}, "", fmt.Errorf("complete chat: %w", err)
	}

	log.Debug("Chat turn answered",
		zap.Int("documents", len(docs)),
		zap.Int("context_len", len(contextText)),
	)

	return Result{Reply: reply, Debug: debug}, metrics.OutcomeAnswered, nil
}

// preview returns at most n runes of s.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
