package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/labchat/internal/domain"
	domqa "github.com/kailas-cloud/labchat/internal/domain/qa"
)

// DefaultConcurrency bounds in-flight embedding calls.
const DefaultConcurrency = 4

// Report summarizes one ingest run.
type Report struct {
	Pairs          int
	Stored         int
	Duplicates     int
	CreatedIndexes []string
}

// Service embeds Q/A pairs and stores them for retrieval.
type Service struct {
	embed       Embedder
	repo        Repository
	targets     []domain.SearchTarget
	concurrency int
	logger      *zap.Logger
}

// New creates an ingest service. targets are the vector indexes kept in sync with the documents.
func New(embed Embedder, repo Repository, targets []domain.SearchTarget, logger *zap.Logger) *Service {
	return &Service{
		embed:       embed,
		repo:        repo,
		targets:     targets,
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
}

// WithConcurrency configures the number of parallel embedding calls.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// EnsureIndexes creates the vector indexes that do not exist yet.
func (s *Service) EnsureIndexes(ctx context.Context) ([]string, error) {
	created, err := s.repo.EnsureIndexes(ctx, s.targets)
	if err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return created, nil
}

// Ingest embeds every pair and upserts the resulting documents.
// Pairs repeated verbatim are stored once. Any failure aborts the run before writing.
func (s *Service) Ingest(ctx context.Context, pairs []domqa.Pair) (Report, error) {
	report := Report{Pairs: len(pairs)}

	unique := dedupe(pairs)
	report.Duplicates = len(pairs) - len(unique)
	if len(unique) == 0 {
		return report, fmt.Errorf("%w: no question/answer pairs", domain.ErrInvalidInput)
	}

	created, err := s.EnsureIndexes(ctx)
	if err != nil {
		return report, err
	}
	report.CreatedIndexes = created

	docs := make([]domqa.Document, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range unique {
		g.Go(func() error {
			doc, err := s.embedPair(gctx, p)
			if err != nil {
				return fmt.Errorf("pair %d (%q): %w", i, p.Question, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	if err := s.repo.Upsert(ctx, docs); err != nil {
		return report, fmt.Errorf("upsert documents: %w", err)
	}
	report.Stored = len(docs)

	s.logger.Info("Ingest finished",
		zap.Int("pairs", report.Pairs),
		zap.Int("stored", report.Stored),
		zap.Int("duplicates", report.Duplicates),
		zap.Strings("created_indexes", report.CreatedIndexes),
	)
	return report, nil
}

func (s *Service) embedPair(ctx context.Context, p domqa.Pair) (domqa.Document, error) {
	q, err := s.embed.Embed(ctx, p.Question)
	if err != nil {
		return domqa.Document{}, fmt.Errorf("embed question: %w", err)
	}
	a, err := s.embed.Embed(ctx, p.Answer)
	if err != nil {
		return domqa.Document{}, fmt.Errorf("embed answer: %w", err)
	}
	doc, err := domqa.NewDocument(p, q.Embedding, a.Embedding)
	if err != nil {
		return domqa.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return doc, nil
}

func dedupe(pairs []domqa.Pair) []domqa.Pair {
	seen := make(map[string]struct{}, len(pairs))
	out := make([]domqa.Pair, 0, len(pairs))
	for _, p := range pairs {
		id := p.ID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, p)
	}
	return out
}
