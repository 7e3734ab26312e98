package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/labchat/internal/domain"
	"github.com/kailas-cloud/labchat/internal/domain/candidate"
	"github.com/kailas-cloud/labchat/internal/metrics"
)

// Options configures which fields are searched and how results are filtered.
type Options struct {
	Targets               []domain.SearchTarget
	Parallel              bool
	ScoreThresholdEnabled bool
	ScoreThreshold        float64
}

// Service finds the stored Q/A pairs most relevant to a query vector.
type Service struct {
	searcher Searcher
	opts     Options
	audit    Auditor
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(searcher Searcher, opts Options, audit Auditor, logger *zap.Logger) *Service {
	return &Service{searcher: searcher, opts: opts, audit: audit, logger: logger}
}

// Retrieve searches every target, merges the results in target order,
// and applies the score threshold when enabled. An empty result is not an error.
func (s *Service) Retrieve(ctx context.Context, vector []float32) ([]candidate.Candidate, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}

	var (
		sets [][]candidate.Candidate
		err  error
	)
	if s.opts.Parallel {
		sets, err = s.searchParallel(ctx, vector)
	} else {
		sets, err = s.searchSequential(ctx, vector)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrSearchService) && !errors.Is(err, domain.ErrInvalidInput) {
			err = fmt.Errorf("%w: %w", domain.ErrSearchService, err)
		}
		s.logger.Error("Similarity search failed", zap.Error(err))
		_ = s.audit.Append("Error finding documents: " + err.Error())
		return nil, err
	}

	results := Merge(sets...)
	if s.opts.ScoreThresholdEnabled {
		results = FilterByScore(results, s.opts.ScoreThreshold)
		_ = s.audit.Append(fmt.Sprintf("Found %d relevant documents after filtering with threshold %s",
			len(results), candidate.FormatScore(s.opts.ScoreThreshold)))
	} else {
		_ = s.audit.Append(fmt.Sprintf("Found %d relevant documents (score threshold disabled)", len(results)))
	}
	for _, c := range results {
		_ = s.audit.Append(fmt.Sprintf("Document: %s, Score: %s", c.Question, candidate.FormatScore(c.Score)))
	}

	metrics.RetrievedCandidates.Observe(float64(len(results)))

	return results, nil
}

func (s *Service) searchSequential(ctx context.Context, vector []float32) ([][]candidate.Candidate, error) {
	sets := make([][]candidate.Candidate, 0, len(s.opts.Targets))
	for _, t := range s.opts.Targets {
		res, err := s.searchOne(ctx, vector, t)
		if err != nil {
			return nil, err
		}
		sets = append(sets, res)
	}
	return sets, nil
}

// searchParallel fans out one search per target. Each goroutine owns one slot,
// so merge order stays the configured target order regardless of arrival order.
func (s *Service) searchParallel(ctx context.Context, vector []float32) ([][]candidate.Candidate, error) {
	sets := make([][]candidate.Candidate, len(s.opts.Targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range s.opts.Targets {
		g.Go(func() error {
			res, err := s.searchOne(gctx, vector, t)
			if err != nil {
				return err
			}
			sets[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // searchOne already wraps
	}
	return sets, nil
}

func (s *Service) searchOne(ctx context.Context, vector []float32, t domain.SearchTarget) ([]candidate.Candidate, error) {
	start := time.Now()

	res, err := s.searcher.Search(ctx, vector, t)

	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestDuration.WithLabelValues(t.Field, status).Observe(duration.Seconds())

	if err != nil {
		return nil, fmt.Errorf("search %s: %w", t.Field, err)
	}

	s.logger.Debug("Similarity search completed",
		zap.String("field", t.Field),
		zap.String("index", t.Index),
		zap.Int("results", len(res)),
		zap.Duration("duration", duration),
	)
	return res, nil
}
