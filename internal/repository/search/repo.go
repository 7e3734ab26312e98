package search

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/labchat/internal/db"
	"github.com/kailas-cloud/labchat/internal/domain"
	"github.com/kailas-cloud/labchat/internal/domain/candidate"
	"github.com/kailas-cloud/labchat/internal/domain/qa"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo runs similarity searches over the Q/A collection.
type Repo struct {
	store   store
	keys    domain.Keyspace
	timeout time.Duration
}

// New creates a search repository. A zero timeout leaves the caller's deadline alone.
func New(s store, keys domain.Keyspace, timeout time.Duration) *Repo {
	return &Repo{store: s, keys: keys, timeout: timeout}
}

// Search returns up to target.Limit candidates nearest to vector, best first.
func (r *Repo) Search(ctx context.Context, vector []float32, target domain.SearchTarget) ([]candidate.Candidate, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if target.Field == "" || target.Index == "" || target.Limit <= 0 {
		return nil, fmt.Errorf("%w: incomplete search target %+v", domain.ErrInvalidInput, target)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	q := &db.KNNQuery{
		IndexName:    r.keys.IndexName(target.Index),
		Field:        target.Field,
		Vector:       vector,
		K:            target.Limit,
		EFRuntime:    max(target.Candidates, target.Limit),
		ReturnFields: []string{qa.FieldQuestion, qa.FieldAnswer},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %s on %s: %w", domain.ErrSearchService, target.Field, target.Index, err)
	}

	return toCandidates(sr), nil
}

// toCandidates keeps store order; the engine already sorts nearest first.
func toCandidates(sr *db.SearchResult) []candidate.Candidate {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	out := make([]candidate.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, candidate.Candidate{
			Question: e.Fields[qa.FieldQuestion],
			Answer:   e.Fields[qa.FieldAnswer],
			Score:    cosineScore(e.Distance),
		})
	}
	return out
}

// cosineScore maps cosine distance (0..2) onto a 0..1 similarity, higher is closer.
func cosineScore(distance float64) float64 {
	s := 1 - distance/2
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}
