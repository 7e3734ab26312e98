package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/labchat/internal/db"
	"github.com/kailas-cloud/labchat/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, domain.Keyspace{Database: "labs", Collection: "faq"}, 0)
	return repo, ms
}

func testVector() []float32 {
	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}

func questionTarget() domain.SearchTarget {
	return domain.SearchTarget{Field: "question_embedding", Index: "question_index", Candidates: 10, Limit: 10}
}
