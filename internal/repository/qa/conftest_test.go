package qa

import (
	"context"
	"testing"

	"github.com/kailas-cloud/labchat/internal/db"
	"github.com/kailas-cloud/labchat/internal/domain"
	domqa "github.com/kailas-cloud/labchat/internal/domain/qa"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, domain.Keyspace{Database: "labs", Collection: "faq"}, 2), ms
}

func defaultTargets() []domain.SearchTarget {
	return []domain.SearchTarget{
		{Field: domqa.FieldQuestionEmbedding, Index: "question_index", Candidates: 10, Limit: 10},
		{Field: domqa.FieldAnswerEmbedding, Index: "answer_index", Candidates: 10, Limit: 10},
	}
}

func mustDocument(t *testing.T, q, a string) domqa.Document {
	t.Helper()
	d, err := domqa.NewDocument(domqa.Pair{Question: q, Answer: a}, []float32{0.1, 0.2}, []float32{0.3, 0.4})
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return d
}
