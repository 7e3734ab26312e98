package qa

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/labchat/internal/db"
	"github.com/kailas-cloud/labchat/internal/domain"
	domqa "github.com/kailas-cloud/labchat/internal/domain/qa"
)

// writeBatchSize bounds the number of HSETs per pipeline.
const writeBatchSize = 100

// store is the consumer interface for Q/A documents (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo writes Q/A documents and manages their vector indexes.
type Repo struct {
	store     store
	keys      domain.Keyspace
	vectorDim int
	hnsw      HNSWConfig
}

// New creates a Q/A repository.
func New(s store, keys domain.Keyspace, vectorDim int) *Repo {
	return &Repo{store: s, keys: keys, vectorDim: vectorDim, hnsw: HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// EnsureIndexes creates one vector index per target if missing and
// returns the names of the indexes it created.
func (r *Repo) EnsureIndexes(ctx context.Context, targets []domain.SearchTarget) ([]string, error) {
	var created []string
	for _, t := range targets {
		def, err := r.buildIndex(t)
		if err != nil {
			return created, fmt.Errorf("build index %s: %w", t.Index, err)
		}

		exists, err := r.store.IndexExists(ctx, def.Name)
		if err != nil {
			return created, fmt.Errorf("check index %s: %w", def.Name, err)
		}
		if exists {
			continue
		}

		if err := r.store.CreateIndex(ctx, def); err != nil {
			// Lost a race with a concurrent ingest.
			if errors.Is(err, db.ErrIndexExists) {
				continue
			}
			return created, fmt.Errorf("create index %s: %w", def.Name, err)
		}
		created = append(created, def.Name)
	}
	return created, nil
}

// DropIndexes removes the vector indexes of the given targets. Documents stay.
func (r *Repo) DropIndexes(ctx context.Context, targets []domain.SearchTarget) error {
	for _, t := range targets {
		name := r.keys.IndexName(t.Index)
		if err := r.store.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
	}
	return nil
}

// Upsert stores documents as hashes, overwriting any previous version.
func (r *Repo) Upsert(ctx context.Context, docs []domqa.Document) error {
	for start := 0; start < len(docs); start += writeBatchSize {
		end := min(start+writeBatchSize, len(docs))

		items := make([]db.HashSetItem, 0, end-start)
		for _, d := range docs[start:end] {
			if r.vectorDim > 0 && len(d.QuestionEmbedding()) != r.vectorDim {
				return fmt.Errorf("document %s: %w: dimension %d, index expects %d",
					d.ID(), domain.ErrInvalidInput, len(d.QuestionEmbedding()), r.vectorDim)
			}
			items = append(items, db.HashSetItem{
				Key:    r.keys.DocKey(d.ID()),
				Fields: buildHashFields(d),
			})
		}

		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("write documents %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (r *Repo) buildIndex(t domain.SearchTarget) (*db.IndexDefinition, error) {
	return db.NewIndex(r.keys.IndexName(t.Index)).
		Prefix(r.keys.DocPrefix()).
		Text(domqa.FieldQuestion).
		Text(domqa.FieldAnswer).
		VectorHNSW(t.Field, r.vectorDim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		Build()
}
