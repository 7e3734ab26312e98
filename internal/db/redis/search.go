package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/labchat/internal/db"
)

// scoreAlias names the KNN distance attribute in FT.SEARCH replies.
const scoreAlias = "__score"

// SearchKNN runs a KNN vector similarity search on a single vector field via FT.SEARCH.
// Entries come back ordered nearest first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Field == "" {
		return nil, fmt.Errorf("vector field is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	args := buildKNNArgs(q)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := parseKNNResult(raw)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return res, nil
}

func buildKNNArgs(q *db.KNNQuery) []string {
	knn := fmt.Sprintf("*=>[KNN %d @%s $BLOB", q.K, q.Field)
	if q.EFRuntime > 0 {
		knn += fmt.Sprintf(" EF_RUNTIME %d", q.EFRuntime)
	}
	knn += " AS " + scoreAlias + "]"

	args := []string{q.IndexName, knn}

	if len(q.ReturnFields) > 0 {
		fields := q.ReturnFields
		if !slices.Contains(fields, scoreAlias) {
			fields = append(slices.Clone(fields), scoreAlias)
		}
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	args = append(args,
		"SORTBY", scoreAlias, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)
	return args
}

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, fmt.Errorf("parse key at %d: %w", i, err)
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			return nil, fmt.Errorf("parse fields of %s: %w", key, err)
		}
		m, err := parseFieldPairs(fields)
		if err != nil {
			return nil, fmt.Errorf("parse fields of %s: %w", key, err)
		}

		distStr, ok := m[scoreAlias]
		if !ok {
			return nil, fmt.Errorf("%s: missing %s", key, scoreAlias)
		}
		d, err := strconv.ParseFloat(distStr, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: parse %s: %w", key, scoreAlias, err)
		}
		delete(m, scoreAlias)

		entries = append(entries, db.SearchEntry{Key: key, Fields: m, Distance: d})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) (map[string]string, error) {
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("odd field count %d", len(fields))
	}
	m := make(map[string]string, len(fields)/2)
	for j := 0; j < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			return nil, fmt.Errorf("field name: %w", err)
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		m[name] = value
	}
	return m, nil
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
