package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/labchat/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

// --- hash.go tests ---

func TestHSetMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(4)),
			mock.Result(mock.RedisInt64(4)),
		})

	s := NewStoreForTest(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"question": "q1"}},
		{Key: "k2", Fields: map[string]string{"question": "q2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSetMulti_PartialError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(4)),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	s := NewStoreForTest(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f": "v"}},
		{Key: "k2", Fields: map[string]string{"f": "v"}},
	})
	if err == nil || !strings.Contains(err.Error(), "k2") {
		t.Fatalf("expected error naming k2, got %v", err)
	}
}

func TestHSetMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.HSetMulti(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisString("value")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("expected value, got %q", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Set(context.Background(), "mykey", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && slices.Contains(cmd, "EX")
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), 3600e9); !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

// --- index.go tests ---

func TestCreateIndex_Args(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	def, err := db.NewIndex("labs:faq:question_index").
		Prefix("labs:faq:doc:").
		Text("question").
		VectorHNSW("question_embedding", 1536, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := s.CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(got, " ")
	for _, want := range []string{
		"FT.CREATE labs:faq:question_index ON HASH PREFIX 1 labs:faq:doc: SCHEMA",
		"question TEXT",
		"question_embedding VECTOR HNSW 10 TYPE FLOAT32 DIM 1536 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("command %q missing %q", joined, want)
		}
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "question", Type: db.IndexFieldText}},
	}
	err := s.CreateIndex(context.Background(), idx)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "test:idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	err := s.DropIndex(context.Background(), "test:idx")
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name  string
		reply rueidis.RedisResult
		want  bool
	}{
		{"exists", mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("test:idx"))), true},
		{"unknown", mock.Result(mock.RedisError("Unknown Index name")), false},
		{"no such index", mock.Result(mock.RedisError("test:idx: no such index")), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)
			c.EXPECT().
				Do(gomock.Any(), mock.Match("FT.INFO", "test:idx")).
				Return(tc.reply)

			s := NewStoreForTest(c)
			got, err := s.IndexExists(context.Background(), "test:idx")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("IndexExists() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBuildCreateArgs_Validation(t *testing.T) {
	_, err := buildCreateArgs(&db.IndexDefinition{Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldText}}})
	if err == nil {
		t.Error("expected error for empty name")
	}

	_, err = buildCreateArgs(&db.IndexDefinition{Name: "test"})
	if err == nil {
		t.Error("expected error for empty fields")
	}

	_, err = buildCreateArgs(&db.IndexDefinition{
		Name:   "test",
		Fields: []db.IndexField{{Name: "v", Type: db.IndexFieldVector}},
	})
	if err == nil {
		t.Error("expected error for zero vector dim")
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "labs:faq:answer_index"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("labs:faq:doc:1"),
			mock.RedisArray(
				mock.RedisString("question"), mock.RedisString("Why no books?"),
				mock.RedisString("answer"), mock.RedisString("Check your .env file"),
				mock.RedisString("__score"), mock.RedisString("0.1"),
			),
			mock.RedisString("labs:faq:doc:2"),
			mock.RedisArray(
				mock.RedisString("question"), mock.RedisString("Restart?"),
				mock.RedisString("answer"), mock.RedisString("Reload the window"),
				mock.RedisString("__score"), mock.RedisString("0.4"),
			),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "labs:faq:answer_index",
		Field:        "answer_embedding",
		Vector:       []float32{0.1, 0.2},
		K:            10,
		EFRuntime:    10,
		ReturnFields: []string{"question", "answer"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 2 || len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got total=%d entries=%d", res.Total, len(res.Entries))
	}

	first := res.Entries[0]
	if first.Key != "labs:faq:doc:1" {
		t.Errorf("key = %q", first.Key)
	}
	if first.Distance != 0.1 {
		t.Errorf("distance = %f, want 0.1", first.Distance)
	}
	if first.Fields["answer"] != "Check your .env file" {
		t.Errorf("answer = %q", first.Fields["answer"])
	}
	if _, ok := first.Fields["__score"]; ok {
		t.Error("score alias should be removed from fields")
	}
	if res.Entries[1].Fields["question"] != "Restart?" {
		t.Errorf("second entry out of order: %+v", res.Entries[1])
	}
}

func TestSearchKNN_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Field:     "question_embedding",
		Vector:    []float32{0.1},
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(res.Entries))
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Field:     "question_embedding",
		Vector:    []float32{0.1},
		K:         10,
	})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestSearchKNN_MalformedReply(t *testing.T) {
	tests := []struct {
		name   string
		fields []rueidis.RedisMessage
	}{
		{"missing score", []rueidis.RedisMessage{
			mock.RedisString("question"), mock.RedisString("q"),
			mock.RedisString("answer"), mock.RedisString("a"),
		}},
		{"unparseable score", []rueidis.RedisMessage{
			mock.RedisString("answer"), mock.RedisString("a"),
			mock.RedisString("__score"), mock.RedisString("near"),
		}},
		{"odd field list", []rueidis.RedisMessage{
			mock.RedisString("answer"), mock.RedisString("a"),
			mock.RedisString("__score"),
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)

			c.EXPECT().
				Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
					return cmd[0] == "FT.SEARCH"
				})).
				Return(mock.Result(mock.RedisArray(
					mock.RedisInt64(1),
					mock.RedisString("k1"),
					mock.RedisArray(tc.fields...),
				)))

			s := NewStoreForTest(c)
			res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
				IndexName: "idx",
				Field:     "question_embedding",
				Vector:    []float32{0.1},
				K:         10,
			})
			if !isDBError(err) {
				t.Fatalf("expected db.Error, got res=%+v err=%v", res, err)
			}
		})
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	tests := []struct {
		name string
		q    db.KNNQuery
	}{
		{"no index", db.KNNQuery{Field: "f", Vector: []float32{0.1}, K: 1}},
		{"no field", db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}, K: 1}},
		{"empty vector", db.KNNQuery{IndexName: "idx", Field: "f", K: 1}},
		{"zero k", db.KNNQuery{IndexName: "idx", Field: "f", Vector: []float32{0.1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.SearchKNN(ctx, &tc.q); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestBuildKNNArgs(t *testing.T) {
	args := buildKNNArgs(&db.KNNQuery{
		IndexName:    "idx",
		Field:        "question_embedding",
		Vector:       []float32{1},
		K:            10,
		EFRuntime:    20,
		ReturnFields: []string{"question", "answer"},
	})

	if args[0] != "idx" {
		t.Errorf("args[0] = %q", args[0])
	}
	if want := "*=>[KNN 10 @question_embedding $BLOB EF_RUNTIME 20 AS __score]"; args[1] != want {
		t.Errorf("query = %q, want %q", args[1], want)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"RETURN 3 question answer __score", "SORTBY __score ASC", "LIMIT 0 10", "DIALECT 2"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestBuildKNNArgs_NoEFRuntime(t *testing.T) {
	args := buildKNNArgs(&db.KNNQuery{IndexName: "idx", Field: "v", Vector: []float32{1}, K: 3})
	if strings.Contains(args[1], "EF_RUNTIME") {
		t.Errorf("query should not carry EF_RUNTIME: %q", args[1])
	}
	if slices.Contains(args, "RETURN") {
		t.Error("RETURN should be omitted without return fields")
	}
}

func TestVectorToBytes(t *testing.T) {
	b := vectorToBytes([]float32{1, 2})
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
	// 1.0f little-endian
	if b[:4] != "\x00\x00\x80\x3f" {
		t.Errorf("unexpected encoding: %q", b[:4])
	}
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
