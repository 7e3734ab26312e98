package db

import "testing"

func TestIndexBuilder_QuestionIndex(t *testing.T) {
	idx, err := NewIndex("labs:faq:question_index").
		Prefix("labs:faq:doc:").
		Text("question").
		Text("answer").
		VectorHNSW("question_embedding", 1536, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.StorageType != StorageHash {
		t.Errorf("storage = %q, want HASH", idx.StorageType)
	}
	if len(idx.Fields) != 3 {
		t.Fatalf("fields count = %d, want 3", len(idx.Fields))
	}
	f := idx.Fields[2]
	if f.Type != IndexFieldVector || f.VectorAlgo != VectorHNSW {
		t.Errorf("field[2] = %+v, want HNSW vector", f)
	}
	if f.VectorDim != 1536 || f.VectorM != 16 || f.VectorEFConstruct != 200 {
		t.Errorf("unexpected vector params: %+v", f)
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"empty name", NewIndex("").Text("q")},
		{"invalid name", NewIndex("bad name!").Text("q")},
		{"no fields", NewIndex("idx")},
		{"duplicate field", NewIndex("idx").Text("q").Text("q")},
		{"zero dim", NewIndex("idx").VectorHNSW("v", 0, DistanceCosine, 0, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.b.Build(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"labs:faq:question_index", true},
		{"a-b_c", true},
		{"", false},
		{"with space", false},
		{"semi;colon", false},
	}
	for _, tc := range tests {
		if got := IsValidIdentifier(tc.in); got != tc.want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := ErrKeyNotFound
	err := &Error{Op: OpGet, Err: inner}
	if err.Error() != "GET: db: key not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Unwrap() != inner {
		t.Error("Unwrap() did not return inner error")
	}
}
