package domain

// SearchTarget names one vector field to search and how wide to search it.
type SearchTarget struct {
	Field      string // vector attribute, e.g. question_embedding
	Index      string // logical index name, e.g. question_index
	Candidates int    // approximate-search candidate pool
	Limit      int    // results returned
}
