// Package candidate holds the transient search hit passed through the context-assembly pipeline.
package candidate

import "strconv"

// Candidate is a single question/answer pair returned by similarity search.
// It has no identity beyond its (Question, Answer) pair and lives for one request.
type Candidate struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// Key identifies the stored pair a candidate came from. Score is not part of it.
type Key struct {
	Question string
	Answer   string
}

// Key returns the candidate's pair identity.
func (c Candidate) Key() Key {
	return Key{Question: c.Question, Answer: c.Answer}
}

// FormatScore renders a score in its shortest exact decimal form, e.g. 0.95.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
