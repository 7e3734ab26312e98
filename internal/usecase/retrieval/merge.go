package retrieval

import "github.com/kailas-cloud/labchat/internal/domain/candidate"

// DefaultScoreThreshold is the minimum similarity a candidate needs to reach the prompt.
const DefaultScoreThreshold = 0.8

// Merge concatenates result sets in the given order and keeps the first
// occurrence of every (question, answer) pair. Later duplicates are dropped
// even when they carry a higher score.
func Merge(sets ...[]candidate.Candidate) []candidate.Candidate {
	total := 0
	for _, s := range sets {
		total += len(s)
	}

	seen := make(map[candidate.Key]struct{}, total)
	out := make([]candidate.Candidate, 0, total)
	for _, s := range sets {
		for _, c := range s {
			k := c.Key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// FilterByScore keeps candidates whose score is at least threshold, preserving order.
func FilterByScore(cs []candidate.Candidate, threshold float64) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(cs))
	for _, c := range cs {
		if c.Score >= threshold {
			out = append(out, c)
		}
	}
	return out
}
