package chat

import (
	"strings"

	"github.com/kailas-cloud/labchat/internal/domain/candidate"
)

// DefaultMaxContextTokens bounds the retrieved context sent to the model.
const DefaultMaxContextTokens = 7000

// Summarize builds the context block from candidates in order, appending
// "<answer> (Score: <score>)" entries while the running token count stays
// within maxTokens. It stops at the first candidate that does not fit, even
// if a later, shorter one would.
//
// Tokens are whitespace-separated words of the answer, a coarse stand-in for model tokens.
func Summarize(candidates []candidate.Candidate, maxTokens int) string {
	var (
		b    strings.Builder
		used int
	)
	for _, c := range candidates {
		tokens := len(strings.Fields(c.Answer))
		if used+tokens > maxTokens {
			break
		}
		used += tokens

		b.WriteString(c.Answer)
		b.WriteString(" (Score: ")
		b.WriteString(candidate.FormatScore(c.Score))
		b.WriteString(")\n\n")
	}
	return b.String()
}
