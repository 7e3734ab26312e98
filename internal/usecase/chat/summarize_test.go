package chat

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/labchat/internal/domain/candidate"
)

// words returns an answer of n whitespace-separated tokens.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("w ", n))
}

func TestSummarize_Format(t *testing.T) {
	got := Summarize([]candidate.Candidate{
		{Question: "q1", Answer: "Check your .env file", Score: 0.95},
		{Question: "q2", Answer: "Restart the server", Score: 0.8},
	}, DefaultMaxContextTokens)

	want := "Check your .env file (Score: 0.95)\n\nRestart the server (Score: 0.8)\n\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSummarize_StopsAtFirstOverflow(t *testing.T) {
	cs := []candidate.Candidate{
		{Answer: words(3000), Score: 0.9},
		{Answer: words(5000), Score: 0.9},
		{Answer: words(100), Score: 0.9},
	}

	got := Summarize(cs, 7000)

	if strings.Count(got, "(Score: ") != 1 {
		t.Fatalf("expected only the first candidate, got %d entries", strings.Count(got, "(Score: "))
	}
	if !strings.HasPrefix(got, words(3000)+" (Score: 0.9)") {
		t.Error("first candidate missing")
	}
}

func TestSummarize_ExactBudgetFits(t *testing.T) {
	cs := []candidate.Candidate{
		{Answer: words(4), Score: 0.9},
		{Answer: words(6), Score: 0.85},
	}
	got := Summarize(cs, 10)
	if strings.Count(got, "(Score: ") != 2 {
		t.Errorf("both candidates should fit a budget of exactly 10: %q", got)
	}
}

func TestSummarize_NeverExceedsBudget(t *testing.T) {
	cs := []candidate.Candidate{
		{Answer: strings.TrimSpace(strings.Repeat("x ", 7)), Score: 0.9},
		{Answer: strings.TrimSpace(strings.Repeat("y ", 2)), Score: 0.9},
		{Answer: strings.TrimSpace(strings.Repeat("z ", 9)), Score: 0.9},
	}
	for budget := 0; budget <= 20; budget++ {
		got := Summarize(cs, budget)
		used := 0
		for _, c := range cs {
			if strings.Contains(got, c.Answer+" (Score:") {
				used += len(strings.Fields(c.Answer))
			}
		}
		if used > budget {
			t.Errorf("budget %d exceeded: %d tokens", budget, used)
		}
	}
}

func TestSummarize_FirstTooLarge(t *testing.T) {
	got := Summarize([]candidate.Candidate{{Answer: words(8000), Score: 0.99}, {Answer: "short", Score: 0.9}}, 7000)
	if got != "" {
		t.Errorf("expected empty context, got %d bytes", len(got))
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	cs := []candidate.Candidate{
		{Answer: "a b c", Score: 0.91},
		{Answer: "d e", Score: 0.83},
	}
	first := Summarize(cs, 4)
	second := Summarize(cs, 4)
	if first != second {
		t.Errorf("not deterministic: %q vs %q", first, second)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if got := Summarize(nil, 7000); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
