package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	domqa "github.com/kailas-cloud/labchat/internal/domain/qa"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	questionMarker = "Question"
)

// ParseMarkdown extracts question/answer pairs from a troubleshooting document.
//
// A level-2 heading containing "Question" opens a question, a paragraph line
// starting with "Q:" replaces it, and a line starting with "A:" answers it.
// Text before the first "Q:"/"A:" line of a paragraph is ignored, following lines
// continue the entry they belong to. Answers without an open question are kept
// until the next heading and emitted only if a question follows.
func ParseMarkdown(src []byte) []domqa.Pair {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	p := &pairParser{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 2 {
				p.heading(nodeText(node, src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			p.paragraph(nodeText(node, src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	p.flush()
	return p.pairs
}

type pairParser struct {
	pairs    []domqa.Pair
	question string
	answer   string
	// field being extended by continuation lines: 'q', 'a' or 0
	current byte
}

func (p *pairParser) heading(title string) {
	p.current = 0
	if !strings.Contains(title, questionMarker) {
		return
	}
	p.flush()
	p.question = strings.TrimSpace(title)
	p.answer = ""
}

func (p *pairParser) paragraph(body string) {
	p.current = 0
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, questionPrefix):
			p.question = strings.TrimSpace(strings.TrimPrefix(line, questionPrefix))
			p.current = 'q'
		case strings.HasPrefix(line, answerPrefix):
			p.emitPending()
			p.answer = strings.TrimSpace(strings.TrimPrefix(line, answerPrefix))
			p.current = 'a'
		case p.current == 'q':
			p.question = joinLine(p.question, line)
		case p.current == 'a':
			p.answer = joinLine(p.answer, line)
		}
	}
	p.emitPending()
}

// emitPending records the open pair once it has both parts.
func (p *pairParser) emitPending() {
	if p.current != 'a' || p.question == "" || p.answer == "" {
		return
	}
	p.pairs = append(p.pairs, domqa.Pair{Question: p.question, Answer: p.answer})
	p.question, p.answer, p.current = "", "", 0
}

func (p *pairParser) flush() {
	if p.question != "" && p.answer != "" {
		p.pairs = append(p.pairs, domqa.Pair{Question: p.question, Answer: p.answer})
	}
	p.question, p.answer, p.current = "", "", 0
}

func joinLine(s, line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return s
	}
	if s == "" {
		return line
	}
	return s + " " + line
}

// nodeText returns the plain text of a block, with soft and hard breaks as newlines.
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
