// Package qa models the stored question/answer documents that retrieval runs against.
package qa

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Hash field names of a stored document.
const (
	FieldQuestion          = "question"
	FieldAnswer            = "answer"
	FieldQuestionEmbedding = "question_embedding"
	FieldAnswerEmbedding   = "answer_embedding"
)

// idNamespace scopes document IDs so the same pair always maps to the same key.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("labchat/qa"))

// Pair is a question with its answer, as authored in the source document.
type Pair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ID derives a stable identifier from the pair's text.
func (p Pair) ID() string {
	return uuid.NewSHA1(idNamespace, []byte(p.Question+"\x00"+p.Answer)).String()
}

// Document is a pair together with one embedding per searchable field.
type Document struct {
	id                string
	pair              Pair
	questionEmbedding []float32
	answerEmbedding   []float32
}

// NewDocument validates a pair and its embeddings.
func NewDocument(p Pair, questionEmbedding, answerEmbedding []float32) (Document, error) {
	p.Question = strings.TrimSpace(p.Question)
	p.Answer = strings.TrimSpace(p.Answer)
	if p.Question == "" || p.Answer == "" {
		return Document{}, errors.New("question and answer are required")
	}
	if len(questionEmbedding) == 0 || len(answerEmbedding) == 0 {
		return Document{}, errors.New("both embeddings are required")
	}
	if len(questionEmbedding) != len(answerEmbedding) {
		return Document{}, errors.New("embedding dimensions differ")
	}
	return Document{
		id:                p.ID(),
		pair:              p,
		questionEmbedding: questionEmbedding,
		answerEmbedding:   answerEmbedding,
	}, nil
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Pair returns the question/answer text.
func (d Document) Pair() Pair { return d.pair }

// QuestionEmbedding returns the question vector.
func (d Document) QuestionEmbedding() []float32 { return d.questionEmbedding }

// AnswerEmbedding returns the answer vector.
func (d Document) AnswerEmbedding() []float32 { return d.answerEmbedding }
