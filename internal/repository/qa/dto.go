package qa

import (
	"encoding/binary"
	"math"

	domqa "github.com/kailas-cloud/labchat/internal/domain/qa"
)

// buildHashFields converts a document into a flat map[string]string for HSET.
func buildHashFields(d domqa.Document) map[string]string {
	p := d.Pair()
	return map[string]string{
		domqa.FieldQuestion:          p.Question,
		domqa.FieldAnswer:            p.Answer,
		domqa.FieldQuestionEmbedding: vectorToBytes(d.QuestionEmbedding()),
		domqa.FieldAnswerEmbedding:   vectorToBytes(d.AnswerEmbedding()),
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
