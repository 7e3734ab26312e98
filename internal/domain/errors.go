package domain

import "errors"

var (
	// ErrInvalidInput signals a missing or malformed request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmbeddingService signals an embedding provider failure.
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrSearchService signals a similarity search failure.
	ErrSearchService = errors.New("search service error")
	// ErrCompletionService signals a chat completion provider failure.
	ErrCompletionService = errors.New("completion service error")
)
