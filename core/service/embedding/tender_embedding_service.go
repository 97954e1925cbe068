// Package embedding normalizes text and batches it through the vector
// backend.
package embedding

import (
	"context"
	"strings"

	"tender_server/core/port/out"
	"tender_server/pkg/apperr"
)

const (
	// MaxInputLength caps normalized input per text.
	MaxInputLength = 8000

	// DefaultBatchSize is used when the configured size is out of range.
	DefaultBatchSize = 50

	// MaxBatchSize is the hard per-request ceiling.
	MaxBatchSize = 100
)

// Service wraps the embedding backend with normalization and batching.
type Service struct {
	backend   out.EmbeddingBackend
	batchSize int
}

// NewService creates an embedding service. batchSize outside (0, MaxBatchSize]
// falls back to DefaultBatchSize.
func NewService(backend out.EmbeddingBackend, batchSize int) *Service {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = DefaultBatchSize
	}
	return &Service{backend: backend, batchSize: batchSize}
}

// Normalize prepares text for embedding: trim, collapse whitespace runs to
// single spaces, lowercase, cap length.
func Normalize(text string) string {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	if len(text) > MaxInputLength {
		text = text[:MaxInputLength]
	}
	return text
}

// EmbedText embeds a single text. Empty normalized input is an
// EMBEDDING_ERROR; callers decide whether to skip or record it.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in request-sized chunks, preserving order.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	normalized := make([]string, len(texts))
	for i, t := range texts {
		n := Normalize(t)
		if n == "" {
			return nil, apperr.EmbeddingError("empty input text", nil)
		}
		normalized[i] = n
	}

	vectors := make([][]float32, 0, len(normalized))
	for start := 0; start < len(normalized); start += s.batchSize {
		end := start + s.batchSize
		if end > len(normalized) {
			end = len(normalized)
		}
		chunk, err := s.backend.Embed(ctx, normalized[start:end])
		if err != nil {
			return nil, apperr.EmbeddingError("backend request failed", err)
		}
		if len(chunk) != end-start {
			return nil, apperr.EmbeddingError("backend returned wrong vector count", nil)
		}
		vectors = append(vectors, chunk...)
	}
	return vectors, nil
}
