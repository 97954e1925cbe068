package embedding

import (
	"context"
	"strings"
	"testing"

	"tender_server/pkg/apperr"
)

type fakeBackend struct {
	calls   [][]string
	failErr error
}

func (f *fakeBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.failErr != nil {
		return nil, f.failErr
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 1}
	}
	return vectors, nil
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims and collapses whitespace", "  Road   Repair \n Tender ", "road repair tender"},
		{"lowercases", "IT Equipment SUPPLY", "it equipment supply"},
		{"empty stays empty", "   \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeCapsLength(t *testing.T) {
	long := strings.Repeat("a", MaxInputLength+500)
	if got := Normalize(long); len(got) != MaxInputLength {
		t.Errorf("normalized length = %d, want %d", len(got), MaxInputLength)
	}
}

func TestEmbedTextsBatching(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewService(backend, 2)

	texts := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	vectors, err := svc.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	if len(backend.calls) != 3 {
		t.Errorf("got %d backend calls, want 3", len(backend.calls))
	}
	if len(backend.calls[2]) != 1 {
		t.Errorf("last chunk size = %d, want 1", len(backend.calls[2]))
	}
}

func TestEmbedTextsEmptyInputFails(t *testing.T) {
	svc := NewService(&fakeBackend{}, 0)
	_, err := svc.EmbedTexts(context.Background(), []string{"ok", "   "})
	if !apperr.IsCode(err, apperr.CodeEmbeddingError) {
		t.Errorf("got %v, want EMBEDDING_ERROR", err)
	}
}

func TestNewServiceClampsBatchSize(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewService(backend, MaxBatchSize+1)
	if svc.batchSize != DefaultBatchSize {
		t.Errorf("batchSize = %d, want %d", svc.batchSize, DefaultBatchSize)
	}
}
