package out

import "context"

// EmbeddingBackend defines the outbound port for the vector embedding
// provider. Inputs are already normalized; one vector per input, same order.
type EmbeddingBackend interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
