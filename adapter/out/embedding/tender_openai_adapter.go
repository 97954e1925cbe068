// Package embedding provides the OpenAI-backed embedding adapter.
package embedding

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"tender_server/core/port/out"
	"tender_server/pkg/logger"
)

// OpenAIAdapter implements out.EmbeddingBackend against the OpenAI
// embeddings API, behind a circuit breaker so a degraded backend fails fast
// instead of stalling a whole run.
type OpenAIAdapter struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	log     *logger.Logger
}

// OpenAIConfig holds embedding adapter configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewOpenAIAdapter creates a new OpenAIAdapter. Unrecognized model names
// fall back to text-embedding-ada-002.
func NewOpenAIAdapter(cfg *OpenAIConfig) *OpenAIAdapter {
	model := resolveModel(cfg.Model)
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	log := logger.WithField("component", "openai-embedding")
	cbSettings := gobreaker.Settings{
		Name:        "openai-embeddings",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	}

	return &OpenAIAdapter{
		client:  openai.NewClient(cfg.APIKey),
		model:   model,
		timeout: timeout,
		cb:      gobreaker.NewCircuitBreaker(cbSettings),
		log:     log,
	}
}

// resolveModel maps a configured model name onto the client's enum via its
// TextUnmarshaler; names the client does not know resolve to Unknown.
func resolveModel(name string) openai.EmbeddingModel {
	if name == "" {
		return openai.AdaEmbeddingV2
	}
	var model openai.EmbeddingModel
	_ = model.UnmarshalText([]byte(name))
	if model == openai.Unknown {
		return openai.AdaEmbeddingV2
	}
	return model
}

var _ out.EmbeddingBackend = (*OpenAIAdapter)(nil)

// Embed requests one vector per input text, same order.
func (a *OpenAIAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := a.cb.Execute(func() (any, error) {
		resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: a.model,
			Input: texts,
		})
		if err != nil {
			return nil, err
		}
		vectors := make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = data.Embedding
		}
		return vectors, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([][]float32), nil
}
