package embedding

import "context"

// EmbeddingProvider produces the raw embedding for one text. Implementations return *apperr.Error
// values so callers can tell transport failures from malformed responses.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}
