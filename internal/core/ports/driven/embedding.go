package driven

import (
	"context"
)

// EmbeddingService turns text into vectors via one synchronous batched call.
type EmbeddingService interface {
	// Embed returns one vector per input text, positionally: the output
	// length always equals the input length and element order corresponds.
	// Any transport or non-success response fails the whole call; there is
	// no partial embedding and no retry at this layer.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
