package core

import "context"

// EmbeddingProvider turns chunk text into embedding vectors. Invoked once per
// chunk's context-prefixed copy.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider is the classifier oracle: a structured-output text call. The
// classifier treats any malformed response as "oracle unavailable" and falls
// back to a deterministic result.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// VisionProvider is the vision oracle used for image files and image-heavy
// slides. Images are raw encoded bytes (PNG/JPEG); one call carries at most a
// small batch of images.
type VisionProvider interface {
	Describe(ctx context.Context, images [][]byte, prompt string) (string, error)
}
