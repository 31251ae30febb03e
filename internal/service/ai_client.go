package service

import "context"

// AIClient is the interface for LLM providers used by the scoring client and
// the history writer's embedding step.
type AIClient interface {
	// ChatCompletion performs a single chat completion request
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)

	// CreateEmbeddings generates embeddings for texts
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// IsEnabled returns whether the client is configured and ready
	IsEnabled() bool
}

var _ AIClient = (*OpenRouterClient)(nil)
