// Package embed defines the embedding provider contract and its
// implementations: OpenAI-compatible HTTP, Ollama, Cohere, and a local
// deterministic embedder. The indexer and search engine rely only on this
// interface and never inspect provider internals.
package embed

import "context"

// Provider generates vector embeddings for text.
type Provider interface {
	// GenerateEmbedding embeds a single text.
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)

	// GenerateEmbeddings embeds a batch of texts, preserving order.
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float64, error)

	// GetDimensions returns the provider's true output dimension.
	GetDimensions() int

	// GetName returns the human-readable provider name.
	GetName() string
}

// DefaultBatchSize is the batch size used when a provider does not impose
// its own contract.
const DefaultBatchSize = 32

// FactoryConfig carries provider-related configuration.
type FactoryConfig struct {
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIEmbeddingModel string
	TransformersModel    string
	OllamaBaseURL        string
	OllamaModel          string
	CohereAPIKey         string
	CohereModel          string
	Dimensions           int
}
