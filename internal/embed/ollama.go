package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const ollamaRequestTimeout = 120 * time.Second

// OllamaProvider calls a local Ollama server. The embeddings endpoint takes
// one prompt per request, so batches iterate.
type OllamaProvider struct {
	client  *http.Client
	baseURL string
	model   string

	mu         sync.Mutex
	dimensions int
}

// NewOllamaProvider creates the provider from configuration.
func NewOllamaProvider(cfg FactoryConfig) *OllamaProvider {
	baseURL := cfg.OllamaBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.OllamaModel
	if model == "" {
		model = "nomic-embed-text"
	}

	return &OllamaProvider{
		client:     &http.Client{Timeout: ollamaRequestTimeout},
		baseURL:    baseURL,
		model:      model,
		dimensions: cfg.Dimensions,
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// GenerateEmbedding embeds a single text.
func (p *OllamaProvider) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(ollamaEmbeddingRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ollama: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(raw))
	}

	var decoded ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	if len(decoded.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}

	// The model's true dimension is discovered from the first response.
	p.mu.Lock()
	if p.dimensions == 0 {
		p.dimensions = len(decoded.Embedding)
	}
	p.mu.Unlock()

	return decoded.Embedding, nil
}

// GenerateEmbeddings embeds each text sequentially.
func (p *OllamaProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vector, err := p.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vector
	}
	return out, nil
}

// GetDimensions returns the configured or discovered dimension.
func (p *OllamaProvider) GetDimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dimensions > 0 {
		return p.dimensions
	}
	return 768
}

// GetName returns the provider name.
func (p *OllamaProvider) GetName() string {
	return "ollama"
}
