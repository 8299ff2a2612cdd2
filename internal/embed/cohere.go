package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const cohereRequestTimeout = 60 * time.Second

// CohereProvider calls Cohere's /v1/embed endpoint.
type CohereProvider struct {
	client     *http.Client
	apiKey     string
	model      string
	dimensions int
}

// NewCohereProvider creates the provider from configuration.
func NewCohereProvider(cfg FactoryConfig) *CohereProvider {
	model := cfg.CohereModel
	if model == "" {
		model = "embed-english-v3.0"
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = 1024
	}

	return &CohereProvider{
		client:     &http.Client{Timeout: cohereRequestTimeout},
		apiKey:     cfg.CohereAPIKey,
		model:      model,
		dimensions: dimensions,
	}
}

type cohereEmbeddingRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type cohereEmbeddingResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// GenerateEmbedding embeds a single text.
func (p *CohereProvider) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	vectors, err := p.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GenerateEmbeddings embeds a batch in one request.
func (p *CohereProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(cohereEmbeddingRequest{
		Model:     p.model,
		Texts:     texts,
		InputType: "search_document",
	})
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.cohere.ai/v1/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call cohere: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cohere returned %d: %s", resp.StatusCode, string(raw))
	}

	var decoded cohereEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	if len(decoded.Embeddings) != len(texts) {
		return nil, fmt.Errorf("cohere returned %d vectors for %d inputs", len(decoded.Embeddings), len(texts))
	}

	return decoded.Embeddings, nil
}

// GetDimensions returns the model's output dimension.
func (p *CohereProvider) GetDimensions() int {
	return p.dimensions
}

// GetName returns the provider name.
func (p *CohereProvider) GetName() string {
	return "cohere"
}
