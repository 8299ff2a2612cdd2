package embed

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// New builds a provider by name. "auto" resolves by configured credentials:
// OpenAI key, then Cohere key, then an explicitly set Ollama base URL, then
// the local embedder. The choice is logged.
func New(providerName string, cfg FactoryConfig) (Provider, error) {
	requested := strings.ToLower(strings.TrimSpace(providerName))
	resolved := requested
	if resolved == "" || resolved == "auto" {
		resolved = resolveAutoProvider(cfg)
		log.Info().
			Str("requested", "auto").
			Str("provider", resolved).
			Msg("provider_selected")
	}

	switch resolved {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "transformers", "local":
		dimensions := cfg.Dimensions
		if dimensions <= 0 {
			dimensions = 384
		}
		return NewLocalProvider(cfg.TransformersModel, dimensions), nil
	case "ollama":
		return NewOllamaProvider(cfg), nil
	case "cohere":
		return NewCohereProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q: must be one of [auto, openai, transformers, local, ollama, cohere]", providerName)
	}
}

func resolveAutoProvider(cfg FactoryConfig) string {
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		return "openai"
	}
	if strings.TrimSpace(cfg.CohereAPIKey) != "" {
		return "cohere"
	}
	if strings.TrimSpace(cfg.OllamaBaseURL) != "" && cfg.OllamaBaseURL != "http://localhost:11434" {
		return "ollama"
	}
	return "transformers"
}
