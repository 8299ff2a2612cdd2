package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pampax/pampax/internal/chunkstore"
	"github.com/pampax/pampax/internal/config"
	"github.com/pampax/pampax/internal/embed"
	pampaxerrors "github.com/pampax/pampax/internal/errors"
	"github.com/pampax/pampax/internal/indexer"
	"github.com/pampax/pampax/internal/output"
)

// reportError writes the failure envelope to stdout.
func reportError(cmd *cobra.Command, err error) {
	output.New(cmd.OutOrStdout()).Error(err)
}

// runGuarded wraps a command body with the error envelope and the panic
// boundary: an unexpected panic surfaces as INTERNAL_ERROR instead of a
// stack trace on stdout.
func runGuarded(cmd *cobra.Command, fn func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error().Interface("panic", recovered).
				Str("stack", string(debug.Stack())).
				Msg("panic_recovered")
			err = pampaxerrors.Internal(fmt.Sprintf("unexpected panic: %v", recovered), nil).
				WithHint("re-run with --verbose and report this")
			reportError(cmd, err)
		}
	}()

	if err = fn(); err != nil {
		reportError(cmd, err)
	}
	return err
}

// resolvePath picks the target repository from a positional arg or ".".
func resolvePath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return "."
}

// validateToggle rejects anything but on/off before work starts.
func validateToggle(flag, value string) error {
	if value == "on" || value == "off" {
		return nil
	}
	return pampaxerrors.InvalidInput(
		fmt.Sprintf("invalid %s value %q: must be one of [on, off]", flag, value))
}

func toggleOn(value string) bool {
	return value == "on"
}

// validateReranker rejects unknown reranker modes.
func validateReranker(value string) error {
	switch value {
	case "off", "transformers", "api":
		return nil
	}
	return pampaxerrors.InvalidInput(
		fmt.Sprintf("invalid reranker value %q: must be one of [off, transformers, api]", value))
}

// buildProviderConfig maps the loaded config onto the provider factory.
func buildProviderConfig(cfg *config.Config) embed.FactoryConfig {
	if cfg == nil {
		return embed.FactoryConfig{}
	}

	return embed.FactoryConfig{
		OpenAIAPIKey:         cfg.OpenAIAPIKey,
		OpenAIBaseURL:        cfg.OpenAIBaseURL,
		OpenAIEmbeddingModel: cfg.OpenAIEmbeddingModel,
		TransformersModel:    cfg.TransformersModel,
		OllamaBaseURL:        cfg.OllamaBaseURL,
		OllamaModel:          cfg.OllamaModel,
		CohereAPIKey:         cfg.CohereAPIKey,
		CohereModel:          cfg.CohereModel,
		Dimensions:           cfg.Dimensions,
	}
}

// resolveProvider builds the embedding provider, wrapping it with the LRU
// cache so repeated texts skip provider calls.
func resolveProvider(requested string, cfg *config.Config) (embed.Provider, error) {
	provider, err := embed.New(requested, buildProviderConfig(cfg))
	if err != nil {
		return nil, pampaxerrors.ConfigError("resolve embedding provider", err)
	}

	cached, err := embed.NewCachedProvider(provider, 0)
	if err != nil {
		return nil, pampaxerrors.ConfigError("create embedding cache", err)
	}

	return cached, nil
}

// resolveMasterKey resolves the encryption key: CLI flag over config/env.
// Returns nil when no key is configured.
func resolveMasterKey(flagValue string, cfg *config.Config) ([]byte, error) {
	encoded := flagValue
	if encoded == "" && cfg != nil {
		encoded = cfg.EncryptionKey
	}
	if encoded == "" {
		return nil, nil
	}

	key, err := chunkstore.ParseMasterKey(encoded)
	if err != nil {
		return nil, pampaxerrors.ConfigError("parse encryption key", err).
			WithHint("the key must be 32 bytes as base64 (44 chars) or hex (64 chars)")
	}

	return key, nil
}

// requireIndex verifies the repository has been indexed.
func requireIndex(root string) error {
	if _, err := os.Stat(indexer.DBPath(root)); os.IsNotExist(err) {
		return pampaxerrors.IndexMissing(fmt.Sprintf("no index found at %s", indexer.DBPath(root))).
			WithHint("run 'pampax index' first")
	}
	return nil
}
