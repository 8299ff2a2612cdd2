package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pampax/pampax/internal/indexer"
	"github.com/pampax/pampax/internal/output"
)

// reindexOptions are shared by index and update (a full reindex in v1).
type reindexOptions struct {
	provider      string
	encryptionKey string
	encrypt       string
}

func addReindexFlags(cmd *cobra.Command, opts *reindexOptions) {
	cmd.Flags().StringVarP(&opts.provider, "provider", "p", "auto", "embedding provider (auto|openai|transformers|local|ollama|cohere)")
	cmd.Flags().StringVar(&opts.encryptionKey, "encryption-key", "", "base64 or hex 32-byte encryption key")
	cmd.Flags().StringVar(&opts.encrypt, "encrypt", "off", "encrypt chunk payloads (on|off)")
}

func newIndexCommand(globals *globalOptions) *cobra.Command {
	opts := &reindexOptions{}

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a repository and produce .pampa artifacts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuarded(cmd, func() error {
				return runReindex(cmd, args, opts, globals)
			})
		},
	}

	addReindexFlags(cmd, opts)
	return cmd
}

func newUpdateCommand(globals *globalOptions) *cobra.Command {
	opts := &reindexOptions{}

	cmd := &cobra.Command{
		Use:   "update [path]",
		Short: "Reindex a repository (full reindex in v1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuarded(cmd, func() error {
				return runReindex(cmd, args, opts, globals)
			})
		},
	}

	addReindexFlags(cmd, opts)
	return cmd
}

func runReindex(cmd *cobra.Command, args []string, opts *reindexOptions, globals *globalOptions) error {
	if err := validateToggle("encrypt", opts.encrypt); err != nil {
		return err
	}

	provider, err := resolveProvider(opts.provider, globals.config)
	if err != nil {
		return err
	}

	masterKey, err := resolveMasterKey(opts.encryptionKey, globals.config)
	if err != nil {
		return err
	}

	summary, err := indexer.Run(cmd.Context(), indexer.Options{
		Root:      resolvePath(args),
		Provider:  provider,
		Encrypt:   toggleOn(opts.encrypt),
		MasterKey: masterKey,
	})
	if err != nil {
		return err
	}

	return output.New(cmd.OutOrStdout()).JSON(summary)
}
