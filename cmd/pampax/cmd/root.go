// Package cmd wires the pampax CLI: index, update, search and info. Every
// command emits a single JSON object on stdout; failures use the fixed
// {error: {code, message, hint}} envelope and exit status 1.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pampax/pampax/internal/config"
	"github.com/pampax/pampax/internal/logging"
)

// globalOptions are shared across subcommands.
type globalOptions struct {
	pretty     bool
	verbose    bool
	configFile string
	config     *config.Config
}

// NewRootCommand builds the pampax root command.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "pampax",
		Short:         "Local semantic code index",
		Long:          "pampax walks a repository, chunks source files, computes embeddings,\nand serves hybrid (BM25 + vector) ranked queries.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(opts.configFile)
			if err != nil {
				reportError(cmd, err)
				return err
			}
			opts.config = loaded

			logging.Setup(logging.Options{
				Pretty:  opts.pretty,
				Verbose: opts.verbose,
				Writer:  os.Stderr,
			})

			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "human-readable console logging")
	rootCmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "enable debug logs")
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to config file")

	rootCmd.AddCommand(newIndexCommand(opts))
	rootCmd.AddCommand(newUpdateCommand(opts))
	rootCmd.AddCommand(newSearchCommand(opts))
	rootCmd.AddCommand(newInfoCommand(opts))

	return rootCmd
}
