package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/pampax/pampax/internal/chunkstore"
	"github.com/pampax/pampax/internal/indexer"
	"github.com/pampax/pampax/internal/output"
	"github.com/pampax/pampax/internal/search"
	"github.com/pampax/pampax/internal/store"
)

type searchOptions struct {
	provider    string
	limit       int
	pathGlobs   []string
	tags        []string
	languages   []string
	reranker    string
	hybrid      string
	bm25        string
	symbolBoost string
}

// searchEnvelope is the search command's success payload.
type searchEnvelope struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
	Total   int             `json:"total"`
	Filters searchFilters   `json:"filters"`
}

type searchFilters struct {
	PathGlobs   []string `json:"path_glob,omitempty"`
	Languages   []string `json:"lang,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Hybrid      string   `json:"hybrid"`
	BM25        string   `json:"bm25"`
	SymbolBoost string   `json:"symbol_boost"`
	Reranker    string   `json:"reranker"`
}

func newSearchCommand(globals *globalOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query> [path]",
		Short: "Search indexed chunks",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuarded(cmd, func() error {
				return runSearch(cmd, args, opts, globals)
			})
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "k", 10, "maximum number of results")
	cmd.Flags().IntVar(&opts.limit, "top", 10, "maximum number of results (alias for --limit)")
	cmd.Flags().StringVarP(&opts.provider, "provider", "p", "auto", "embedding provider")
	cmd.Flags().StringArrayVar(&opts.pathGlobs, "path_glob", nil, "filter by file path glob")
	cmd.Flags().StringArrayVar(&opts.tags, "tags", nil, "filter by tags (all must match)")
	cmd.Flags().StringArrayVar(&opts.languages, "lang", nil, "filter by language")
	cmd.Flags().StringVar(&opts.reranker, "reranker", "off", "reranker mode (off|transformers|api)")
	cmd.Flags().StringVar(&opts.hybrid, "hybrid", "on", "hybrid BM25+vector fusion (on|off)")
	cmd.Flags().StringVar(&opts.bm25, "bm25", "on", "BM25 candidate generation (on|off)")
	cmd.Flags().StringVar(&opts.symbolBoost, "symbol_boost", "on", "symbol-aware ranking boost (on|off)")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string, opts *searchOptions, globals *globalOptions) error {
	for _, toggle := range []struct{ name, value string }{
		{"hybrid", opts.hybrid},
		{"bm25", opts.bm25},
		{"symbol_boost", opts.symbolBoost},
	} {
		if err := validateToggle(toggle.name, toggle.value); err != nil {
			return err
		}
	}
	if err := validateReranker(opts.reranker); err != nil {
		return err
	}

	query := args[0]
	root := resolvePath(args[1:])

	if err := requireIndex(root); err != nil {
		return err
	}

	db, err := store.Open(indexer.DBPath(root))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	provider, err := resolveProvider(opts.provider, globals.config)
	if err != nil {
		return err
	}

	masterKey, err := resolveMasterKey("", globals.config)
	if err != nil {
		return err
	}
	chunks := chunkstore.New(indexer.ChunksDir(root), masterKey)

	var apiReranker search.Reranker
	if opts.reranker == "api" && globals.config != nil {
		apiReranker, err = search.NewAPIReranker(globals.config.Reranker)
		if err != nil {
			return err
		}
	}

	engine := search.New(db, provider, chunks, apiReranker)

	results, err := engine.Search(cmd.Context(), query, search.Options{
		Limit:       opts.limit,
		PathGlobs:   opts.pathGlobs,
		Languages:   opts.languages,
		Tags:        opts.tags,
		Hybrid:      toggleOn(opts.hybrid),
		BM25:        toggleOn(opts.bm25),
		SymbolBoost: toggleOn(opts.symbolBoost),
		Reranker:    strings.ToLower(opts.reranker),
	})
	if err != nil {
		return err
	}

	return output.New(cmd.OutOrStdout()).JSON(searchEnvelope{
		Query:   query,
		Results: results,
		Total:   len(results),
		Filters: searchFilters{
			PathGlobs:   opts.pathGlobs,
			Languages:   opts.languages,
			Tags:        opts.tags,
			Hybrid:      opts.hybrid,
			BM25:        opts.bm25,
			SymbolBoost: opts.symbolBoost,
			Reranker:    opts.reranker,
		},
	})
}
