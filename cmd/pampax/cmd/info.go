package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pampax/pampax/internal/chunkstore"
	"github.com/pampax/pampax/internal/indexer"
	"github.com/pampax/pampax/internal/output"
	"github.com/pampax/pampax/internal/store"
)

// infoEnvelope is the info command's success payload.
type infoEnvelope struct {
	Project infoProject `json:"project"`
	Stats   infoStats   `json:"stats"`
}

type infoProject struct {
	Root        string `json:"root"`
	DBPath      string `json:"db_path"`
	CodemapPath string `json:"codemap_path"`
}

type infoStats struct {
	Chunks          int            `json:"chunks"`
	Files           int            `json:"files"`
	Languages       map[string]int `json:"languages"`
	Providers       map[string]int `json:"providers"`
	DBSizeBytes     int64          `json:"db_size_bytes"`
	EncryptedChunks int            `json:"encrypted_chunks"`
	PlainChunks     int            `json:"plain_chunks"`
}

func newInfoCommand(_ *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show index health and basic statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGuarded(cmd, func() error {
				return runInfo(cmd)
			})
		},
	}
}

func runInfo(cmd *cobra.Command) error {
	root := "."
	if err := requireIndex(root); err != nil {
		return err
	}

	db, err := store.Open(indexer.DBPath(root))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()

	chunks, err := db.CountChunks(ctx)
	if err != nil {
		return err
	}
	files, err := db.CountFiles(ctx)
	if err != nil {
		return err
	}
	languages, err := db.LanguageCounts(ctx)
	if err != nil {
		return err
	}
	providers, err := db.ProviderCounts(ctx)
	if err != nil {
		return err
	}

	var dbSize int64
	if stat, statErr := os.Stat(indexer.DBPath(root)); statErr == nil {
		dbSize = stat.Size()
	}

	encrypted, plain, err := chunkstore.New(indexer.ChunksDir(root), nil).CountByMode()
	if err != nil {
		return err
	}

	return output.New(cmd.OutOrStdout()).JSON(infoEnvelope{
		Project: infoProject{
			Root:        root,
			DBPath:      indexer.DBPath(root),
			CodemapPath: indexer.CodemapPath(root),
		},
		Stats: infoStats{
			Chunks:          chunks,
			Files:           files,
			Languages:       languages,
			Providers:       providers,
			DBSizeBytes:     dbSize,
			EncryptedChunks: encrypted,
			PlainChunks:     plain,
		},
	})
}
