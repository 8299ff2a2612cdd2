package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pampax/pampax/internal/pathutil"
)

// Walk traverses the repository rooted at options.Root with a worker pool and
// returns the sorted, deduplicated list of indexable files plus sorted
// warnings. Symlinks are never traversed; unreadable subtrees are skipped
// with a warning instead of aborting the walk.
func Walk(ctx context.Context, options WalkOptions) (WalkResult, error) {
	rootPath, err := filepath.Abs(options.Root)
	if err != nil {
		return WalkResult{}, fmt.Errorf("resolve absolute root path: %w", err)
	}

	rootInfo, err := os.Stat(rootPath)
	if err != nil {
		return WalkResult{}, fmt.Errorf("stat root path: %w", err)
	}
	if !rootInfo.IsDir() {
		return WalkResult{}, fmt.Errorf("root path is not a directory: %s", rootPath)
	}

	workerCount := options.workerCount()
	if len(options.SupportedExts) == 0 {
		options.SupportedExts = DefaultSupportedExtensions()
	}

	var (
		pathsMu    sync.Mutex
		warningsMu sync.Mutex
		paths      []string
		warnings   []Warning
	)

	appendPath := func(path string) {
		pathsMu.Lock()
		paths = append(paths, path)
		pathsMu.Unlock()
	}

	appendWarning := func(w Warning) {
		warningsMu.Lock()
		warnings = append(warnings, w)
		warningsMu.Unlock()
	}

	dirs := make(chan string, workerCount)
	var dirQueue sync.WaitGroup

	// enqueue hands a directory to the pool without blocking the caller,
	// so a full channel cannot deadlock the workers that feed it.
	enqueue := func(dirPath string) {
		dirQueue.Add(1)
		select {
		case dirs <- dirPath:
		default:
			go func() {
				select {
				case dirs <- dirPath:
				case <-ctx.Done():
					dirQueue.Done()
				}
			}()
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for range workerCount {
		group.Go(func() error {
			for dirPath := range dirs {
				if groupCtx.Err() != nil {
					dirQueue.Done()
					continue
				}

				walkDirectory(groupCtx, rootPath, dirPath, options, appendPath, appendWarning, enqueue)
				dirQueue.Done()
			}
			return nil
		})
	}

	enqueue(rootPath)

	go func() {
		dirQueue.Wait()
		close(dirs)
	}()

	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return WalkResult{}, err
	}

	slices.Sort(paths)
	paths = slices.Compact(paths)

	slices.SortFunc(warnings, func(a, b Warning) int {
		if cmp := strings.Compare(a.Path, b.Path); cmp != 0 {
			return cmp
		}
		if cmp := strings.Compare(string(a.Code), string(b.Code)); cmp != 0 {
			return cmp
		}
		return strings.Compare(a.Message, b.Message)
	})

	log.Debug().
		Int("files", len(paths)).
		Int("warnings", len(warnings)).
		Msg("walk_complete")

	return WalkResult{Paths: paths, Warnings: warnings}, nil
}

// walkDirectory reads one directory, classifies its entries and feeds
// subdirectories back into the pool.
func walkDirectory(
	ctx context.Context,
	rootPath, dirPath string,
	options WalkOptions,
	appendPath func(string),
	appendWarning func(Warning),
	enqueue func(string),
) {
	entries, readErr := os.ReadDir(dirPath)
	if readErr != nil {
		relativePath, relErr := pathutil.RelativeTo(rootPath, dirPath)
		if relErr != nil {
			relativePath = pathutil.Normalize(dirPath)
		}
		appendWarning(classifyReadDirError(relativePath, readErr))
		return
	}

	slices.SortFunc(entries, func(a, b os.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		fullPath := filepath.Join(dirPath, entry.Name())
		relativePath, relErr := pathutil.RelativeTo(rootPath, fullPath)
		if relErr != nil {
			appendWarning(Warning{
				Code:    WarningStatFailed,
				Path:    pathutil.Normalize(fullPath),
				Message: fmt.Sprintf("failed to normalize path: %v", relErr),
			})
			continue
		}

		// Symlinks are skipped whether they point at files or directories;
		// a missing target is reported as broken_symlink.
		if entry.Type()&os.ModeSymlink != 0 {
			if _, statErr := os.Stat(fullPath); statErr != nil {
				appendWarning(classifyStatError(relativePath, statErr))
			}
			continue
		}

		if entry.IsDir() {
			if options.Matcher != nil && options.Matcher.ShouldSkipDir(relativePath) {
				continue
			}
			enqueue(fullPath)
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}

		if options.Matcher != nil && options.Matcher.ShouldSkipFile(relativePath) {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := options.SupportedExts[ext]; !ok {
			continue
		}

		appendPath(relativePath)
	}
}
