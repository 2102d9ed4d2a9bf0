// Package store discovers trace files on disk and analyzes them in bulk.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"phytime/internal/logging"
	"phytime/internal/occupancy"

	"golang.org/x/sync/errgroup"
)

// ScanOptions controls how traces are enumerated and analyzed.
type ScanOptions struct {
	Root       string
	Observer   string
	Extensions []string
	Workers    int
	Logger     logging.Logger
}

// ScanResult contains per-trace reports and non-fatal warnings.
type ScanResult struct {
	Reports  []occupancy.Report
	Warnings []error
}

// ListTraces returns the files under root whose extension is one of exts,
// sorted by path.
func ListTraces(root string, exts []string) ([]string, []error, error) {
	if root == "" {
		return nil, nil, errors.New("root directory is required")
	}

	var (
		paths    []string
		warnings []error
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			warnings = append(warnings, fmt.Errorf("walk %s: %w", path, walkErr))
			return nil
		}
		if d.IsDir() || !hasExtension(d.Name(), exts) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, warnings, err
	}

	sort.Strings(paths)
	return paths, warnings, nil
}

// ScanTraces analyzes every trace under Root for Observer. A trace that
// fails to parse or holds no events for the observer becomes a warning;
// the remaining traces are still reported.
func ScanTraces(ctx context.Context, opts ScanOptions) (ScanResult, error) {
	if opts.Observer == "" {
		return ScanResult{}, errors.New("observer is required")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}

	paths, warnings, err := ListTraces(opts.Root, opts.Extensions)
	if err != nil {
		return ScanResult{}, err
	}
	log.Debug(ctx, "traces discovered", logging.String("root", opts.Root), logging.Int("count", len(paths)))

	reports := make([]*occupancy.Report, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			report, err := occupancy.Analyze(gctx, path, opts.Observer, occupancy.Options{Logger: opts.Logger})
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn(gctx, "trace skipped", logging.String("trace", path), logging.Any("error", err))
				mu.Lock()
				warnings = append(warnings, fmt.Errorf("analyze %s: %w", path, err))
				mu.Unlock()
				return nil
			}
			reports[i] = &report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScanResult{}, err
	}

	result := ScanResult{Warnings: warnings}
	for _, r := range reports {
		if r != nil {
			result.Reports = append(result.Reports, *r)
		}
	}
	return result, nil
}

func hasExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range exts {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
