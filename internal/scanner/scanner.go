// Package scanner walks the knowledge directory and turns frontmatter-bearing
// Markdown files into entries.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/starford/cortex/internal/analyzer"
	"github.com/starford/cortex/internal/apperr"
	"github.com/starford/cortex/internal/models"
	"github.com/starford/cortex/internal/parser"
	"github.com/starford/cortex/internal/storage"
)

// DefaultDir is the knowledge base location under the workspace root.
const DefaultDir = "docs/knowledge"

// Options tune how a Scanner walks the knowledge base. The worker pool is an
// optimization only: output is identical with it on or off.
type Options struct {
	// Dir is the scan directory relative to the workspace root.
	// DefaultDir when empty.
	Dir string
	// Parallel enables the worker pool once Threshold files are found.
	Parallel bool
	// Workers is the pool size; 4 when zero or negative.
	Workers int
	// Threshold is the minimum file count before the pool is used.
	Threshold int
}

// Scanner builds knowledge entries from the Markdown files in a workspace.
type Scanner struct {
	store  storage.Provider
	logger *slog.Logger
	opts   Options
}

// New creates a Scanner over the given workspace store.
func New(store storage.Provider, logger *slog.Logger, opts Options) *Scanner {
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Scanner{store: store, logger: logger, opts: opts}
}

// Scan returns one entry per parseable document under the scan directory,
// sorted by file path. A missing directory yields an empty result. Files
// that fail the schema are skipped with a logged warning; one malformed
// file never aborts the batch.
func (s *Scanner) Scan(ctx context.Context) ([]models.Entry, error) {
	files, err := s.store.List(s.opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("scanner: list %s: %w", s.opts.Dir, err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	// Each file gets its own result slot, so completion order cannot
	// duplicate or drop entries.
	results := make([]*models.Entry, len(files))

	if s.opts.Parallel && len(files) >= s.opts.Threshold {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Workers)
		for i, f := range files {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = s.scanFile(f.Path)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("scanner: %w", err)
		}
	} else {
		for i, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("scanner: %w", err)
			}
			results[i] = s.scanFile(f.Path)
		}
	}

	out := make([]models.Entry, 0, len(results))
	for _, e := range results {
		if e != nil {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out, nil
}

// scanFile reads and parses one file. A nil return means the file was
// skipped; the reason has already been logged.
func (s *Scanner) scanFile(path string) *models.Entry {
	data, err := s.store.Read(path)
	if err != nil {
		s.logger.Warn("scan: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}

	doc, err := parser.Parse(data)
	if err != nil {
		if errors.Is(err, apperr.ErrStructural) {
			s.logger.Error("scan: structural violation", slog.String("path", path), slog.String("error", err.Error()))
		} else {
			s.logger.Warn("scan: skipped", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	}
	for _, w := range doc.Warnings {
		s.logger.Warn("scan: frontmatter warning", slog.String("path", path), slog.String("detail", w))
	}

	entry := models.Entry{
		ID:            doc.ID,
		Title:         doc.Title,
		Status:        doc.Status,
		Tags:          doc.Tags,
		GoldenPaths:   doc.GoldenPaths,
		Sources:       doc.Sources,
		CachedContent: doc.Body,
		FilePath:      path,
	}
	if entry.CachedContent != "" {
		entry = entry.WithLinks(analyzer.Extract(entry.ID, entry.CachedContent))
	}
	return &entry
}
