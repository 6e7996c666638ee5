// Package syncer refreshes entry content from the external sources declared
// in frontmatter.
//
// Each source gets exactly one conditional GET per sync. A 304 is a no-op
// for that source; a 200 replaces the document body through a merge that
// keeps frontmatter and Golden Path blocks byte-identical. Any other
// outcome aborts the entry's remaining sources with the on-disk file
// untouched. There are no retries.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/cortex/internal/models"
	"github.com/starford/cortex/internal/storage"
)

// Defaults for the HTTP client. A sync either completes within the timeout
// or fails; slow sources are a source problem, not a reason to hang a batch.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 10 << 20
)

// Options tunes the outbound HTTP behavior.
type Options struct {
	// Timeout bounds each request end to end. Defaults to DefaultTimeout.
	Timeout time.Duration
	// MaxBodyBytes caps accepted response bodies. Defaults to
	// DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Syncer fetches remote sources and writes merged content back through the
// workspace store.
type Syncer struct {
	store   storage.Provider
	client  *http.Client
	logger  *slog.Logger
	maxBody int64
	now     func() time.Time
}

// New builds a Syncer over the given store.
func New(store storage.Provider, logger *slog.Logger, opts Options) *Syncer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Syncer{
		store:   store,
		client:  &http.Client{Timeout: opts.Timeout},
		logger:  logger,
		maxBody: opts.MaxBodyBytes,
		now:     time.Now,
	}
}

// SyncEntry fetches every source declared on the entry, in order, and merges
// fresh content into the entry's backing file. It returns the entry with
// refreshed source metadata and reports whether the file was rewritten.
//
// The failure contract is strict: the first failing source aborts the rest
// and leaves the file exactly as it was, with no partial-source commit.
// A caller syncing a batch of entries is expected to catch per-entry errors
// and carry on.
func (s *Syncer) SyncEntry(ctx context.Context, entry models.Entry) (models.Entry, bool, error) {
	if len(entry.Sources) == 0 {
		return entry, false, nil
	}

	original, err := s.store.Read(entry.FilePath)
	if err != nil {
		return entry, false, fmt.Errorf("syncer: read %s: %w", entry.FilePath, err)
	}

	content := string(original)
	sources := make([]models.Source, len(entry.Sources))
	copy(sources, entry.Sources)

	fetched := false
	for i, src := range sources {
		res, err := s.fetch(ctx, src.URL, src.ETag)
		if err != nil {
			return entry, false, err
		}
		if res.notModified {
			// A 304 is not a sync event: etag and last_synced stay put.
			s.logger.Debug("syncer: source unchanged", slog.String("entry", entry.ID), slog.String("url", src.URL))
			continue
		}

		now := s.now().UTC()
		sources[i].ETag = res.etag
		sources[i].LastSynced = &now
		content = Merge(content, res.content)
		fetched = true
		s.logger.Info("syncer: source refreshed",
			slog.String("entry", entry.ID), slog.String("url", src.URL),
			slog.String("etag", res.etag), slog.Int("bytes", len(res.content)))
	}

	updated := entry.WithSources(sources)
	if !fetched || content == string(original) {
		return updated, false, nil
	}

	if err := s.store.Write(entry.FilePath, []byte(content)); err != nil {
		return entry, false, fmt.Errorf("syncer: write %s: %w", entry.FilePath, err)
	}
	return updated, true, nil
}
