// Package graphservice orchestrates the scan, resolve, and validate
// pipeline and serves graph queries from the SQLite read model.
package graphservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/starford/cortex/internal/checksum"
	"github.com/starford/cortex/internal/index"
	"github.com/starford/cortex/internal/models"
	"github.com/starford/cortex/internal/probe"
	"github.com/starford/cortex/internal/resolver"
	"github.com/starford/cortex/internal/storage"
	"github.com/starford/cortex/internal/validator"
)

// Scanner is the slice of the scan stage the service depends on.
type Scanner interface {
	Scan(ctx context.Context) ([]models.Entry, error)
}

// Syncer is the slice of the sync stage the service depends on.
type Syncer interface {
	SyncEntry(ctx context.Context, entry models.Entry) (models.Entry, bool, error)
}

// SyncOutcome summarizes one batch sync.
type SyncOutcome struct {
	Synced  int `json:"synced"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Deps wires the service's collaborators.
type Deps struct {
	Store    storage.Provider
	DB       index.EntryIndex
	Scanner  Scanner
	Syncer   Syncer
	Logger   *slog.Logger
	Root     string
	CanaryID string

	// Publish receives pipeline lifecycle events. Nil disables publishing.
	Publish func(kind string, data map[string]any)
}

// Service coordinates pipeline runs and read-model queries. Pipeline runs
// are serialized; queries read the last committed snapshot.
type Service struct {
	store   storage.Provider
	db      index.EntryIndex
	scanner Scanner
	syncer  Syncer
	logger  *slog.Logger
	root    string
	canary  string
	publish func(kind string, data map[string]any)

	mu     sync.Mutex
	report *validator.Report
}

// New creates a graph service from its dependencies.
func New(deps Deps) *Service {
	return &Service{
		store:   deps.Store,
		db:      deps.DB,
		scanner: deps.Scanner,
		syncer:  deps.Syncer,
		logger:  deps.Logger,
		root:    deps.Root,
		canary:  deps.CanaryID,
		publish: deps.Publish,
	}
}

// Refresh runs the full pipeline and commits the result as the new
// read-model snapshot, returning the fresh report.
func (s *Service) Refresh(ctx context.Context) (*validator.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx, nil)
}

// refreshLocked is the pipeline body; s.mu must be held. sources, when
// non-nil, overlays refreshed sync metadata onto the scanned entries by ID
// before the snapshot is committed.
func (s *Service) refreshLocked(ctx context.Context, sources map[string][]models.Source) (*validator.Report, error) {
	started := time.Now()

	entries, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("graphservice: scan: %w", err)
	}
	for i, e := range entries {
		if src, ok := sources[e.ID]; ok {
			entries[i] = e.WithSources(src)
		}
	}

	before, err := s.db.Checksums()
	if err != nil {
		return nil, fmt.Errorf("graphservice: read checksums: %w", err)
	}

	resolved := resolver.New(s.store, s.root, s.logger, entries).ResolveAll()
	if err := s.db.ReplaceAll(resolved); err != nil {
		return nil, fmt.Errorf("graphservice: commit snapshot: %w", err)
	}

	report := validator.New(resolved).Validate()
	s.report = report

	changed := 0
	for _, e := range resolved {
		if before[e.ID] != checksum.Sum([]byte(e.CachedContent)) {
			changed++
		}
	}

	s.logger.Info("graphservice: pipeline refreshed",
		slog.Int("entries", len(resolved)),
		slog.Int("changed", changed),
		slog.Int("broken_links", report.Metrics.BrokenLinks),
		slog.Float64("overall_score", report.Metrics.OverallScore),
		slog.Bool("healthy", report.IsHealthy),
		slog.Duration("elapsed", time.Since(started)))

	s.publishEvent("pipeline.refreshed", map[string]any{
		"entries":       len(resolved),
		"changed":       changed,
		"overall_score": report.Metrics.OverallScore,
		"healthy":       report.IsHealthy,
	})
	return report, nil
}

// SyncSources fetches remote content for every entry declaring sources,
// then refreshes the graph. Per-entry sync failures are logged and counted;
// they never abort the batch.
func (s *Service) SyncSources(ctx context.Context) (SyncOutcome, *validator.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.scanner.Scan(ctx)
	if err != nil {
		return SyncOutcome{}, nil, fmt.Errorf("graphservice: scan: %w", err)
	}

	var out SyncOutcome
	refreshed := make(map[string][]models.Source)
	for _, e := range entries {
		if len(e.Sources) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, nil, fmt.Errorf("graphservice: sync: %w", err)
		}

		updated, changed, err := s.syncer.SyncEntry(ctx, e)
		if err != nil {
			out.Failed++
			s.logger.Warn("graphservice: sync entry failed", slog.String("entry", e.ID), slog.String("error", err.Error()))
			continue
		}
		out.Synced++
		if changed {
			out.Updated++
		}
		refreshed[updated.ID] = updated.Sources
	}

	report, err := s.refreshLocked(ctx, refreshed)
	if err != nil {
		return out, nil, err
	}

	s.logger.Info("graphservice: sources synced",
		slog.Int("synced", out.Synced), slog.Int("updated", out.Updated), slog.Int("failed", out.Failed))
	s.publishEvent("sources.synced", map[string]any{
		"synced": out.Synced, "updated": out.Updated, "failed": out.Failed,
	})
	return out, report, nil
}

// Probe runs the canary liveness check against the live workspace.
func (s *Service) Probe(ctx context.Context) probe.Result {
	res := probe.Run(ctx, s.scanner, s.canary)
	if !res.Passed {
		s.logger.Warn("graphservice: probe failed", slog.String("canary", res.CanaryID), slog.String("message", res.Message))
	}
	return res
}

// Report returns the report from the most recent pipeline run, or nil when
// no run has completed yet.
func (s *Service) Report() *validator.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// ExportReport renders the latest report (running the pipeline first if none
// exists) to timestamped Markdown and JSON files under reports/ in the
// workspace, returning the two relative paths.
func (s *Service) ExportReport(ctx context.Context) (string, string, error) {
	s.mu.Lock()
	rep := s.report
	s.mu.Unlock()

	if rep == nil {
		var err error
		rep, err = s.Refresh(ctx)
		if err != nil {
			return "", "", err
		}
	}

	stamp := rep.GeneratedAt.Format("20060102-150405")
	mdPath := filepath.Join("reports", "health-report-"+stamp+".md")
	jsonPath := filepath.Join("reports", "health-report-"+stamp+".json")

	if err := s.store.Write(mdPath, []byte(validator.RenderMarkdown(rep))); err != nil {
		return "", "", fmt.Errorf("graphservice: write report: %w", err)
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("graphservice: encode report: %w", err)
	}
	if err := s.store.Write(jsonPath, data); err != nil {
		return "", "", fmt.Errorf("graphservice: write report: %w", err)
	}

	s.logger.Info("graphservice: report exported", slog.String("markdown", mdPath), slog.String("json", jsonPath))
	return mdPath, jsonPath, nil
}

// GetEntry returns one entry with links from the read model.
func (s *Service) GetEntry(_ context.Context, id string) (*models.Entry, error) {
	return s.db.GetEntry(id)
}

// ListEntries returns one page of entries with the total count for the
// active filter.
func (s *Service) ListEntries(_ context.Context, limit, offset int, tag, status string) ([]models.Entry, int, error) {
	entries, total, err := s.db.ListEntries(limit, offset, tag, status)
	if err != nil {
		return nil, 0, err
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	return entries, total, nil
}

// Backlinks returns every valid link pointing at the given entry. The entry
// must exist.
func (s *Service) Backlinks(_ context.Context, id string) ([]models.Link, error) {
	if _, err := s.db.GetEntry(id); err != nil {
		return nil, err
	}
	links, err := s.db.Backlinks(id)
	if err != nil {
		return nil, err
	}
	if links == nil {
		links = []models.Link{}
	}
	return links, nil
}

// Graph returns the whole graph: every entry (without links attached) and
// every link, for visualization.
func (s *Service) Graph(_ context.Context) ([]models.Entry, []models.Link, error) {
	nodes, err := s.db.AllEntries()
	if err != nil {
		return nil, nil, err
	}
	links, err := s.db.AllLinks()
	if err != nil {
		return nil, nil, err
	}
	if nodes == nil {
		nodes = []models.Entry{}
	}
	if links == nil {
		links = []models.Link{}
	}
	return nodes, links, nil
}

func (s *Service) publishEvent(kind string, data map[string]any) {
	if s.publish == nil {
		return
	}
	s.publish(kind, data)
}
