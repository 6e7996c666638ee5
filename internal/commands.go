package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/cortex/internal/graphservice"
	"github.com/starford/cortex/internal/index"
	"github.com/starford/cortex/internal/mcpserver"
	"github.com/starford/cortex/internal/probe"
	"github.com/starford/cortex/internal/scanner"
	"github.com/starford/cortex/internal/storage"
	"github.com/starford/cortex/internal/syncer"
	"github.com/starford/cortex/internal/validator"
)

// core is the assembled pipeline stack shared by the server and the one-shot
// commands.
type core struct {
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	svc    *graphservice.Service
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// newStore ensures the knowledge directory exists and opens the workspace.
func newStore(cfg *Config) (*storage.FS, error) {
	if err := os.MkdirAll(filepath.Join(cfg.Workspace.Root, cfg.Workspace.KnowledgeDir), 0o755); err != nil {
		return nil, fmt.Errorf("create knowledge dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

func scanOptions(cfg *Config) scanner.Options {
	return scanner.Options{
		Dir:       cfg.Workspace.KnowledgeDir,
		Parallel:  cfg.Scan.Parallel,
		Workers:   cfg.Scan.Workers,
		Threshold: cfg.Scan.Threshold,
	}
}

func syncOptions(cfg *Config) syncer.Options {
	return syncer.Options{
		Timeout:      time.Duration(cfg.Sync.TimeoutSeconds) * time.Second,
		MaxBodyBytes: cfg.Sync.MaxBodyBytes,
	}
}

// buildCore assembles storage, the SQLite index, and the graph service.
// Log output goes to logW; one-shot commands pass stderr so stdout stays
// clean for their reports.
func buildCore(cfg *Config, logW io.Writer, publish func(string, map[string]any)) (*core, error) {
	logger := newLogger(cfg, logW)

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	svc := graphservice.New(graphservice.Deps{
		Store:    store,
		DB:       db,
		Scanner:  scanner.New(store, logger, scanOptions(cfg)),
		Syncer:   syncer.New(store, logger, syncOptions(cfg)),
		Logger:   logger,
		Root:     store.Root(),
		CanaryID: cfg.Probe.CanaryID,
		Publish:  publish,
	})

	return &core{logger: logger, store: store, db: db, svc: svc}, nil
}

func (c *core) Close() {
	if err := c.db.Close(); err != nil {
		c.logger.Warn("close index", slog.String("error", err.Error()))
	}
}

// RunScan discovers and parses every knowledge document and prints one line
// per entry. It does not touch the read model.
func RunScan(ctx context.Context, cfg *Config) error {
	logger := newLogger(cfg, os.Stderr)
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	entries, err := scanner.New(store, logger, scanOptions(cfg)).Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\n", e.ID, e.Status, e.FilePath)
	}
	logger.Info("scan complete", slog.Int("entries", len(entries)))
	return nil
}

// RunValidate runs the full pipeline once and prints the health report as
// Markdown. A failing graph returns an error so the process exits non-zero,
// which is what CI hooks key off.
func RunValidate(ctx context.Context, cfg *Config) error {
	c, err := buildCore(cfg, os.Stderr, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	report, err := c.svc.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	fmt.Print(validator.RenderMarkdown(report))

	if !report.IsHealthy {
		return fmt.Errorf("validate: graph unhealthy: %s", strings.Join(report.CriticalIssues, "; "))
	}
	return nil
}

// RunSync refreshes every entry with external sources and rebuilds the
// graph. Any failed entry makes the command exit non-zero.
func RunSync(ctx context.Context, cfg *Config) error {
	c, err := buildCore(cfg, os.Stderr, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	outcome, _, err := c.svc.SyncSources(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	fmt.Printf("synced %d entries (%d updated, %d failed)\n", outcome.Synced, outcome.Updated, outcome.Failed)

	if outcome.Failed > 0 {
		return fmt.Errorf("sync: %d entries failed", outcome.Failed)
	}
	return nil
}

// RunProbe runs the canary probe against the live workspace.
func RunProbe(ctx context.Context, cfg *Config) error {
	logger := newLogger(cfg, os.Stderr)
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	res := probe.Run(ctx, scanner.New(store, logger, scanOptions(cfg)), cfg.Probe.CanaryID)
	fmt.Println(res.Message)

	if !res.Passed {
		return fmt.Errorf("probe: failed")
	}
	return nil
}

// RunMCP serves the MCP stdio transport. Logs go to stderr because stdout
// carries the protocol stream.
func RunMCP(ctx context.Context, cfg *Config) error {
	c, err := buildCore(cfg, os.Stderr, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// Populate the read model so query tools work before the first
	// validate_graph call.
	if _, err := c.svc.Refresh(ctx); err != nil {
		c.logger.Warn("initial refresh failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(c.svc).ServeStdio()
}
