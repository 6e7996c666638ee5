package graphservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/starford/cortex/internal/apperr"
	"github.com/starford/cortex/internal/scanner"
	"github.com/starford/cortex/internal/storage"
	"github.com/starford/cortex/internal/syncer"
	"github.com/starford/cortex/internal/testutil"
	"github.com/starford/cortex/internal/validator"
)

type eventLog struct {
	mu    sync.Mutex
	kinds []string
}

func (e *eventLog) publish(kind string, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kinds = append(e.kinds, kind)
}

func (e *eventLog) has(kind string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, k := range e.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func newTestService(t *testing.T, files map[string]string, events *eventLog) (*Service, storage.Provider) {
	t.Helper()

	root, store := testutil.TestWorkspace(t)
	for rel, content := range files {
		if err := store.Write(rel, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	db := testutil.TestDB(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var publish func(string, map[string]any)
	if events != nil {
		publish = events.publish
	}

	svc := New(Deps{
		Store:   store,
		DB:      db,
		Scanner: scanner.New(store, logger, scanner.Options{}),
		Syncer:  syncer.New(store, logger, syncer.Options{}),
		Logger:  logger,
		Root:    root,
		Publish: publish,
	})
	return svc, store
}

func baseWorkspace() map[string]string {
	return map[string]string{
		"docs/knowledge/a.md": "---\nid: kno-a\nstatus: active\ntags: [guide]\n---\n\n# Alpha\n\nSee [[kno-b]] and [[kno-missing]].\n",
		"docs/knowledge/b.md": "---\nid: kno-b\nstatus: active\n---\n\n# Beta\n\nBody text.\n",
		"docs/knowledge/c.md": "---\nid: kno-canary\nstatus: active\n---\n\n# Canary\n",
	}
}

func TestRefresh_EndToEnd(t *testing.T) {
	events := &eventLog{}
	svc, _ := newTestService(t, baseWorkspace(), events)

	report, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if report.Metrics.TotalEntries != 3 {
		t.Errorf("TotalEntries = %d, want 3", report.Metrics.TotalEntries)
	}
	if report.Metrics.TotalLinks != 2 || report.Metrics.ValidLinks != 1 || report.Metrics.BrokenLinks != 1 {
		t.Errorf("links = %d total / %d valid / %d broken, want 2/1/1",
			report.Metrics.TotalLinks, report.Metrics.ValidLinks, report.Metrics.BrokenLinks)
	}

	entry, err := svc.GetEntry(context.Background(), "kno-a")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if len(entry.Links) != 2 {
		t.Fatalf("len(Links) = %d, want 2", len(entry.Links))
	}
	if entry.Links[0].TargetID != "kno-b" {
		t.Errorf("link target = %q, want kno-b", entry.Links[0].TargetID)
	}

	if got := svc.Report(); got != report {
		t.Error("Report() did not return the latest pipeline report")
	}
	if !events.has("pipeline.refreshed") {
		t.Errorf("events = %v, want pipeline.refreshed", events.kinds)
	}
}

func TestGetEntry_NotFound(t *testing.T) {
	svc, _ := newTestService(t, baseWorkspace(), nil)
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	_, err := svc.GetEntry(context.Background(), "kno-nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want apperr.ErrNotFound", err)
	}
}

func TestBacklinks(t *testing.T) {
	svc, _ := newTestService(t, baseWorkspace(), nil)
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	bl, err := svc.Backlinks(context.Background(), "kno-b")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 1 || bl[0].SourceID != "kno-a" {
		t.Errorf("backlinks = %+v, want one from kno-a", bl)
	}

	if _, err := svc.Backlinks(context.Background(), "kno-nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want apperr.ErrNotFound for an unknown entry", err)
	}
}

func TestGraph(t *testing.T) {
	svc, _ := newTestService(t, baseWorkspace(), nil)
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	nodes, links, err := svc.Graph(context.Background())
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 3 {
		t.Errorf("len(nodes) = %d, want 3", len(nodes))
	}
	if len(links) != 2 {
		t.Errorf("len(links) = %d, want 2", len(links))
	}
}

func TestSyncSources_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"r1"`)
		fmt.Fprint(w, "Synced remote content.")
	}))
	defer srv.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	files := baseWorkspace()
	files["docs/knowledge/sourced.md"] = "---\nid: kno-sourced\nstatus: active\nsources:\n  - url: " + srv.URL + "\n---\n\n# Sourced\n\nStale local body.\n"
	files["docs/knowledge/failing.md"] = "---\nid: kno-failing\nstatus: active\nsources:\n  - url: " + deadURL + "\n---\n\n# Failing\n"

	events := &eventLog{}
	svc, store := newTestService(t, files, events)

	out, report, err := svc.SyncSources(context.Background())
	if err != nil {
		t.Fatalf("SyncSources: %v", err)
	}
	if out.Synced != 1 || out.Updated != 1 || out.Failed != 1 {
		t.Errorf("outcome = %+v, want 1 synced, 1 updated, 1 failed", out)
	}
	if report == nil {
		t.Fatal("report is nil after sync")
	}

	data, err := store.Read("docs/knowledge/sourced.md")
	if err != nil {
		t.Fatalf("read synced file: %v", err)
	}
	if !strings.Contains(string(data), "Synced remote content.") {
		t.Errorf("synced file missing remote content:\n%s", data)
	}
	if strings.Contains(string(data), "Stale local body.") {
		t.Errorf("synced file kept stale body:\n%s", data)
	}

	// The read model carries the refreshed sync metadata even though the
	// file's frontmatter keeps its original bytes.
	entry, err := svc.GetEntry(context.Background(), "kno-sourced")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if len(entry.Sources) != 1 || entry.Sources[0].ETag != `"r1"` {
		t.Errorf("Sources = %+v, want refreshed etag %q", entry.Sources, `"r1"`)
	}
	if entry.Sources[0].LastSynced == nil {
		t.Error("LastSynced is nil, want refreshed timestamp")
	}

	if !events.has("sources.synced") || !events.has("pipeline.refreshed") {
		t.Errorf("events = %v, want sources.synced and pipeline.refreshed", events.kinds)
	}
}

func TestProbe(t *testing.T) {
	svc, _ := newTestService(t, baseWorkspace(), nil)

	res := svc.Probe(context.Background())
	if !res.Passed {
		t.Errorf("Passed = false, want true (message: %s)", res.Message)
	}

	noCanary := map[string]string{
		"docs/knowledge/a.md": "---\nid: kno-a\nstatus: active\n---\n\n# Alpha\n",
	}
	svc2, _ := newTestService(t, noCanary, nil)
	res = svc2.Probe(context.Background())
	if res.Passed {
		t.Error("Passed = true without a canary entry, want false")
	}
}

func TestExportReport_RunsPipelineWhenNeeded(t *testing.T) {
	svc, store := newTestService(t, baseWorkspace(), nil)

	mdPath, jsonPath, err := svc.ExportReport(context.Background())
	if err != nil {
		t.Fatalf("ExportReport: %v", err)
	}
	if !strings.HasPrefix(mdPath, "reports/health-report-") || !strings.HasSuffix(mdPath, ".md") {
		t.Errorf("mdPath = %q, want reports/health-report-*.md", mdPath)
	}
	if !store.Exists(mdPath) || !store.Exists(jsonPath) {
		t.Fatalf("exported files missing: %s, %s", mdPath, jsonPath)
	}

	raw, err := store.Read(jsonPath)
	if err != nil {
		t.Fatalf("read json report: %v", err)
	}
	var rep validator.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		t.Fatalf("decode json report: %v", err)
	}
	if rep.Metrics.TotalEntries != 3 {
		t.Errorf("TotalEntries = %d, want 3", rep.Metrics.TotalEntries)
	}

	md, _ := store.Read(mdPath)
	if !strings.Contains(string(md), "# Knowledge Graph Health Report") {
		t.Errorf("markdown report missing title:\n%s", md)
	}
}
