package validator

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/cortex/internal/models"
)

func entry(id string, links ...models.Link) models.Entry {
	return models.Entry{ID: id, Title: "Title " + id, Status: models.StatusActive, Links: links}
}

func valid(src, target string) models.Link {
	return models.Link{
		SourceID:       src,
		TargetRaw:      target,
		Type:           models.LinkWikilink,
		LineNumber:     3,
		TargetID:       target,
		TargetResolved: "docs/knowledge/" + target + ".md",
		Status:         models.LinkValid,
	}
}

func broken(src, target string) models.Link {
	return models.Link{
		SourceID:   src,
		TargetRaw:  target,
		Type:       models.LinkWikilink,
		LineNumber: 7,
		Context:    "see " + target,
		Status:     models.LinkBroken,
	}
}

func ambiguous(src, target string) models.Link {
	return models.Link{
		SourceID:   src,
		TargetRaw:  target,
		Type:       models.LinkWikilinkAliased,
		LineNumber: 9,
		Status:     models.LinkAmbiguous,
	}
}

func almostEqual(t *testing.T, got, want float64, what string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func TestValidate_HealthScoring(t *testing.T) {
	// Five entries, four links of which three resolve. A and B link out,
	// C only receives, D and E are isolated.
	entries := []models.Entry{
		entry("kno-a", valid("kno-a", "kno-b"), valid("kno-a", "kno-c")),
		entry("kno-b", valid("kno-b", "kno-c"), broken("kno-b", "kno-x")),
		entry("kno-c"),
		entry("kno-d"),
		entry("kno-e"),
	}

	r := New(entries).Validate()

	if r.Metrics.TotalEntries != 5 || r.Metrics.TotalLinks != 4 {
		t.Fatalf("totals = %d entries / %d links, want 5 / 4", r.Metrics.TotalEntries, r.Metrics.TotalLinks)
	}
	if r.Metrics.ValidLinks != 3 || r.Metrics.BrokenLinks != 1 {
		t.Errorf("valid/broken = %d/%d, want 3/1", r.Metrics.ValidLinks, r.Metrics.BrokenLinks)
	}
	almostEqual(t, r.Metrics.ConnectivityScore, 60.0, "connectivity score")
	almostEqual(t, r.Metrics.LinkHealthScore, 75.0, "link health score")
	almostEqual(t, r.Metrics.OverallScore, 69.0, "overall score")
	if r.IsHealthy {
		t.Error("IsHealthy = true, want false")
	}
}

func TestValidate_EmptyGraph(t *testing.T) {
	r := New(nil).Validate()

	almostEqual(t, r.Metrics.ConnectivityScore, 100.0, "connectivity score")
	almostEqual(t, r.Metrics.LinkHealthScore, 100.0, "link health score")
	almostEqual(t, r.Metrics.OverallScore, 100.0, "overall score")
	if !r.IsHealthy {
		t.Errorf("IsHealthy = false, want true (issues: %v)", r.CriticalIssues)
	}
}

func TestValidate_VacuousLinkHealth(t *testing.T) {
	// Entries without a single link score a perfect 100 on link health,
	// not a division by zero.
	entries := []models.Entry{entry("kno-a"), entry("kno-b")}

	r := New(entries).Validate()

	almostEqual(t, r.Metrics.LinkHealthScore, 100.0, "link health score")
	almostEqual(t, r.Metrics.ConnectivityScore, 0.0, "connectivity score")
}

func TestValidate_OrphanAndDeadEndOverlap(t *testing.T) {
	// An isolated entry is both an orphan and a dead end.
	entries := []models.Entry{
		entry("kno-a", valid("kno-a", "kno-b")),
		entry("kno-b", valid("kno-b", "kno-a")),
		entry("kno-isolated"),
	}

	r := New(entries).Validate()

	if got, want := r.Anomalies.Orphans, []string{"kno-isolated"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Orphans = %v, want %v", got, want)
	}
	if got, want := r.Anomalies.DeadEnds, []string{"kno-isolated"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DeadEnds = %v, want %v", got, want)
	}
}

func TestValidate_BrokenLinkDetails(t *testing.T) {
	entries := []models.Entry{
		entry("kno-a", broken("kno-a", "kno-gone")),
		entry("kno-b", valid("kno-b", "kno-a")),
	}

	r := New(entries).Validate()

	if len(r.Anomalies.BrokenLinks) != 1 {
		t.Fatalf("len(BrokenLinks) = %d, want 1", len(r.Anomalies.BrokenLinks))
	}
	d := r.Anomalies.BrokenLinks[0]
	if d.SourceID != "kno-a" || d.TargetRaw != "kno-gone" || d.LineNumber != 7 {
		t.Errorf("detail = %+v, want source kno-a, target kno-gone, line 7", d)
	}
	if d.Context != "see kno-gone" {
		t.Errorf("Context = %q, want %q", d.Context, "see kno-gone")
	}
}

func TestValidate_TopHubsOrderingAndLimit(t *testing.T) {
	entries := []models.Entry{
		entry("src-1", valid("src-1", "hub-1"), valid("src-1", "hub-2"), valid("src-1", "hub-3")),
		entry("src-2", valid("src-2", "hub-1"), valid("src-2", "hub-2"), valid("src-2", "hub-4")),
		entry("src-3", valid("src-3", "hub-1"), valid("src-3", "hub-3"), valid("src-3", "hub-5")),
		entry("src-4", valid("src-4", "hub-6")),
		entry("src-5", valid("src-5", "hub-7")),
		entry("hub-1"), entry("hub-2"), entry("hub-3"), entry("hub-4"),
		entry("hub-5"), entry("hub-6"), entry("hub-7"),
	}

	r := New(entries).Validate()

	if len(r.TopHubs) != DefaultTopHubs {
		t.Fatalf("len(TopHubs) = %d, want %d", len(r.TopHubs), DefaultTopHubs)
	}
	wantIDs := []string{"hub-1", "hub-2", "hub-3", "hub-4", "hub-5"}
	wantCounts := []int{3, 2, 2, 1, 1}
	for i, h := range r.TopHubs {
		if h.ID != wantIDs[i] || h.Inbound != wantCounts[i] {
			t.Errorf("TopHubs[%d] = %s/%d, want %s/%d", i, h.ID, h.Inbound, wantIDs[i], wantCounts[i])
		}
	}
	if r.TopHubs[0].Title != "Title hub-1" {
		t.Errorf("TopHubs[0].Title = %q, want %q", r.TopHubs[0].Title, "Title hub-1")
	}
}

func TestValidate_HubLimitOverride(t *testing.T) {
	entries := []models.Entry{
		entry("src-1", valid("src-1", "hub-1"), valid("src-1", "hub-2")),
		entry("hub-1"), entry("hub-2"),
	}

	v := New(entries)
	v.HubLimit = 1
	r := v.Validate()

	if len(r.TopHubs) != 1 {
		t.Fatalf("len(TopHubs) = %d, want 1", len(r.TopHubs))
	}
	if r.TopHubs[0].ID != "hub-1" {
		t.Errorf("TopHubs[0].ID = %q, want %q", r.TopHubs[0].ID, "hub-1")
	}
}

func TestValidate_OrphanRatioWarning(t *testing.T) {
	// A ten-entry chain leaves exactly one entry without inbound links:
	// 10% sits on the warning edge without failing the run.
	ids := []string{"kno-0", "kno-1", "kno-2", "kno-3", "kno-4", "kno-5", "kno-6", "kno-7", "kno-8", "kno-9"}
	entries := make([]models.Entry, 0, len(ids))
	for i, id := range ids {
		if i+1 < len(ids) {
			entries = append(entries, entry(id, valid(id, ids[i+1])))
		} else {
			entries = append(entries, entry(id))
		}
	}

	r := New(entries).Validate()

	if !r.IsHealthy {
		t.Fatalf("IsHealthy = false, want true (issues: %v)", r.CriticalIssues)
	}
	if len(r.Warnings) == 0 {
		t.Fatal("Warnings is empty, want an orphan ratio warning")
	}
	if !strings.Contains(r.Warnings[0], "orphan ratio") {
		t.Errorf("Warnings[0] = %q, want an orphan ratio warning", r.Warnings[0])
	}
}

func TestValidate_OrphanRatioFailure(t *testing.T) {
	// Two of three entries have no inbound links; 66% is far past the
	// failure limit even though every link resolves.
	entries := []models.Entry{
		entry("kno-a", valid("kno-a", "kno-b")),
		entry("kno-b"),
		entry("kno-c"),
	}

	r := New(entries).Validate()

	if r.IsHealthy {
		t.Error("IsHealthy = true, want false")
	}
	found := false
	for _, issue := range r.CriticalIssues {
		if strings.Contains(issue, "orphan ratio") {
			found = true
		}
	}
	if !found {
		t.Errorf("CriticalIssues = %v, want an orphan ratio failure", r.CriticalIssues)
	}
}

func TestValidate_ScoreWarningBand(t *testing.T) {
	// A fully connected ring with three ambiguous links lands the overall
	// score between the warning and failure thresholds.
	entries := []models.Entry{
		entry("kno-a",
			valid("kno-a", "kno-b"),
			ambiguous("kno-a", "Dup"),
			ambiguous("kno-a", "Dup"),
			ambiguous("kno-a", "Dup")),
		entry("kno-b", valid("kno-b", "kno-c")),
		entry("kno-c", valid("kno-c", "kno-d")),
		entry("kno-d", valid("kno-d", "kno-a")),
	}

	r := New(entries).Validate()

	if !r.IsHealthy {
		t.Fatalf("IsHealthy = false, want true (issues: %v)", r.CriticalIssues)
	}
	if r.Metrics.OverallScore >= scoreWarnBelow || r.Metrics.OverallScore < scoreFailBelow {
		t.Fatalf("OverallScore = %.2f, want within [%.0f, %.0f)", r.Metrics.OverallScore, scoreFailBelow, scoreWarnBelow)
	}
	foundScore, foundAmbiguous := false, false
	for _, w := range r.Warnings {
		if strings.Contains(w, "overall health score") {
			foundScore = true
		}
		if strings.Contains(w, "ambiguous") {
			foundAmbiguous = true
		}
	}
	if !foundScore || !foundAmbiguous {
		t.Errorf("Warnings = %v, want a score warning and an ambiguity warning", r.Warnings)
	}
}

func TestValidate_AmbiguousLinksDoNotFailTheRun(t *testing.T) {
	entries := []models.Entry{
		entry("kno-a", valid("kno-a", "kno-b"), valid("kno-a", "kno-b"), valid("kno-a", "kno-b"), ambiguous("kno-a", "Dup")),
		entry("kno-b", valid("kno-b", "kno-a")),
	}

	r := New(entries).Validate()

	if !r.IsHealthy {
		t.Errorf("IsHealthy = false, want true (issues: %v)", r.CriticalIssues)
	}
	if r.Metrics.AmbiguousLinks != 1 {
		t.Errorf("AmbiguousLinks = %d, want 1", r.Metrics.AmbiguousLinks)
	}
	if len(r.Anomalies.AmbiguousLinks) != 1 {
		t.Errorf("len(Anomalies.AmbiguousLinks) = %d, want 1", len(r.Anomalies.AmbiguousLinks))
	}
}

func TestValidate_Deterministic(t *testing.T) {
	entries := []models.Entry{
		entry("kno-a", valid("kno-a", "kno-b"), broken("kno-a", "kno-x")),
		entry("kno-b", valid("kno-b", "kno-a")),
		entry("kno-c"),
	}

	first := New(entries).Validate()
	for i := 0; i < 5; i++ {
		next := New(entries).Validate()
		next.GeneratedAt = first.GeneratedAt
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d produced a different report", i)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	entries := []models.Entry{
		entry("kno-a", valid("kno-a", "kno-b"), broken("kno-a", "kno-x")),
		entry("kno-b"),
		entry("kno-c"),
	}

	md := RenderMarkdown(New(entries).Validate())

	for _, want := range []string{
		"# Knowledge Graph Health Report",
		"## Summary",
		"- Entries: 3",
		"- Links: 2 (1 valid, 1 broken, 0 ambiguous)",
		"**UNHEALTHY**",
		"## Top Hubs",
		"| 1 | kno-b | Title kno-b | 1 |",
		"## Critical Issues",
		"## Broken Links",
		"| kno-a | kno-x | 7 |",
		"## Orphans",
		"- kno-a",
		"## Dead Ends",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
}

func TestRenderMarkdown_NoHubs(t *testing.T) {
	md := RenderMarkdown(New([]models.Entry{entry("kno-a")}).Validate())

	if !strings.Contains(md, "No entries have inbound links yet.") {
		t.Errorf("report missing empty-hub note:\n%s", md)
	}
}
