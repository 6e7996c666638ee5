// Package validator computes health metrics, anomalies, and a pass/fail
// verdict over a resolved entry set. Validation is a pure function of its
// input: nothing here touches the filesystem or mutates entries.
package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/starford/cortex/internal/models"
)

// DefaultTopHubs is how many hub entries a report ranks.
const DefaultTopHubs = 5

// Fixed policy thresholds. These are design constants, not configuration.
const (
	connectivityWeight = 0.4
	linkHealthWeight   = 0.6
	orphanFailRatio    = 0.30
	orphanWarnRatio    = 0.10
	scoreFailBelow     = 70.0
	scoreWarnBelow     = 80.0
)

// HealthMetrics are the aggregate scores for one validation run.
type HealthMetrics struct {
	TotalEntries      int     `json:"total_entries"`
	TotalLinks        int     `json:"total_links"`
	ValidLinks        int     `json:"valid_links"`
	BrokenLinks       int     `json:"broken_links"`
	AmbiguousLinks    int     `json:"ambiguous_links"`
	OrphanCount       int     `json:"orphan_count"`
	DeadEndCount      int     `json:"dead_end_count"`
	ConnectivityScore float64 `json:"connectivity_score"`
	LinkHealthScore   float64 `json:"link_health_score"`
	OverallScore      float64 `json:"overall_score"`
}

// LinkDetail describes one problematic link occurrence, with enough context
// to act on it.
type LinkDetail struct {
	SourceID   string `json:"source_id"`
	TargetRaw  string `json:"target_raw"`
	LineNumber int    `json:"line_number"`
	Context    string `json:"context,omitempty"`
}

// Anomalies groups the structural findings of a run.
type Anomalies struct {
	Orphans        []string     `json:"orphans"`
	DeadEnds       []string     `json:"dead_ends"`
	BrokenLinks    []LinkDetail `json:"broken_links"`
	AmbiguousLinks []LinkDetail `json:"ambiguous_links"`
}

// NodeRanking is one row of the hub ranking.
type NodeRanking struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Inbound int    `json:"inbound"`
}

// Report is the derived, read-only result of one validation run. It is
// recomputed fresh each time and never persisted as authoritative state.
type Report struct {
	GeneratedAt    time.Time     `json:"generated_at"`
	Metrics        HealthMetrics `json:"metrics"`
	Anomalies      Anomalies     `json:"anomalies"`
	TopHubs        []NodeRanking `json:"top_hubs"`
	CriticalIssues []string      `json:"critical_issues"`
	Warnings       []string      `json:"warnings"`
	IsHealthy      bool          `json:"is_healthy"`
}

// Validator inverts the resolved graph and scores it. The inbound index is
// built once, at construction.
type Validator struct {
	entries []models.Entry
	inbound map[string][]string

	// HubLimit caps the hub ranking; DefaultTopHubs unless overridden
	// before Validate.
	HubLimit int
}

// New builds a Validator over a fully resolved entry set.
func New(entries []models.Entry) *Validator {
	v := &Validator{entries: entries, HubLimit: DefaultTopHubs}
	v.inbound = make(map[string][]string)
	for _, e := range entries {
		for _, l := range e.Links {
			if l.Status == models.LinkValid && l.TargetID != "" {
				v.inbound[l.TargetID] = append(v.inbound[l.TargetID], l.SourceID)
			}
		}
	}
	return v
}

// Validate computes the full report for the entry set.
func (v *Validator) Validate() *Report {
	r := &Report{GeneratedAt: time.Now().UTC()}
	m := &r.Metrics
	m.TotalEntries = len(v.entries)

	connected := 0
	for _, e := range v.entries {
		for _, l := range e.Links {
			m.TotalLinks++
			switch l.Status {
			case models.LinkValid:
				m.ValidLinks++
			case models.LinkBroken:
				m.BrokenLinks++
				r.Anomalies.BrokenLinks = append(r.Anomalies.BrokenLinks, linkDetail(l))
			case models.LinkAmbiguous:
				m.AmbiguousLinks++
				r.Anomalies.AmbiguousLinks = append(r.Anomalies.AmbiguousLinks, linkDetail(l))
			}
		}

		in := len(v.inbound[e.ID])
		out := len(e.Links)
		if in > 0 || out > 0 {
			connected++
		}
		if in == 0 {
			r.Anomalies.Orphans = append(r.Anomalies.Orphans, e.ID)
		}
		if out == 0 {
			r.Anomalies.DeadEnds = append(r.Anomalies.DeadEnds, e.ID)
		}
	}
	sort.Strings(r.Anomalies.Orphans)
	sort.Strings(r.Anomalies.DeadEnds)
	m.OrphanCount = len(r.Anomalies.Orphans)
	m.DeadEndCount = len(r.Anomalies.DeadEnds)

	// A graph with no entries or no links is vacuously healthy, not a
	// division-by-zero error.
	m.ConnectivityScore = 100.0
	if m.TotalEntries > 0 {
		m.ConnectivityScore = float64(connected) / float64(m.TotalEntries) * 100
	}
	m.LinkHealthScore = 100.0
	if m.TotalLinks > 0 {
		m.LinkHealthScore = float64(m.ValidLinks) / float64(m.TotalLinks) * 100
	}
	m.OverallScore = connectivityWeight*m.ConnectivityScore + linkHealthWeight*m.LinkHealthScore

	r.TopHubs = v.topHubs()
	v.verdict(r)
	return r
}

func linkDetail(l models.Link) LinkDetail {
	return LinkDetail{SourceID: l.SourceID, TargetRaw: l.TargetRaw, LineNumber: l.LineNumber, Context: l.Context}
}

// topHubs ranks entries by inbound-link count, descending, ties broken by
// entry ID ascending.
func (v *Validator) topHubs() []NodeRanking {
	titles := make(map[string]string, len(v.entries))
	for _, e := range v.entries {
		titles[e.ID] = e.Title
	}

	hubs := make([]NodeRanking, 0, len(v.inbound))
	for id, sources := range v.inbound {
		hubs = append(hubs, NodeRanking{ID: id, Title: titles[id], Inbound: len(sources)})
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Inbound != hubs[j].Inbound {
			return hubs[i].Inbound > hubs[j].Inbound
		}
		return hubs[i].ID < hubs[j].ID
	})

	limit := v.HubLimit
	if limit <= 0 {
		limit = DefaultTopHubs
	}
	if len(hubs) > limit {
		hubs = hubs[:limit]
	}
	return hubs
}

// verdict applies the fixed failure and warning thresholds.
func (v *Validator) verdict(r *Report) {
	m := r.Metrics

	orphanRatio := 0.0
	if m.TotalEntries > 0 {
		orphanRatio = float64(m.OrphanCount) / float64(m.TotalEntries)
	}

	if m.BrokenLinks > 0 {
		r.CriticalIssues = append(r.CriticalIssues,
			fmt.Sprintf("%d broken links require attention", m.BrokenLinks))
	}
	switch {
	case orphanRatio >= orphanFailRatio:
		r.CriticalIssues = append(r.CriticalIssues,
			fmt.Sprintf("orphan ratio %.1f%% exceeds the %.0f%% limit", orphanRatio*100, orphanFailRatio*100))
	case orphanRatio >= orphanWarnRatio:
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("orphan ratio %.1f%% is approaching the %.0f%% limit", orphanRatio*100, orphanFailRatio*100))
	}
	switch {
	case m.OverallScore < scoreFailBelow:
		r.CriticalIssues = append(r.CriticalIssues,
			fmt.Sprintf("overall health score %.1f is below %.0f", m.OverallScore, scoreFailBelow))
	case m.OverallScore < scoreWarnBelow:
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("overall health score %.1f is below the %.0f comfort band", m.OverallScore, scoreWarnBelow))
	}
	if m.AmbiguousLinks > 0 {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("%d ambiguous links need manual disambiguation", m.AmbiguousLinks))
	}

	r.IsHealthy = len(r.CriticalIssues) == 0
}
