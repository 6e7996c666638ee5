package validator

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a human-readable Markdown document,
// suitable for committing next to the knowledge base or posting to a PR.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Knowledge Graph Health Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	writeSummary(&sb, r)
	writeHubs(&sb, r.TopHubs)
	writeIssues(&sb, r)
	writeAnomalies(&sb, &r.Anomalies)

	return sb.String()
}

func writeSummary(sb *strings.Builder, r *Report) {
	m := r.Metrics
	verdict := "HEALTHY"
	if !r.IsHealthy {
		verdict = "UNHEALTHY"
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- Entries: %d\n", m.TotalEntries))
	sb.WriteString(fmt.Sprintf("- Links: %d (%d valid, %d broken, %d ambiguous)\n",
		m.TotalLinks, m.ValidLinks, m.BrokenLinks, m.AmbiguousLinks))
	sb.WriteString(fmt.Sprintf("- Orphans: %d, dead ends: %d\n", m.OrphanCount, m.DeadEndCount))
	sb.WriteString(fmt.Sprintf("- Connectivity score: %.1f\n", m.ConnectivityScore))
	sb.WriteString(fmt.Sprintf("- Link health score: %.1f\n", m.LinkHealthScore))
	sb.WriteString(fmt.Sprintf("- Overall health score: %.1f\n", m.OverallScore))
	sb.WriteString(fmt.Sprintf("- Verdict: **%s**\n\n", verdict))
}

func writeHubs(sb *strings.Builder, hubs []NodeRanking) {
	sb.WriteString("## Top Hubs\n\n")
	if len(hubs) == 0 {
		sb.WriteString("No entries have inbound links yet.\n\n")
		return
	}

	sb.WriteString("| Rank | Entry | Title | Inbound |\n")
	sb.WriteString("|------|-------|-------|--------|\n")
	for i, h := range hubs {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d |\n", i+1, h.ID, h.Title, h.Inbound))
	}
	sb.WriteString("\n")
}

func writeIssues(sb *strings.Builder, r *Report) {
	if len(r.CriticalIssues) > 0 {
		sb.WriteString("## Critical Issues\n\n")
		for _, issue := range r.CriticalIssues {
			sb.WriteString(fmt.Sprintf("- %s\n", issue))
		}
		sb.WriteString("\n")
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}
}

func writeAnomalies(sb *strings.Builder, a *Anomalies) {
	if len(a.BrokenLinks) > 0 {
		sb.WriteString("## Broken Links\n\n")
		writeLinkTable(sb, a.BrokenLinks)
	}
	if len(a.AmbiguousLinks) > 0 {
		sb.WriteString("## Ambiguous Links\n\n")
		writeLinkTable(sb, a.AmbiguousLinks)
	}
	if len(a.Orphans) > 0 {
		sb.WriteString("## Orphans\n\n")
		for _, id := range a.Orphans {
			sb.WriteString(fmt.Sprintf("- %s\n", id))
		}
		sb.WriteString("\n")
	}
	if len(a.DeadEnds) > 0 {
		sb.WriteString("## Dead Ends\n\n")
		for _, id := range a.DeadEnds {
			sb.WriteString(fmt.Sprintf("- %s\n", id))
		}
		sb.WriteString("\n")
	}
}

func writeLinkTable(sb *strings.Builder, details []LinkDetail) {
	sb.WriteString("| Source | Target | Line |\n")
	sb.WriteString("|--------|--------|------|\n")
	for _, d := range details {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", d.SourceID, d.TargetRaw, d.LineNumber))
	}
	sb.WriteString("\n")
}
