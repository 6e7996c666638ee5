package api

import (
	"github.com/starford/cortex/internal/graphservice"
	"github.com/starford/cortex/internal/models"
	"github.com/starford/cortex/internal/probe"
	"github.com/starford/cortex/internal/validator"
)

// EntryDetail is the full entry response type (aliased from the domain layer).
type EntryDetail = models.Entry

// EntryListResponse wraps paginated entry listings.
type EntryListResponse struct {
	Entries []models.Entry `json:"entries" validate:"required"`
	Total   int            `json:"total" example:"42" validate:"required"`
}

// BacklinksResponse wraps the valid inbound links of a single entry.
type BacklinksResponse struct {
	Backlinks []models.Link `json:"backlinks" validate:"required"`
}

// GraphResponse wraps the knowledge graph.
type GraphResponse struct {
	Nodes []models.Entry `json:"nodes" validate:"required"`
	Links []models.Link  `json:"links" validate:"required"`
}

// HealthReport is the graph health report (aliased from the domain layer).
type HealthReport = validator.Report

// ProbeResult is the hallucination probe outcome (aliased from the domain layer).
type ProbeResult = probe.Result

// SyncResponse is returned after syncing external sources.
type SyncResponse struct {
	Outcome graphservice.SyncOutcome `json:"outcome" validate:"required"`
	Report  *validator.Report        `json:"report,omitempty"`
}

// ExportResponse is returned after exporting the health report to disk.
type ExportResponse struct {
	MarkdownPath string `json:"markdown_path" example:"reports/health-report-20260824-120000.md" validate:"required"`
	JSONPath     string `json:"json_path" example:"reports/health-report-20260824-120000.json" validate:"required"`
}
