package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/cortex/internal/apperr"
	"github.com/starford/cortex/internal/graphservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *graphservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *graphservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListEntries handles GET /api/entries.
//
//	@Summary		List entries with optional pagination and filtering
//	@Tags			entries
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			status	query		string	false	"Filter by lifecycle status"	Enums(draft, active, deprecated, archived)
//	@Success		200		{object}	EntryListResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	tag := q.Get("tag")
	status := q.Get("status")

	entries, total, err := h.svc.ListEntries(r.Context(), limit, offset, tag, status)
	if err != nil {
		slog.Error("list entries failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
	})
}

// GetEntry handles GET /api/entries/{id}.
//
//	@Summary		Get a single entry by ID
//	@Tags			entries
//	@Produce		json
//	@Param			id	path		string	true	"Entry ID"
//	@Success		200	{object}	EntryDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get entry failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Backlinks handles GET /api/entries/{id}/backlinks.
//
//	@Summary		List valid inbound links for an entry
//	@Tags			entries
//	@Produce		json
//	@Param			id	path		string	true	"Entry ID"
//	@Success		200	{object}	BacklinksResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	links, err := h.svc.Backlinks(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("backlinks failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backlinks": links,
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the knowledge graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}

// GetReport handles GET /api/report.
//
//	@Summary		Get the latest graph health report
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthReport
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/report [get]
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report := h.svc.Report()
	if report == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no report yet; trigger a refresh first"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Refresh handles POST /api/refresh.
//
//	@Summary		Rescan the workspace and rebuild the graph
//	@Tags			pipeline
//	@Produce		json
//	@Success		200	{object}	HealthReport
//	@Security		BearerAuth
//	@Router			/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Refresh(r.Context())
	if err != nil {
		slog.Error("refresh failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Sync handles POST /api/sync.
//
//	@Summary		Sync external sources and rebuild the graph
//	@Tags			pipeline
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	outcome, report, err := h.svc.SyncSources(r.Context())
	if err != nil {
		slog.Error("sync failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outcome": outcome,
		"report":  report,
	})
}

// Probe handles POST /api/probe.
//
// The probe outcome is carried in the "passed" field; a failing probe is
// still a 200 because the endpoint itself worked.
//
//	@Summary		Run the canary probe against the live workspace
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	ProbeResult
//	@Security		BearerAuth
//	@Router			/probe [post]
func (h *Handler) Probe(w http.ResponseWriter, r *http.Request) {
	result := h.svc.Probe(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// ExportReport handles POST /api/report/export.
//
//	@Summary		Export the health report to markdown and JSON files
//	@Tags			health
//	@Produce		json
//	@Success		201	{object}	ExportResponse
//	@Security		BearerAuth
//	@Router			/report/export [post]
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	mdPath, jsonPath, err := h.svc.ExportReport(r.Context())
	if err != nil {
		slog.Error("export report failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"markdown_path": mdPath,
		"json_path":     jsonPath,
	})
}
