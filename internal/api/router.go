package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/cortex/internal/graphservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// workspaceRoot is used to resolve the exported reports directory.
func NewRouter(svc *graphservice.Service, authEnabled bool, token string, sseHandler http.Handler, workspaceRoot string) chi.Router {
	h := NewHandler(svc)
	rh := NewReportsHandler(workspaceRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Entry queries.
	r.Get("/entries", h.ListEntries)
	r.Get("/entries/{id}", h.GetEntry)
	r.Get("/entries/{id}/backlinks", h.Backlinks)

	// Graph and health.
	r.Get("/graph", h.Graph)
	r.Get("/report", h.GetReport)
	r.Get("/reports/{filename}", rh.ServeFile)

	// Pipeline actions.
	r.Post("/refresh", h.Refresh)
	r.Post("/sync", h.Sync)
	r.Post("/probe", h.Probe)
	r.Post("/report/export", h.ExportReport)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
