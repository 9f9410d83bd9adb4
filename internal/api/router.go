// Package api exposes the hierarchical read API of spec §6.1 and the
// event-ingest write path, wired on chi the way the teacher wires its
// own REST surface (RegisterRoutes(r chi.Router) per resource group,
// go-chi/cors for browser callers, chi/middleware for logging and
// panic recovery).
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/survey-integrity-scorer/internal/aggregation"
	"github.com/ignite/survey-integrity-scorer/internal/ingest"
	"github.com/ignite/survey-integrity-scorer/internal/scoring"
	"github.com/ignite/survey-integrity-scorer/internal/store"
)

// Deps bundles everything the HTTP layer needs to serve requests.
type Deps struct {
	Store   store.Store
	Agg     *aggregation.Service
	Ingest  *ingest.Service
	Engine  *scoring.Engine
}

// NewRouter builds the full chi.Mux: CORS, request logging/recovery,
// a health check, and the hierarchical read + ingest routes mounted
// under /api.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler)

	h := &hierarchyAPI{store: deps.Store, agg: deps.Agg}
	ingestAPI := &ingestAPI{ingest: deps.Ingest, engine: deps.Engine}

	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
		ingestAPI.RegisterRoutes(r)
	})

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
