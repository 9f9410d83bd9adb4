package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
	"github.com/ignite/survey-integrity-scorer/internal/ingest"
	"github.com/ignite/survey-integrity-scorer/internal/pkg/httputil"
	"github.com/ignite/survey-integrity-scorer/internal/scoring"
)

// ingestAPI serves the event-ingest write path and the explicit
// scoring trigger (spec §4.2, §4.4 "run at composite time and on
// explicit trigger").
type ingestAPI struct {
	ingest *ingest.Service
	engine *scoring.Engine
}

// RegisterRoutes mounts the ingest and scoring-trigger routes.
func (a *ingestAPI) RegisterRoutes(r chi.Router) {
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/events", a.appendEvents)
		r.Post("/score", a.triggerScore)
	})
}

type eventPayload struct {
	EventType   string          `json:"event_type"`
	Timestamp   string          `json:"timestamp"`
	Payload     domain.Payload  `json:"payload"`
	ElementID   string          `json:"element_id"`
	ElementType string          `json:"element_type"`
}

type appendEventsRequest struct {
	Events []eventPayload `json:"events"`
}

type appendEventsResponse struct {
	Accepted int `json:"accepted"`
	Total    int `json:"total"`
}

func (a *ingestAPI) appendEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req appendEventsRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	events := make([]domain.Event, 0, len(req.Events))
	for _, e := range req.Events {
		ts, err := time.Parse(time.RFC3339, e.Timestamp)
		if err != nil {
			httputil.BadRequest(w, "invalid timestamp: "+e.Timestamp)
			return
		}
		events = append(events, domain.Event{
			EventType:   domain.EventType(e.EventType),
			Timestamp:   ts,
			Payload:     e.Payload,
			ElementID:   e.ElementID,
			ElementType: e.ElementType,
		})
	}

	accepted, total, err := a.ingest.AppendEvents(r.Context(), sessionID, events)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.OK(w, appendEventsResponse{Accepted: accepted, Total: total})
}

func (a *ingestAPI) triggerScore(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	result, err := a.engine.Score(r.Context(), sessionID)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.OK(w, result)
}
