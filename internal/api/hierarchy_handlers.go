package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/survey-integrity-scorer/internal/aggregation"
	"github.com/ignite/survey-integrity-scorer/internal/pkg/httputil"
	"github.com/ignite/survey-integrity-scorer/internal/store"
)

// hierarchyAPI serves the Survey -> Platform -> Respondent -> Session
// read tree and the parallel fraud/grid/timing/text-analysis summary
// trees of spec §6.1.
type hierarchyAPI struct {
	store store.Store
	agg   *aggregation.Service
}

// RegisterRoutes mounts the hierarchical read API under the given router.
func (h *hierarchyAPI) RegisterRoutes(r chi.Router) {
	r.Get("/surveys", h.listSurveys)
	r.Route("/surveys/{surveyID}", func(r chi.Router) {
		r.Get("/", h.surveyDetail)
		r.Get("/summary", h.surveySummary)
		r.Route("/platforms", func(r chi.Router) {
			r.Get("/", h.listSessionsAsPlatforms)
			r.Route("/{platformID}", func(r chi.Router) {
				r.Get("/", h.platformDetail)
				r.Get("/summary", h.platformSummary)
				r.Route("/respondents", func(r chi.Router) {
					r.Get("/", h.listSessionsAsRespondents)
					r.Route("/{respondentID}", func(r chi.Router) {
						r.Get("/", h.respondentDetail)
						r.Get("/summary", h.respondentSummary)
						r.Route("/sessions", func(r chi.Router) {
							r.Get("/", h.listSessions)
							r.Get("/{sessionID}", h.sessionDetail)
						})
					})
				})
			})
		})
	})

	r.Get("/fraud/summary", h.fraudSummary)
	r.Get("/grid-analysis/summary", h.gridSummary)
	r.Get("/timing-analysis/summary", h.timingSummary)
	r.Get("/text-analysis/summary", h.textSummary)
}

func (h *hierarchyAPI) filterFromRequest(r *http.Request, w http.ResponseWriter) (store.HierarchyFilter, bool) {
	filter, ok := parseHierarchyFilter(w, r)
	if !ok {
		return filter, false
	}
	filter.SurveyID = chi.URLParam(r, "surveyID")
	if filter.SurveyID == "" {
		filter.SurveyID = r.URL.Query().Get("survey_id")
	}
	filter.PlatformID = chi.URLParam(r, "platformID")
	if filter.PlatformID == "" {
		filter.PlatformID = r.URL.Query().Get("platform_id")
	}
	filter.RespondentID = chi.URLParam(r, "respondentID")
	if filter.RespondentID == "" {
		filter.RespondentID = r.URL.Query().Get("respondent_id")
	}
	if filter.SurveyID == "" {
		httputil.BadRequest(w, "survey_id is required")
		return filter, false
	}
	return filter, true
}

// listSurveys serves the bare `/surveys` root: every distinct survey
// ID this store has ever seen a session for (§6.1).
func (h *hierarchyAPI) listSurveys(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ListSurveyIDs(r.Context())
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.OK(w, listResponse{Items: ids, Total: len(ids)})
}

// surveyDetail, platformDetail, and respondentDetail serve the bare
// (non-/summary) hierarchy-node paths of §6.1: confirmation that the
// node exists plus its immediate SessionStats rollup, distinct from
// the bot/fraud aggregates /summary computes.
func (h *hierarchyAPI) surveyDetail(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filterFromRequest(r, w)
	if !ok {
		return
	}
	h.hierarchyNode(w, r, filter, filter.SurveyID)
}

func (h *hierarchyAPI) platformDetail(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filterFromRequest(r, w)
	if !ok {
		return
	}
	h.hierarchyNode(w, r, filter, filter.PlatformID)
}

func (h *hierarchyAPI) respondentDetail(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filterFromRequest(r, w)
	if !ok {
		return
	}
	h.hierarchyNode(w, r, filter, filter.RespondentID)
}

func (h *hierarchyAPI) hierarchyNode(w http.ResponseWriter, r *http.Request, filter store.HierarchyFilter, id string) {
	stats, err := h.store.SessionStats(r.Context(), filter)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.OK(w, hierarchyNodeResponse{
		ID:                   id,
		TotalSessions:        stats.TotalSessions,
		TotalRespondents:     stats.TotalRespondents,
		TotalPlatforms:       stats.TotalPlatforms,
		PlatformDistribution: stats.PlatformDistribution,
	})
}

func (h *hierarchyAPI) surveySummary(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filterFromRequest(r, w)
	if !ok {
		return
	}
	summary, err := h.agg.Summarize(r.Context(), filter)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.OK(w, summary)
}

func (h *hierarchyAPI) platformSummary(w http.ResponseWriter, r *http.Request) {
	h.surveySummary(w, r)
}

func (h *hierarchyAPI) respondentSummary(w http.ResponseWriter, r *http.Request) {
	h.surveySummary(w, r)
}

func (h *hierarchyAPI) listSessions(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filterFromRequest(r, w)
	if !ok {
		return
	}
	sessions, total, err := h.store.ListByHierarchy(r.Context(), filter)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.OK(w, listResponse{Items: sessions, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// listSessionsAsPlatforms and listSessionsAsRespondents reuse the
// same index-only ListByHierarchy scan to surface the distinct
// platform/respondent IDs visible in the requested (and paginated)
// slice, rather than adding a second Store method for what is really
// a projection of the same rows.
func (h *hierarchyAPI) listSessionsAsPlatforms(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filterFromRequest(r, w)
	if !ok {
		return
	}
	sessions, total, err := h.store.ListByHierarchy(r.Context(), filter)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	seen := map[string]bool{}
	var ids []string
	for _, s := range sessions {
		if !seen[s.PlatformID] {
			seen[s.PlatformID] = true
			ids = append(ids, s.PlatformID)
		}
	}
	httputil.OK(w, listResponse{Items: ids, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *hierarchyAPI) listSessionsAsRespondents(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filterFromRequest(r, w)
	if !ok {
		return
	}
	sessions, total, err := h.store.ListByHierarchy(r.Context(), filter)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	seen := map[string]bool{}
	var ids []string
	for _, s := range sessions {
		if !seen[s.RespondentID] {
			seen[s.RespondentID] = true
			ids = append(ids, s.RespondentID)
		}
	}
	httputil.OK(w, listResponse{Items: ids, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *hierarchyAPI) sessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.store.ReadSession(r.Context(), sessionID)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	detection, _ := h.store.LatestDetectionResult(r.Context(), sessionID)
	fraudIndicator, _ := h.store.LatestFraudIndicator(r.Context(), sessionID)

	httputil.OK(w, sessionDetailResponse{
		Session:   sess,
		Detection: detection,
		Fraud:     fraudIndicator,
	})
}

func (h *hierarchyAPI) fraudSummary(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filterFromRequest(r, w)
	if !ok {
		return
	}
	summary, err := h.agg.SummarizeFraud(r.Context(), filter)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.OK(w, summary)
}

func (h *hierarchyAPI) gridSummary(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filterFromRequest(r, w)
	if !ok {
		return
	}
	summary, err := h.agg.SummarizeGrid(r.Context(), filter)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.OK(w, summary)
}

func (h *hierarchyAPI) timingSummary(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filterFromRequest(r, w)
	if !ok {
		return
	}
	summary, err := h.agg.SummarizeTiming(r.Context(), filter)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.OK(w, summary)
}

func (h *hierarchyAPI) textSummary(w http.ResponseWriter, r *http.Request) {
	h.surveySummary(w, r)
}
