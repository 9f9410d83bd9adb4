package api

import "github.com/ignite/survey-integrity-scorer/internal/domain"

// listResponse wraps a paginated list with the total count so callers
// can drive further pagination (§6.1 limit/offset contract).
type listResponse struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// sessionDetailResponse is the per-session detail payload: the
// session record plus its latest detection and fraud results, if any
// scoring run has completed.
type sessionDetailResponse struct {
	Session   *domain.Session         `json:"session"`
	Detection *domain.DetectionResult `json:"detection,omitempty"`
	Fraud     *domain.FraudIndicator  `json:"fraud,omitempty"`
}

// hierarchyNodeResponse is the bare (non-/summary) detail payload for
// a survey, platform, or respondent node: just enough of the
// SessionStats rollup to confirm the node exists and size it, without
// pulling in the bot/fraud aggregates that /summary computes (§6.1
// "/surveys/{survey_id}" etc. alongside their "/summary" siblings).
type hierarchyNodeResponse struct {
	ID                   string         `json:"id"`
	TotalSessions        int            `json:"total_sessions"`
	TotalRespondents     int            `json:"total_respondents,omitempty"`
	TotalPlatforms       int            `json:"total_platforms,omitempty"`
	PlatformDistribution map[string]int `json:"platform_distribution,omitempty"`
}
