// Package domain holds the core entities and invariants of the
// scoring engine (spec §3): Session, Event, SurveyQuestion,
// SurveyResponse, GridResponseRow, TimingAnalysis, DetectionResult,
// and FraudIndicator.
package domain

import "time"

// SessionStatus is the lifecycle state of a Session. Status only ever
// moves forward: active -> completed | expired.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
)

// forwardTransitions enumerates the legal status moves.
var forwardTransitions = map[SessionStatus]map[SessionStatus]bool{
	SessionActive:    {SessionCompleted: true, SessionExpired: true},
	SessionCompleted: {},
	SessionExpired:   {},
}

// CanTransition reports whether moving from s to next is a legal
// forward-only status change.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if s == next {
		return true
	}
	return forwardTransitions[s][next]
}

// Session identifies one respondent's attempt on one survey via one
// platform (spec §3). (survey_id, platform_id, respondent_id) may
// repeat across sessions; id is globally unique.
type Session struct {
	ID            string
	SurveyID      string
	PlatformID    string
	RespondentID  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Status        SessionStatus
	UserAgent     string
	IPAddress     string

	// DeviceFingerprint is derived deterministically from user_agent +
	// screen + viewport + locale attributes observed on the session
	// (spec §4.4) and stored here so fraud cross-session comparisons
	// are index-local rather than requiring a recompute per lookup.
	DeviceFingerprint string
}

// HierarchyKey is the composite tuple the Store indexes on (§4.1).
type HierarchyKey struct {
	SurveyID     string
	PlatformID   string
	RespondentID string
}

// Key returns this session's hierarchy key.
func (s Session) Key() HierarchyKey {
	return HierarchyKey{SurveyID: s.SurveyID, PlatformID: s.PlatformID, RespondentID: s.RespondentID}
}
