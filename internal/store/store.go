// Package store defines the durable, transactional persistence
// contract for the scoring engine (spec §4.1) and provides two
// implementations: Postgres (production) and Memory (tests and
// reference).
package store

import (
	"context"
	"time"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

// EventFilter narrows a ReadEvents call.
type EventFilter struct {
	Types []domain.EventType
	Since time.Time
	Until time.Time
}

// HierarchyFilter narrows a ListByHierarchy call to a slice of the
// Survey -> Platform -> Respondent hierarchy, with pagination and a
// date range on created_at (spec §6.1).
type HierarchyFilter struct {
	SurveyID     string
	PlatformID   string // optional
	RespondentID string // optional

	DateFrom time.Time // zero value means unbounded
	DateTo   time.Time

	Limit  int
	Offset int
}

// Normalize applies the documented list-endpoint defaults (limit 100,
// max 1000, offset 0).
func (f *HierarchyFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Limit > 1000 {
		f.Limit = 1000
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// VelocityWindow bounds a fraud velocity lookup (§4.4).
type VelocityWindow struct {
	RespondentID        string
	IPAddress           string
	DeviceFingerprint   string
	SurveyID            string
	Since               time.Time
}

// Store is the durable, transactional persistence contract (§4.1).
// All methods are safe for concurrent use. Each cross-session read is
// an independent call; successive reads do not share a read-only
// snapshot, so they may observe writes made in between. No method
// holds a lock after it returns, so none is held across a classifier
// call.
type Store interface {
	// Session lifecycle
	CreateSession(ctx context.Context, surveyID, platformID, respondentID, userAgent, ip string) (*domain.Session, error)
	ReadSession(ctx context.Context, sessionID string) (*domain.Session, error)
	UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error
	SetDeviceFingerprint(ctx context.Context, sessionID, fingerprint string) error
	DeleteSession(ctx context.Context, sessionID string) error

	// Events
	AppendEvents(ctx context.Context, sessionID string, events []domain.Event, cap int) (accepted, total int, err error)
	ReadEvents(ctx context.Context, sessionID string, filter EventFilter) ([]domain.Event, error)

	// Hierarchical listing
	ListByHierarchy(ctx context.Context, filter HierarchyFilter) ([]domain.Session, int, error)
	ListSurveyIDs(ctx context.Context) ([]string, error)

	// Survey content
	CreateQuestion(ctx context.Context, q *domain.SurveyQuestion) error
	ReadQuestions(ctx context.Context, sessionID string) ([]domain.SurveyQuestion, error)
	CreateResponse(ctx context.Context, r *domain.SurveyResponse) error
	UpdateResponseQuality(ctx context.Context, r *domain.SurveyResponse) error
	ReadResponses(ctx context.Context, sessionID string) ([]domain.SurveyResponse, error)
	PriorResponsesForQuestion(ctx context.Context, surveyID, questionID string, before time.Time) ([]domain.SurveyResponse, error)

	// Grid
	WriteGridRows(ctx context.Context, rows []domain.GridResponseRow) error
	ReadGridRows(ctx context.Context, sessionID, questionID string) ([]domain.GridResponseRow, error)
	GridQuestionIDs(ctx context.Context, sessionID string) ([]string, error)

	// Timing
	WriteTimingAnalysis(ctx context.Context, t *domain.TimingAnalysis) error
	ReadTimingAnalyses(ctx context.Context, sessionID string) ([]domain.TimingAnalysis, error)

	// Detection / fraud results (idempotent upserts: detection results
	// keyed by (session_id, created_at), fraud indicators by session_id)
	WriteDetectionResult(ctx context.Context, d *domain.DetectionResult) error
	LatestDetectionResult(ctx context.Context, sessionID string) (*domain.DetectionResult, error)
	WriteFraudIndicator(ctx context.Context, f *domain.FraudIndicator) error
	LatestFraudIndicator(ctx context.Context, sessionID string) (*domain.FraudIndicator, error)

	// Cross-session fraud lookups (§4.4). Each returns
	// (value, ErrUnavailable) on a failed lookup so the caller can
	// record the component as unavailable rather than silently 0.
	CountSessionsByIP(ctx context.Context, ip string, since24h time.Time) (total, today int, err error)
	CountSessionsByFingerprint(ctx context.Context, fingerprint, excludeRespondentID string) (distinctRespondents int, err error)
	OtherResponseTexts(ctx context.Context, surveyID, excludeSessionID string) ([]string, error)
	CountVelocity(ctx context.Context, w VelocityWindow) (int, error)
	// RecentRespondentCountries returns the resolved geo countries for
	// this respondent's other sessions created since the given time,
	// feeding the impossible-travel comparison in the geo sub-score
	// (§4.4). excludeSessionID omits the session currently being scored.
	RecentRespondentCountries(ctx context.Context, respondentID, excludeSessionID string, since time.Time) ([]string, error)

	// Aggregation (index-only scans over hierarchical columns, §4.8)
	Aggregator
}

// Aggregator groups the rollup read methods used by the aggregation
// service, kept as a distinct interface so a future alternate Store
// (e.g. a read replica) can implement just this slice.
type Aggregator interface {
	SessionStats(ctx context.Context, filter HierarchyFilter) (SessionStats, error)
	DetectionStats(ctx context.Context, filter HierarchyFilter) (DetectionStats, error)
	EventStats(ctx context.Context, filter HierarchyFilter) (EventStats, error)
	TextQualityStats(ctx context.Context, filter HierarchyFilter) (TextQualityStats, error)
	FraudStats(ctx context.Context, filter HierarchyFilter) (FraudStats, error)
	GridStats(ctx context.Context, filter HierarchyFilter) (GridStats, error)
	TimingStats(ctx context.Context, filter HierarchyFilter) (TimingStats, error)
}

// SessionStats is the raw count shape the aggregation service rolls
// into a SurveySummary/PlatformSummary/etc (§4.8).
type SessionStats struct {
	TotalSessions        int
	TotalRespondents      int
	TotalPlatforms        int
	PlatformDistribution  map[string]int
}

// DetectionStats is the bot-detection rollup shape (§4.8).
type DetectionStats struct {
	TotalDetections int
	BotCount        int
	HumanCount      int
	SumConfidence   float64
	RiskDistribution map[domain.RiskLevel]int
}

// EventStats is the event-volume rollup shape (§4.8).
type EventStats struct {
	Total          int
	SessionsCounted int
}

// TextQualityStats is the text-quality rollup shape (§4.8).
type TextQualityStats struct {
	TotalResponses int
	SumQuality     float64
	QualityCount   int
	FlaggedCount   int
}

// FraudStats is the fraud rollup shape (§4.8).
type FraudStats struct {
	TotalSessions   int
	DuplicateCount  int
	SumFraudScore   float64
	FlagCounts      map[domain.FraudFlagReason]int
}

// GridStats is the grid-analysis rollup shape (§4.8).
type GridStats struct {
	TotalGroups       int
	StraightLinedCount int
	PatternCount      int
	SumVariance       float64
}

// TimingStats is the per-response timing rollup shape (§4.8).
type TimingStats struct {
	TotalResponses int
	SpeederCount   int
	FlatlinerCount int
	AnomalyCount   int
}

// ErrUnavailable marks a cross-session lookup failure that the caller
// should treat per §4.4/§7: the component scores 0 and is recorded
// "unavailable" rather than aborting the whole fraud computation.
var ErrUnavailable = domain.NewError(domain.KindFraudComponentUnavailable, "cross-session lookup failed", nil)
