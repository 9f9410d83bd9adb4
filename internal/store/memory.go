package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ignite/survey-integrity-scorer/internal/clock"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
	"github.com/ignite/survey-integrity-scorer/internal/idgen"
)

// Memory is an in-memory Store implementation: the same contract as
// Postgres, backed by maps keyed on session ID and filtered by linear
// scans, so analyzer/aggregation tests don't need a database
// (SPEC_FULL "Domain & Store").
type Memory struct {
	mu sync.RWMutex

	clock clock.Clock
	ids   idgen.Generator

	sessions  map[string]*domain.Session
	events    map[string][]domain.Event
	questions map[string][]domain.SurveyQuestion
	responses map[string][]domain.SurveyResponse
	gridRows  map[string][]domain.GridResponseRow
	timings   map[string][]domain.TimingAnalysis
	detections map[string][]domain.DetectionResult
	fraud      map[string][]domain.FraudIndicator
}

// NewMemory creates an empty in-memory store.
func NewMemory(clk clock.Clock, ids idgen.Generator) *Memory {
	return &Memory{
		clock: clk, ids: ids,
		sessions:   make(map[string]*domain.Session),
		events:     make(map[string][]domain.Event),
		questions:  make(map[string][]domain.SurveyQuestion),
		responses:  make(map[string][]domain.SurveyResponse),
		gridRows:   make(map[string][]domain.GridResponseRow),
		timings:    make(map[string][]domain.TimingAnalysis),
		detections: make(map[string][]domain.DetectionResult),
		fraud:      make(map[string][]domain.FraudIndicator),
	}
}

func (m *Memory) CreateSession(_ context.Context, surveyID, platformID, respondentID, userAgent, ip string) (*domain.Session, error) {
	if surveyID == "" || platformID == "" || respondentID == "" {
		return nil, domain.NewError(domain.KindValidationFailed, "survey_id, platform_id, and respondent_id are required", nil)
	}
	now := m.clock.Now()
	s := &domain.Session{
		ID: m.ids.NewID(), SurveyID: surveyID, PlatformID: platformID, RespondentID: respondentID,
		CreatedAt: now, UpdatedAt: now, Status: domain.SessionActive,
		UserAgent: userAgent, IPAddress: ip,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s, nil
}

func (m *Memory) ReadSession(_ context.Context, sessionID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) UpdateSessionStatus(_ context.Context, sessionID string, status domain.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	if !s.Status.CanTransition(status) {
		return domain.NewError(domain.KindValidationFailed, "illegal status transition", nil)
	}
	s.Status = status
	s.UpdatedAt = m.clock.Now()
	return nil
}

func (m *Memory) SetDeviceFingerprint(_ context.Context, sessionID, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	s.DeviceFingerprint = fingerprint
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	delete(m.sessions, sessionID)
	delete(m.events, sessionID)
	delete(m.questions, sessionID)
	delete(m.responses, sessionID)
	delete(m.gridRows, sessionID)
	delete(m.timings, sessionID)
	delete(m.detections, sessionID)
	delete(m.fraud, sessionID)
	return nil
}

func (m *Memory) AppendEvents(_ context.Context, sessionID string, events []domain.Event, cap_ int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return 0, 0, domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	existing := m.events[sessionID]
	if len(events) == 0 {
		return 0, len(existing), nil
	}
	total := len(existing) + len(events)
	if total > cap_ {
		return 0, len(existing), domain.NewError(domain.KindCapExceeded, sessionID, nil)
	}
	existing = append(existing, events...)
	sort.SliceStable(existing, func(i, j int) bool { return existing[i].Timestamp.Before(existing[j].Timestamp) })
	m.events[sessionID] = existing
	return len(events), len(existing), nil
}

func (m *Memory) ReadEvents(_ context.Context, sessionID string, filter EventFilter) ([]domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.events[sessionID]
	out := make([]domain.Event, 0, len(all))
	typeSet := map[domain.EventType]bool{}
	for _, t := range filter.Types {
		typeSet[t] = true
	}
	for _, e := range all {
		if len(typeSet) > 0 && !typeSet[e.EventType] {
			continue
		}
		if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && e.Timestamp.After(filter.Until) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *Memory) ListByHierarchy(_ context.Context, filter HierarchyFilter) ([]domain.Session, int, error) {
	filter.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []domain.Session
	for _, s := range m.sessions {
		if s.SurveyID != filter.SurveyID {
			continue
		}
		if filter.PlatformID != "" && s.PlatformID != filter.PlatformID {
			continue
		}
		if filter.RespondentID != "" && s.RespondentID != filter.RespondentID {
			continue
		}
		if !filter.DateFrom.IsZero() && s.CreatedAt.Before(filter.DateFrom) {
			continue
		}
		if !filter.DateTo.IsZero() && s.CreatedAt.After(filter.DateTo) {
			continue
		}
		matched = append(matched, *s)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// ListSurveyIDs returns the distinct survey IDs seen across all
// sessions, sorted for a stable listing (spec §6.1 bare `/surveys`).
func (m *Memory) ListSurveyIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]bool{}
	var ids []string
	for _, s := range m.sessions {
		if !seen[s.SurveyID] {
			seen[s.SurveyID] = true
			ids = append(ids, s.SurveyID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) CreateQuestion(_ context.Context, q *domain.SurveyQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == "" {
		q.ID = m.ids.NewID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = m.clock.Now()
	}
	m.questions[q.SessionID] = append(m.questions[q.SessionID], *q)
	return nil
}

func (m *Memory) ReadQuestions(_ context.Context, sessionID string) ([]domain.SurveyQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.SurveyQuestion{}, m.questions[sessionID]...), nil
}

func (m *Memory) CreateResponse(_ context.Context, r *domain.SurveyResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = m.ids.NewID()
	}
	m.responses[r.SessionID] = append(m.responses[r.SessionID], *r)
	return nil
}

func (m *Memory) UpdateResponseQuality(_ context.Context, r *domain.SurveyResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.responses[r.SessionID]
	for i := range rows {
		if rows[i].ID == r.ID {
			rows[i] = *r
			return nil
		}
	}
	return domain.NewError(domain.KindInternal, "response not found: "+r.ID, nil)
}

func (m *Memory) ReadResponses(_ context.Context, sessionID string) ([]domain.SurveyResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.SurveyResponse{}, m.responses[sessionID]...), nil
}

func (m *Memory) PriorResponsesForQuestion(_ context.Context, surveyID, questionID string, before time.Time) ([]domain.SurveyResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.SurveyResponse
	for sid, s := range m.sessions {
		if s.SurveyID != surveyID || !s.CreatedAt.Before(before) {
			continue
		}
		for _, r := range m.responses[sid] {
			if r.QuestionID != questionID {
				continue
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) WriteGridRows(_ context.Context, rows []domain.GridResponseRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.gridRows[r.SessionID] = append(m.gridRows[r.SessionID], r)
	}
	return nil
}

func (m *Memory) ReadGridRows(_ context.Context, sessionID, questionID string) ([]domain.GridResponseRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.GridResponseRow
	for _, r := range m.gridRows[sessionID] {
		if r.QuestionID == questionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) GridQuestionIDs(_ context.Context, sessionID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, r := range m.gridRows[sessionID] {
		if !seen[r.QuestionID] {
			seen[r.QuestionID] = true
			out = append(out, r.QuestionID)
		}
	}
	return out, nil
}

func (m *Memory) WriteTimingAnalysis(_ context.Context, t *domain.TimingAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timings[t.SessionID] = append(m.timings[t.SessionID], *t)
	return nil
}

func (m *Memory) ReadTimingAnalyses(_ context.Context, sessionID string) ([]domain.TimingAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.TimingAnalysis{}, m.timings[sessionID]...), nil
}

func (m *Memory) WriteDetectionResult(_ context.Context, d *domain.DetectionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.detections[d.SessionID]
	for i := range rows {
		if rows[i].CreatedAt.Equal(d.CreatedAt) {
			rows[i] = *d
			return nil
		}
	}
	m.detections[d.SessionID] = append(rows, *d)
	return nil
}

func (m *Memory) LatestDetectionResult(_ context.Context, sessionID string) (*domain.DetectionResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.detections[sessionID]
	if len(rows) == 0 {
		return nil, domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	latest := rows[0]
	for _, r := range rows[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return &latest, nil
}

// RecentRespondentCountries scans the respondent's other sessions
// created since the given time and returns the geo countries resolved
// for each, skipping sessions with no resolved country (geo
// unavailable/disabled) and the session currently being scored.
func (m *Memory) RecentRespondentCountries(_ context.Context, respondentID, excludeSessionID string, since time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for sid, s := range m.sessions {
		if s.RespondentID != respondentID || sid == excludeSessionID {
			continue
		}
		if !s.CreatedAt.After(since) {
			continue
		}
		rows := m.fraud[sid]
		if len(rows) == 0 {
			continue
		}
		if country := rows[len(rows)-1].ResolvedCountry; country != "" {
			out = append(out, country)
		}
	}
	return out, nil
}

func (m *Memory) WriteFraudIndicator(_ context.Context, f *domain.FraudIndicator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fraud[f.SessionID] = append(m.fraud[f.SessionID][:0:0], *f)
	return nil
}

func (m *Memory) LatestFraudIndicator(_ context.Context, sessionID string) (*domain.FraudIndicator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.fraud[sessionID]
	if len(rows) == 0 {
		return nil, domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	last := rows[len(rows)-1]
	return &last, nil
}

func (m *Memory) CountSessionsByIP(_ context.Context, ip string, since24h time.Time) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total, today int
	for _, s := range m.sessions {
		if s.IPAddress != ip {
			continue
		}
		total++
		if !s.CreatedAt.Before(since24h) {
			today++
		}
	}
	return total, today, nil
}

func (m *Memory) CountSessionsByFingerprint(_ context.Context, fingerprint, excludeRespondentID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	respondents := map[string]bool{}
	for _, s := range m.sessions {
		if s.DeviceFingerprint != fingerprint {
			continue
		}
		if s.RespondentID == excludeRespondentID {
			continue
		}
		respondents[s.RespondentID] = true
	}
	return len(respondents), nil
}

func (m *Memory) OtherResponseTexts(_ context.Context, surveyID, excludeSessionID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for sid, s := range m.sessions {
		if s.SurveyID != surveyID || sid == excludeSessionID {
			continue
		}
		for _, r := range m.responses[sid] {
			if r.ResponseText != "" {
				out = append(out, r.ResponseText)
			}
		}
	}
	return out, nil
}

func (m *Memory) CountVelocity(_ context.Context, w VelocityWindow) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for sid, s := range m.sessions {
		if s.SurveyID != w.SurveyID {
			continue
		}
		match := (w.RespondentID != "" && s.RespondentID == w.RespondentID) ||
			(w.IPAddress != "" && s.IPAddress == w.IPAddress) ||
			(w.DeviceFingerprint != "" && s.DeviceFingerprint == w.DeviceFingerprint)
		if !match {
			continue
		}
		for _, r := range m.responses[sid] {
			// response_time isn't timestamped independently in this
			// model; approximate with session creation time within window.
			_ = r
		}
		if s.CreatedAt.After(w.Since) {
			count += len(m.responses[sid])
		}
	}
	return count, nil
}
