package store

import (
	"context"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

// The Memory store satisfies Aggregator with plain linear scans. This
// is fine for a test double / reference implementation; Postgres
// satisfies the same interface with index-only aggregate SQL (§4.8
// invariant: "implementations must not fan-out to per-session reads"
// — that invariant binds the production backend, not this one).

func (m *Memory) SessionStats(_ context.Context, filter HierarchyFilter) (SessionStats, error) {
	m.mu.RLock()
	sessions := make([]string, 0)
	platforms := map[string]int{}
	respondents := map[string]bool{}
	for id, s := range m.sessions {
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
		sessions = append(sessions, id)
		platforms[s.PlatformID]++
		respondents[s.RespondentID] = true
	}
	m.mu.RUnlock()
	return SessionStats{
		TotalSessions:        len(sessions),
		TotalRespondents:     len(respondents),
		TotalPlatforms:       len(platforms),
		PlatformDistribution: platforms,
	}, nil
}

func (m *Memory) sessionIDsMatching(filter HierarchyFilter) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, s := range m.sessions {
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
		ids = append(ids, id)
	}
	return ids
}

func (m *Memory) DetectionStats(_ context.Context, filter HierarchyFilter) (DetectionStats, error) {
	ids := m.sessionIDsMatching(filter)
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := DetectionStats{RiskDistribution: map[domain.RiskLevel]int{}}
	for _, id := range ids {
		rows := m.detections[id]
		if len(rows) == 0 {
			continue
		}
		latest := rows[0]
		for _, r := range rows[1:] {
			if r.CreatedAt.After(latest.CreatedAt) {
				latest = r
			}
		}
		stats.TotalDetections++
		if latest.IsBot {
			stats.BotCount++
		} else {
			stats.HumanCount++
		}
		stats.SumConfidence += latest.ConfidenceScore
		stats.RiskDistribution[latest.RiskLevel]++
	}
	return stats, nil
}

func (m *Memory) EventStats(_ context.Context, filter HierarchyFilter) (EventStats, error) {
	ids := m.sessionIDsMatching(filter)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats EventStats
	for _, id := range ids {
		stats.Total += len(m.events[id])
		stats.SessionsCounted++
	}
	return stats, nil
}

func (m *Memory) TextQualityStats(_ context.Context, filter HierarchyFilter) (TextQualityStats, error) {
	ids := m.sessionIDsMatching(filter)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats TextQualityStats
	for _, id := range ids {
		for _, r := range m.responses[id] {
			stats.TotalResponses++
			if r.QualityScore != nil {
				stats.SumQuality += *r.QualityScore
				stats.QualityCount++
			}
			if r.IsFlagged {
				stats.FlaggedCount++
			}
		}
	}
	return stats, nil
}

func (m *Memory) FraudStats(_ context.Context, filter HierarchyFilter) (FraudStats, error) {
	ids := m.sessionIDsMatching(filter)
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := FraudStats{FlagCounts: map[domain.FraudFlagReason]int{}}
	for _, id := range ids {
		rows := m.fraud[id]
		if len(rows) == 0 {
			continue
		}
		f := rows[len(rows)-1]
		stats.TotalSessions++
		if f.IsDuplicate {
			stats.DuplicateCount++
		}
		stats.SumFraudScore += f.OverallFraudScore
		for _, reason := range f.FlagReasons {
			stats.FlagCounts[reason]++
		}
	}
	return stats, nil
}

func (m *Memory) GridStats(_ context.Context, filter HierarchyFilter) (GridStats, error) {
	ids := m.sessionIDsMatching(filter)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats GridStats
	for _, id := range ids {
		questions := map[string]bool{}
		for _, r := range m.gridRows[id] {
			questions[r.QuestionID] = true
		}
		stats.TotalGroups += len(questions)
	}
	return stats, nil
}

func (m *Memory) TimingStats(_ context.Context, filter HierarchyFilter) (TimingStats, error) {
	ids := m.sessionIDsMatching(filter)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats TimingStats
	for _, id := range ids {
		for _, t := range m.timings[id] {
			stats.TotalResponses++
			if t.IsSpeeder {
				stats.SpeederCount++
			}
			if t.IsFlatliner {
				stats.FlatlinerCount++
			}
			if t.AnomalyZ != nil && abs(*t.AnomalyZ) > 2.5 {
				stats.AnomalyCount++
			}
		}
	}
	return stats, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
