package store

import (
	"context"
	"fmt"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

// Postgres satisfies Aggregator with index-only aggregate SQL: one
// query per rollup, scoped by the same hierarchyWhere clause used by
// ListByHierarchy, joined against bot_sessions where a child table
// doesn't carry the hierarchy columns directly (spec §4.8 invariant:
// "must not fan-out to per-session reads").

func (p *Postgres) SessionStats(ctx context.Context, filter HierarchyFilter) (SessionStats, error) {
	where, args := hierarchyWhere(filter)
	var stats SessionStats
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT count(*), count(DISTINCT respondent_id), count(DISTINCT platform_id)
		FROM bot_sessions WHERE %s
	`, where), args...)
	if err := row.Scan(&stats.TotalSessions, &stats.TotalRespondents, &stats.TotalPlatforms); err != nil {
		return stats, fmt.Errorf("store: session stats: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT platform_id, count(*) FROM bot_sessions WHERE %s GROUP BY platform_id
	`, where), args...)
	if err != nil {
		return stats, fmt.Errorf("store: session stats distribution: %w", err)
	}
	defer rows.Close()
	stats.PlatformDistribution = map[string]int{}
	for rows.Next() {
		var platformID string
		var n int
		if err := rows.Scan(&platformID, &n); err != nil {
			return stats, fmt.Errorf("store: scan platform distribution: %w", err)
		}
		stats.PlatformDistribution[platformID] = n
	}
	return stats, rows.Err()
}

func (p *Postgres) DetectionStats(ctx context.Context, filter HierarchyFilter) (DetectionStats, error) {
	where, args := hierarchyWhereAliased(filter, "s")
	stats := DetectionStats{RiskDistribution: map[domain.RiskLevel]int{}}

	// Latest detection_result per session, scoped to the hierarchy.
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT ON (d.session_id) d.is_bot, d.confidence_score, d.risk_level
		FROM detection_results d
		JOIN bot_sessions s ON s.id = d.session_id
		WHERE %s
		ORDER BY d.session_id, d.created_at DESC
	`, where), args...)
	if err != nil {
		return stats, fmt.Errorf("store: detection stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var isBot bool
		var confidence float64
		var risk domain.RiskLevel
		if err := rows.Scan(&isBot, &confidence, &risk); err != nil {
			return stats, fmt.Errorf("store: scan detection stats: %w", err)
		}
		stats.TotalDetections++
		if isBot {
			stats.BotCount++
		} else {
			stats.HumanCount++
		}
		stats.SumConfidence += confidence
		stats.RiskDistribution[risk]++
	}
	return stats, rows.Err()
}

func (p *Postgres) EventStats(ctx context.Context, filter HierarchyFilter) (EventStats, error) {
	where, args := hierarchyWhereAliased(filter, "s")
	var stats EventStats
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT count(e.id), count(DISTINCT e.session_id)
		FROM bot_events e
		JOIN bot_sessions s ON s.id = e.session_id
		WHERE %s
	`, where), args...)
	if err := row.Scan(&stats.Total, &stats.SessionsCounted); err != nil {
		return stats, fmt.Errorf("store: event stats: %w", err)
	}
	return stats, nil
}

func (p *Postgres) TextQualityStats(ctx context.Context, filter HierarchyFilter) (TextQualityStats, error) {
	where, args := hierarchyWhereAliased(filter, "s")
	var stats TextQualityStats
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT count(r.id),
		       coalesce(sum(r.quality_score), 0), count(r.quality_score),
		       count(*) FILTER (WHERE r.is_flagged)
		FROM survey_responses r
		JOIN bot_sessions s ON s.id = r.session_id
		WHERE %s
	`, where), args...)
	if err := row.Scan(&stats.TotalResponses, &stats.SumQuality, &stats.QualityCount, &stats.FlaggedCount); err != nil {
		return stats, fmt.Errorf("store: text quality stats: %w", err)
	}
	return stats, nil
}

func (p *Postgres) FraudStats(ctx context.Context, filter HierarchyFilter) (FraudStats, error) {
	where, args := hierarchyWhere(filter)
	stats := FraudStats{FlagCounts: map[domain.FraudFlagReason]int{}}

	row := p.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT count(*), count(*) FILTER (WHERE is_duplicate), coalesce(sum(overall_fraud_score), 0)
		FROM fraud_indicators WHERE %s
	`, where), args...)
	if err := row.Scan(&stats.TotalSessions, &stats.DuplicateCount, &stats.SumFraudScore); err != nil {
		return stats, fmt.Errorf("store: fraud stats: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT (jsonb_each_text(flag_reasons)).value
		FROM fraud_indicators WHERE %s
	`, where), args...)
	if err != nil {
		return stats, fmt.Errorf("store: fraud flag counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var reason domain.FraudFlagReason
		if err := rows.Scan(&reason); err != nil {
			return stats, fmt.Errorf("store: scan fraud flag reason: %w", err)
		}
		stats.FlagCounts[reason]++
	}
	return stats, rows.Err()
}

func (p *Postgres) GridStats(ctx context.Context, filter HierarchyFilter) (GridStats, error) {
	where, args := hierarchyWhereAliased(filter, "s")
	var stats GridStats
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT count(DISTINCT (g.session_id, g.question_id))
		FROM grid_response_rows g
		JOIN bot_sessions s ON s.id = g.session_id
		WHERE %s
	`, where), args...)
	if err := row.Scan(&stats.TotalGroups); err != nil {
		return stats, fmt.Errorf("store: grid stats: %w", err)
	}
	return stats, nil
}

func (p *Postgres) TimingStats(ctx context.Context, filter HierarchyFilter) (TimingStats, error) {
	where, args := hierarchyWhereAliased(filter, "s")
	var stats TimingStats
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT count(t.id),
		       count(*) FILTER (WHERE t.is_speeder),
		       count(*) FILTER (WHERE t.is_flatliner),
		       count(*) FILTER (WHERE abs(t.anomaly_z) > 2.5)
		FROM timing_analyses t
		JOIN bot_sessions s ON s.id = t.session_id
		WHERE %s
	`, where), args...)
	if err := row.Scan(&stats.TotalResponses, &stats.SpeederCount, &stats.FlatlinerCount, &stats.AnomalyCount); err != nil {
		return stats, fmt.Errorf("store: timing stats: %w", err)
	}
	return stats, nil
}

// hierarchyWhereAliased is hierarchyWhere with bot_sessions columns
// qualified by alias, for queries that JOIN a child table against
// bot_sessions to reach the hierarchy columns.
func hierarchyWhereAliased(filter HierarchyFilter, alias string) (string, []interface{}) {
	where := fmt.Sprintf("%s.survey_id = $1", alias)
	args := []interface{}{filter.SurveyID}
	idx := 2
	if filter.PlatformID != "" {
		where += fmt.Sprintf(" AND %s.platform_id = $%d", alias, idx)
		args = append(args, filter.PlatformID)
		idx++
	}
	if filter.RespondentID != "" {
		where += fmt.Sprintf(" AND %s.respondent_id = $%d", alias, idx)
		args = append(args, filter.RespondentID)
		idx++
	}
	if !filter.DateFrom.IsZero() {
		where += fmt.Sprintf(" AND %s.created_at >= $%d", alias, idx)
		args = append(args, filter.DateFrom)
		idx++
	}
	if !filter.DateTo.IsZero() {
		where += fmt.Sprintf(" AND %s.created_at <= $%d", alias, idx)
		args = append(args, filter.DateTo)
		idx++
	}
	return where, args
}
