package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/survey-integrity-scorer/internal/clock"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
	"github.com/ignite/survey-integrity-scorer/internal/idgen"
)

// Postgres is the production Store implementation, grounded on the
// teacher's repository/postgres query style: plain database/sql +
// lib/pq, hand-built WHERE clauses with positional placeholders for
// optional filters, COALESCE for nullable columns.
type Postgres struct {
	db    *sql.DB
	clock clock.Clock
	ids   idgen.Generator
}

// NewPostgres wraps an already-open *sql.DB.
func NewPostgres(db *sql.DB, clk clock.Clock, ids idgen.Generator) *Postgres {
	return &Postgres{db: db, clock: clk, ids: ids}
}

// Open opens a Postgres connection pool from a DSN with the pool
// sizing the teacher's config layer exposes.
func Open(dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return db, nil
}

func (p *Postgres) CreateSession(ctx context.Context, surveyID, platformID, respondentID, userAgent, ip string) (*domain.Session, error) {
	if surveyID == "" || platformID == "" || respondentID == "" {
		return nil, domain.NewError(domain.KindValidationFailed, "survey_id, platform_id, and respondent_id are required", nil)
	}
	now := p.clock.Now()
	s := &domain.Session{
		ID: p.ids.NewID(), SurveyID: surveyID, PlatformID: platformID, RespondentID: respondentID,
		CreatedAt: now, UpdatedAt: now, Status: domain.SessionActive,
		UserAgent: userAgent, IPAddress: ip,
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bot_sessions (id, survey_id, platform_id, respondent_id, status, user_agent, ip_address, device_fingerprint, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'',$8,$9)
	`, s.ID, s.SurveyID, s.PlatformID, s.RespondentID, s.Status, s.UserAgent, s.IPAddress, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create session: %w", err)
	}
	return s, nil
}

func (p *Postgres) ReadSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	s := &domain.Session{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, survey_id, platform_id, respondent_id, status, user_agent, ip_address, device_fingerprint, created_at, updated_at
		FROM bot_sessions WHERE id = $1
	`, sessionID).Scan(&s.ID, &s.SurveyID, &s.PlatformID, &s.RespondentID, &s.Status, &s.UserAgent, &s.IPAddress, &s.DeviceFingerprint, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("store: read session: %w", err)
	}
	return s, nil
}

func (p *Postgres) UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	current, err := p.ReadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !current.Status.CanTransition(status) {
		return domain.NewError(domain.KindValidationFailed, "illegal status transition", nil)
	}
	_, err = p.db.ExecContext(ctx, `UPDATE bot_sessions SET status=$1, updated_at=$2 WHERE id=$3`, status, p.clock.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("store: update session status: %w", err)
	}
	return nil
}

func (p *Postgres) SetDeviceFingerprint(ctx context.Context, sessionID, fingerprint string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE bot_sessions SET device_fingerprint=$1, updated_at=$2 WHERE id=$3`, fingerprint, p.clock.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("store: set device fingerprint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	return nil
}

func (p *Postgres) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM bot_sessions WHERE id=$1`, sessionID)
	if err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	// Ownership cascade (§3): session owns every other table, so a
	// foreign key ON DELETE CASCADE handles the rest; these explicit
	// deletes are a defense-in-depth belt for backends where the FK
	// constraint isn't present (e.g. during a migration window).
	for _, tbl := range []string{"bot_events", "survey_questions", "survey_responses", "grid_response_rows", "timing_analyses", "detection_results", "fraud_indicators"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE session_id=$1`, tbl), sessionID); err != nil {
			return fmt.Errorf("store: cascade delete %s: %w", tbl, err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) AppendEvents(ctx context.Context, sessionID string, events []domain.Event, cap int) (int, int, error) {
	if len(events) == 0 {
		var total int
		err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM bot_events WHERE session_id=$1`, sessionID).Scan(&total)
		return 0, total, err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bot_sessions WHERE id=$1)`, sessionID).Scan(&exists); err != nil {
		return 0, 0, fmt.Errorf("store: check session: %w", err)
	}
	if !exists {
		return 0, 0, domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}

	var before int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM bot_events WHERE session_id=$1`, sessionID).Scan(&before); err != nil {
		return 0, 0, fmt.Errorf("store: count events: %w", err)
	}
	if before+len(events) > cap {
		return 0, before, domain.NewError(domain.KindCapExceeded, sessionID, nil)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bot_events (session_id, event_type, timestamp, payload, element_id, element_type)
		VALUES ($1,$2,$3,$4,$5,$6)
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return 0, 0, fmt.Errorf("store: marshal payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, sessionID, e.EventType, e.Timestamp, payload, e.ElementID, e.ElementType); err != nil {
			return 0, 0, fmt.Errorf("store: insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("store: commit: %w", err)
	}
	return len(events), before + len(events), nil
}

func (p *Postgres) ReadEvents(ctx context.Context, sessionID string, filter EventFilter) ([]domain.Event, error) {
	q := `SELECT session_id, event_type, timestamp, payload, element_id, element_type FROM bot_events WHERE session_id=$1`
	args := []interface{}{sessionID}
	idx := 2
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		q += fmt.Sprintf(" AND event_type = ANY($%d)", idx)
		args = append(args, pq.Array(types))
		idx++
	}
	if !filter.Since.IsZero() {
		q += fmt.Sprintf(" AND timestamp >= $%d", idx)
		args = append(args, filter.Since)
		idx++
	}
	if !filter.Until.IsZero() {
		q += fmt.Sprintf(" AND timestamp <= $%d", idx)
		args = append(args, filter.Until)
		idx++
	}
	q += " ORDER BY timestamp ASC"

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: read events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload []byte
		if err := rows.Scan(&e.SessionID, &e.EventType, &e.Timestamp, &payload, &e.ElementID, &e.ElementType); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("store: unmarshal payload: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) ListByHierarchy(ctx context.Context, filter HierarchyFilter) ([]domain.Session, int, error) {
	filter.Normalize()
	where, args := hierarchyWhere(filter)

	var total int
	countQ := "SELECT count(*) FROM bot_sessions WHERE " + where
	if err := p.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count sessions: %w", err)
	}

	q := fmt.Sprintf(`
		SELECT id, survey_id, platform_id, respondent_id, status, user_agent, ip_address, device_fingerprint, created_at, updated_at
		FROM bot_sessions WHERE %s ORDER BY created_at ASC LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	qArgs := append(append([]interface{}{}, args...), filter.Limit, filter.Offset)

	rows, err := p.db.QueryContext(ctx, q, qArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.SurveyID, &s.PlatformID, &s.RespondentID, &s.Status, &s.UserAgent, &s.IPAddress, &s.DeviceFingerprint, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("store: scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// ListSurveyIDs returns the distinct survey IDs seen across all
// sessions, sorted for a stable listing (spec §6.1 bare `/surveys`).
func (p *Postgres) ListSurveyIDs(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT DISTINCT survey_id FROM bot_sessions ORDER BY survey_id")
	if err != nil {
		return nil, fmt.Errorf("store: list survey ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan survey id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// hierarchyWhere builds the WHERE clause shared by ListByHierarchy and
// every Aggregator query, so a read always narrows to the same
// composite-indexed slice (spec §4.1 required indexes).
func hierarchyWhere(filter HierarchyFilter) (string, []interface{}) {
	where := "survey_id = $1"
	args := []interface{}{filter.SurveyID}
	idx := 2
	if filter.PlatformID != "" {
		where += fmt.Sprintf(" AND platform_id = $%d", idx)
		args = append(args, filter.PlatformID)
		idx++
	}
	if filter.RespondentID != "" {
		where += fmt.Sprintf(" AND respondent_id = $%d", idx)
		args = append(args, filter.RespondentID)
		idx++
	}
	if !filter.DateFrom.IsZero() {
		where += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, filter.DateFrom)
		idx++
	}
	if !filter.DateTo.IsZero() {
		where += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, filter.DateTo)
		idx++
	}
	return where, args
}

func (p *Postgres) CreateQuestion(ctx context.Context, q *domain.SurveyQuestion) error {
	if q.ID == "" {
		q.ID = p.ids.NewID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = p.clock.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO survey_questions (id, session_id, question_text, question_type, element_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, q.ID, q.SessionID, q.QuestionText, q.QuestionType, q.ElementID, q.CreatedAt)
	return err
}

func (p *Postgres) ReadQuestions(ctx context.Context, sessionID string) ([]domain.SurveyQuestion, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, session_id, question_text, question_type, element_id, created_at
		FROM survey_questions WHERE session_id=$1 ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.SurveyQuestion
	for rows.Next() {
		var q domain.SurveyQuestion
		if err := rows.Scan(&q.ID, &q.SessionID, &q.QuestionText, &q.QuestionType, &q.ElementID, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateResponse(ctx context.Context, r *domain.SurveyResponse) error {
	if r.ID == "" {
		r.ID = p.ids.NewID()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO survey_responses (id, session_id, question_id, response_text, response_time_ms, quality_score, is_flagged, flag_reasons, unavailable)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, r.ID, r.SessionID, r.QuestionID, r.ResponseText, r.ResponseTimeMS, r.QualityScore, r.IsFlagged, flagReasonsToArray(r.FlagReasons), r.Unavailable)
	return err
}

func (p *Postgres) UpdateResponseQuality(ctx context.Context, r *domain.SurveyResponse) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE survey_responses SET quality_score=$1, is_flagged=$2, flag_reasons=$3, unavailable=$4 WHERE id=$5
	`, r.QualityScore, r.IsFlagged, flagReasonsToArray(r.FlagReasons), r.Unavailable, r.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewError(domain.KindInternal, "response not found: "+r.ID, nil)
	}
	return nil
}

func (p *Postgres) ReadResponses(ctx context.Context, sessionID string) ([]domain.SurveyResponse, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, session_id, question_id, response_text, response_time_ms, quality_score, is_flagged, flag_reasons, unavailable
		FROM survey_responses WHERE session_id=$1
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.SurveyResponse
	for rows.Next() {
		var r domain.SurveyResponse
		var reasons []string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.QuestionID, &r.ResponseText, &r.ResponseTimeMS, &r.QualityScore, &r.IsFlagged, pq.Array(&reasons), &r.Unavailable); err != nil {
			return nil, err
		}
		r.FlagReasons = arrayToFlagReasons(reasons)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) PriorResponsesForQuestion(ctx context.Context, surveyID, questionID string, before time.Time) ([]domain.SurveyResponse, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT r.id, r.session_id, r.question_id, r.response_text, r.response_time_ms, r.quality_score, r.is_flagged, r.flag_reasons, r.unavailable
		FROM survey_responses r
		JOIN bot_sessions s ON s.id = r.session_id
		WHERE s.survey_id=$1 AND r.question_id=$2 AND s.created_at < $3
	`, surveyID, questionID, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.SurveyResponse
	for rows.Next() {
		var r domain.SurveyResponse
		var reasons []string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.QuestionID, &r.ResponseText, &r.ResponseTimeMS, &r.QualityScore, &r.IsFlagged, pq.Array(&reasons), &r.Unavailable); err != nil {
			return nil, err
		}
		r.FlagReasons = arrayToFlagReasons(reasons)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) WriteGridRows(ctx context.Context, rows []domain.GridResponseRow) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO grid_response_rows (session_id, question_id, row_id, value, response_time_ms) VALUES ($1,$2,$3,$4,$5)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.SessionID, r.QuestionID, r.RowID, r.Value, r.ResponseTimeMS); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) ReadGridRows(ctx context.Context, sessionID, questionID string) ([]domain.GridResponseRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT session_id, question_id, row_id, value, response_time_ms FROM grid_response_rows
		WHERE session_id=$1 AND question_id=$2
	`, sessionID, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.GridResponseRow
	for rows.Next() {
		var r domain.GridResponseRow
		if err := rows.Scan(&r.SessionID, &r.QuestionID, &r.RowID, &r.Value, &r.ResponseTimeMS); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) GridQuestionIDs(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT DISTINCT question_id FROM grid_response_rows WHERE session_id=$1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (p *Postgres) WriteTimingAnalysis(ctx context.Context, t *domain.TimingAnalysis) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO timing_analyses (session_id, question_id, response_time_ms, is_speeder, is_flatliner, anomaly_z)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, t.SessionID, t.QuestionID, t.ResponseTimeMS, t.IsSpeeder, t.IsFlatliner, t.AnomalyZ)
	return err
}

func (p *Postgres) ReadTimingAnalyses(ctx context.Context, sessionID string) ([]domain.TimingAnalysis, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT session_id, question_id, response_time_ms, is_speeder, is_flatliner, anomaly_z
		FROM timing_analyses WHERE session_id=$1
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.TimingAnalysis
	for rows.Next() {
		var t domain.TimingAnalysis
		if err := rows.Scan(&t.SessionID, &t.QuestionID, &t.ResponseTimeMS, &t.IsSpeeder, &t.IsFlatliner, &t.AnomalyZ); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// WriteDetectionResult upserts keyed by (session_id, created_at) per
// §4.1/§7 (Conflict is resolved with an idempotent upsert, not an error).
func (p *Postgres) WriteDetectionResult(ctx context.Context, d *domain.DetectionResult) error {
	methodScores, err := json.Marshal(d.MethodScores)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO detection_results (session_id, created_at, is_bot, confidence_score, risk_level, method_scores,
			processing_time_ms, event_count, composite_score, text_quality_score, fraud_score, summary)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (session_id, created_at) DO UPDATE SET
			is_bot=EXCLUDED.is_bot, confidence_score=EXCLUDED.confidence_score, risk_level=EXCLUDED.risk_level,
			method_scores=EXCLUDED.method_scores, processing_time_ms=EXCLUDED.processing_time_ms,
			event_count=EXCLUDED.event_count, composite_score=EXCLUDED.composite_score,
			text_quality_score=EXCLUDED.text_quality_score, fraud_score=EXCLUDED.fraud_score, summary=EXCLUDED.summary
	`, d.SessionID, d.CreatedAt, d.IsBot, d.ConfidenceScore, d.RiskLevel, methodScores,
		d.ProcessingTimeMS, d.EventCount, d.CompositeScore, d.TextQualityScore, d.FraudScore, d.Summary)
	return err
}

func (p *Postgres) LatestDetectionResult(ctx context.Context, sessionID string) (*domain.DetectionResult, error) {
	d := &domain.DetectionResult{}
	var methodScores []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT session_id, created_at, is_bot, confidence_score, risk_level, method_scores,
			processing_time_ms, event_count, composite_score, text_quality_score, fraud_score, summary
		FROM detection_results WHERE session_id=$1 ORDER BY created_at DESC LIMIT 1
	`, sessionID).Scan(&d.SessionID, &d.CreatedAt, &d.IsBot, &d.ConfidenceScore, &d.RiskLevel, &methodScores,
		&d.ProcessingTimeMS, &d.EventCount, &d.CompositeScore, &d.TextQualityScore, &d.FraudScore, &d.Summary)
	if err == sql.ErrNoRows {
		return nil, domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	if err != nil {
		return nil, err
	}
	if len(methodScores) > 0 {
		if err := json.Unmarshal(methodScores, &d.MethodScores); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (p *Postgres) WriteFraudIndicator(ctx context.Context, f *domain.FraudIndicator) error {
	reasons, err := json.Marshal(f.FlagReasons)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO fraud_indicators (session_id, survey_id, platform_id, respondent_id, overall_fraud_score, is_duplicate,
			ip_score, device_score, duplicate_score, geo_score, velocity_score, resolved_country, flag_reasons)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (session_id) DO UPDATE SET
			overall_fraud_score=EXCLUDED.overall_fraud_score, is_duplicate=EXCLUDED.is_duplicate,
			ip_score=EXCLUDED.ip_score, device_score=EXCLUDED.device_score, duplicate_score=EXCLUDED.duplicate_score,
			geo_score=EXCLUDED.geo_score, velocity_score=EXCLUDED.velocity_score,
			resolved_country=EXCLUDED.resolved_country, flag_reasons=EXCLUDED.flag_reasons
	`, f.SessionID, f.SurveyID, f.PlatformID, f.RespondentID, f.OverallFraudScore, f.IsDuplicate,
		f.IPScore, f.DeviceScore, f.DuplicateScore, f.GeoScore, f.VelocityScore, f.ResolvedCountry, reasons)
	return err
}

func (p *Postgres) LatestFraudIndicator(ctx context.Context, sessionID string) (*domain.FraudIndicator, error) {
	f := &domain.FraudIndicator{}
	var reasons []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT session_id, survey_id, platform_id, respondent_id, overall_fraud_score, is_duplicate,
			ip_score, device_score, duplicate_score, geo_score, velocity_score, resolved_country, flag_reasons
		FROM fraud_indicators WHERE session_id=$1
	`, sessionID).Scan(&f.SessionID, &f.SurveyID, &f.PlatformID, &f.RespondentID, &f.OverallFraudScore, &f.IsDuplicate,
		&f.IPScore, &f.DeviceScore, &f.DuplicateScore, &f.GeoScore, &f.VelocityScore, &f.ResolvedCountry, &reasons)
	if err == sql.ErrNoRows {
		return nil, domain.NewError(domain.KindSessionNotFound, sessionID, nil)
	}
	if err != nil {
		return nil, err
	}
	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &f.FlagReasons); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// RecentRespondentCountries returns the resolved geo countries for
// this respondent's other sessions created since the given time, for
// the geo sub-score's impossible-travel comparison (§4.4).
func (p *Postgres) RecentRespondentCountries(ctx context.Context, respondentID, excludeSessionID string, since time.Time) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT fi.resolved_country FROM fraud_indicators fi
		JOIN bot_sessions s ON s.id = fi.session_id
		WHERE s.respondent_id = $1 AND s.id <> $2 AND s.created_at >= $3 AND fi.resolved_country <> ''
	`, respondentID, excludeSessionID, since)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var country string
		if err := rows.Scan(&country); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		out = append(out, country)
	}
	return out, rows.Err()
}

func (p *Postgres) CountSessionsByIP(ctx context.Context, ip string, since24h time.Time) (int, int, error) {
	var total, today int
	err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM bot_sessions WHERE ip_address=$1`, ip).Scan(&total)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	err = p.db.QueryRowContext(ctx, `SELECT count(*) FROM bot_sessions WHERE ip_address=$1 AND created_at >= $2`, ip, since24h).Scan(&today)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return total, today, nil
}

func (p *Postgres) CountSessionsByFingerprint(ctx context.Context, fingerprint, excludeRespondentID string) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `
		SELECT count(DISTINCT respondent_id) FROM bot_sessions WHERE device_fingerprint=$1 AND respondent_id <> $2
	`, fingerprint, excludeRespondentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (p *Postgres) OtherResponseTexts(ctx context.Context, surveyID, excludeSessionID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT r.response_text FROM survey_responses r
		JOIN bot_sessions s ON s.id = r.session_id
		WHERE s.survey_id = $1 AND r.session_id <> $2 AND r.response_text <> ''
	`, surveyID, excludeSessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) CountVelocity(ctx context.Context, w VelocityWindow) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `
		SELECT count(*) FROM survey_responses r
		JOIN bot_sessions s ON s.id = r.session_id
		WHERE s.survey_id = $1 AND s.created_at >= $2
		AND (s.respondent_id = $3 OR s.ip_address = $4 OR s.device_fingerprint = $5)
	`, w.SurveyID, w.Since, w.RespondentID, w.IPAddress, w.DeviceFingerprint).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

// --- helpers ---

func flagReasonsToArray(reasons []domain.FlagReason) interface{} {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return pq.Array(out)
}

func arrayToFlagReasons(in []string) []domain.FlagReason {
	out := make([]domain.FlagReason, len(in))
	for i, s := range in {
		out[i] = domain.FlagReason(s)
	}
	return out
}
