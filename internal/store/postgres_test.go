package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/survey-integrity-scorer/internal/clock"
	"github.com/ignite/survey-integrity-scorer/internal/domain"
	"github.com/ignite/survey-integrity-scorer/internal/idgen"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func newTestPostgres(db *sql.DB) *Postgres {
	return NewPostgres(db, clock.Fixed{T: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, idgen.NewSequential("sess"))
}

func TestPostgres_CreateSession_InsertsAndReturnsSession(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	p := newTestPostgres(db)

	mock.ExpectExec("INSERT INTO bot_sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	sess, err := p.CreateSession(context.Background(), "survey-1", "platform-1", "respondent-1", "ua", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "survey-1", sess.SurveyID)
	assert.Equal(t, domain.SessionActive, sess.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateSession_RejectsMissingHierarchyFields(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()
	p := newTestPostgres(db)

	_, err := p.CreateSession(context.Background(), "", "platform-1", "respondent-1", "ua", "1.2.3.4")
	assert.True(t, domain.IsKind(err, domain.KindValidationFailed))
}

func TestPostgres_ReadSession_NoRowsMapsToSessionNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	p := newTestPostgres(db)

	mock.ExpectQuery("FROM bot_sessions").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := p.ReadSession(context.Background(), "missing")
	assert.True(t, domain.IsKind(err, domain.KindSessionNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReadSession_ScansAllColumns(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	p := newTestPostgres(db)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "survey_id", "platform_id", "respondent_id", "status", "user_agent", "ip_address", "device_fingerprint", "created_at", "updated_at",
	}).AddRow("sess-1", "survey-1", "platform-1", "respondent-1", "active", "ua", "1.2.3.4", "", now, now)

	mock.ExpectQuery("FROM bot_sessions").
		WithArgs("sess-1").
		WillReturnRows(rows)

	sess, err := p.ReadSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, domain.SessionActive, sess.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReadSession_UnexpectedDBErrorIsWrapped(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	p := newTestPostgres(db)

	mock.ExpectQuery("FROM bot_sessions").
		WithArgs("sess-1").
		WillReturnError(assert.AnError)

	_, err := p.ReadSession(context.Background(), "sess-1")
	assert.Error(t, err)
	assert.False(t, domain.IsKind(err, domain.KindSessionNotFound), "a generic DB error must not be misreported as session-not-found")
}

func TestPostgres_ListSurveyIDs_ScansDistinctIDs(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	p := newTestPostgres(db)

	rows := sqlmock.NewRows([]string{"survey_id"}).AddRow("survey-a").AddRow("survey-b")
	mock.ExpectQuery("SELECT DISTINCT survey_id FROM bot_sessions").WillReturnRows(rows)

	ids, err := p.ListSurveyIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"survey-a", "survey-b"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_WriteFraudIndicator_PersistsResolvedCountry(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	p := newTestPostgres(db)

	mock.ExpectExec("INSERT INTO fraud_indicators").
		WithArgs("sess-1", "survey-1", "platform-1", "respondent-1", 0.0, false, 0.0, 0.0, 0.0, 0.0, 0.0, "FR", []byte("{}")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := p.WriteFraudIndicator(context.Background(), &domain.FraudIndicator{
		SessionID: "sess-1", SurveyID: "survey-1", PlatformID: "platform-1", RespondentID: "respondent-1",
		ResolvedCountry: "FR", FlagReasons: map[string]domain.FraudFlagReason{},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecentRespondentCountries_ScansResolvedCountries(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()
	p := newTestPostgres(db)

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"resolved_country"}).AddRow("FR").AddRow("DE")
	mock.ExpectQuery("FROM fraud_indicators").
		WithArgs("respondent-1", "sess-current", since).
		WillReturnRows(rows)

	countries, err := p.RecentRespondentCountries(context.Background(), "respondent-1", "sess-current", since)
	require.NoError(t, err)
	assert.Equal(t, []string{"FR", "DE"}, countries)
	require.NoError(t, mock.ExpectationsWereMet())
}
