package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/survey-integrity-scorer/internal/aggregation"
	"github.com/ignite/survey-integrity-scorer/internal/clock"
	"github.com/ignite/survey-integrity-scorer/internal/idgen"
	"github.com/ignite/survey-integrity-scorer/internal/ingest"
	"github.com/ignite/survey-integrity-scorer/internal/store"
)

func newTestRouter(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()
	s := store.NewMemory(clock.Fixed{T: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, idgen.NewSequential("sess"))
	router := NewRouter(Deps{
		Store:  s,
		Agg:    aggregation.New(s),
		Ingest: ingest.New(s, 10000),
	})
	return router, s
}

func TestHealthHandler(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestFraudSummary_RequiresSurveyIDQueryParam(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/fraud/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, "/fraud/summary has no path-level surveyID, so it must be supplied as ?survey_id=")
}

func TestFraudSummary_AcceptsSurveyIDQueryParam(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/fraud/summary?survey_id=survey-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSurveySummary_ReturnsZeroedSummaryForUnknownSurvey(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/surveys/does-not-exist/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var summary aggregation.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 0, summary.TotalSessions)
}

func TestSessionDetail_UnknownSessionReturns404(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/surveys/s1/platforms/p1/respondents/r1/sessions/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionDetail_ReturnsSessionWithoutDetectionOrFraud(t *testing.T) {
	router, s := newTestRouter(t)
	sess, err := s.CreateSession(context.Background(), "survey-1", "platform-1", "respondent-1", "ua", "1.2.3.4")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/surveys/survey-1/platforms/platform-1/respondents/respondent-1/sessions/"+sess.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp sessionDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, sess.ID, resp.Session.ID)
	assert.Nil(t, resp.Detection)
	assert.Nil(t, resp.Fraud)
}

func TestListSessions_ReturnsCreatedSession(t *testing.T) {
	router, s := newTestRouter(t)
	sess, err := s.CreateSession(context.Background(), "survey-1", "platform-1", "respondent-1", "ua", "1.2.3.4")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/surveys/survey-1/platforms/platform-1/respondents/respondent-1/sessions/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	_ = sess
}

func TestListSurveys_ReturnsDistinctSurveyIDs(t *testing.T) {
	router, s := newTestRouter(t)
	_, err := s.CreateSession(context.Background(), "survey-1", "platform-1", "respondent-1", "ua", "1.2.3.4")
	require.NoError(t, err)
	_, err = s.CreateSession(context.Background(), "survey-2", "platform-1", "respondent-2", "ua", "5.6.7.8")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/surveys", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
}

func TestSurveyDetail_ReturnsSessionCounts(t *testing.T) {
	router, s := newTestRouter(t)
	_, err := s.CreateSession(context.Background(), "survey-1", "platform-1", "respondent-1", "ua", "1.2.3.4")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/surveys/survey-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp hierarchyNodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "survey-1", resp.ID)
	assert.Equal(t, 1, resp.TotalSessions)
}

func TestPlatformDetail_ReturnsSessionCounts(t *testing.T) {
	router, s := newTestRouter(t)
	_, err := s.CreateSession(context.Background(), "survey-1", "platform-1", "respondent-1", "ua", "1.2.3.4")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/surveys/survey-1/platforms/platform-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp hierarchyNodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "platform-1", resp.ID)
	assert.Equal(t, 1, resp.TotalSessions)
}

func TestRespondentDetail_ReturnsSessionCounts(t *testing.T) {
	router, s := newTestRouter(t)
	_, err := s.CreateSession(context.Background(), "survey-1", "platform-1", "respondent-1", "ua", "1.2.3.4")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/surveys/survey-1/platforms/platform-1/respondents/respondent-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp hierarchyNodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "respondent-1", resp.ID)
	assert.Equal(t, 1, resp.TotalSessions)
}

func TestAppendEvents_RejectsInvalidJSON(t *testing.T) {
	router, s := newTestRouter(t)
	sess, err := s.CreateSession(context.Background(), "survey-1", "platform-1", "respondent-1", "ua", "1.2.3.4")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/events", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppendEvents_RejectsInvalidTimestamp(t *testing.T) {
	router, s := newTestRouter(t)
	sess, err := s.CreateSession(context.Background(), "survey-1", "platform-1", "respondent-1", "ua", "1.2.3.4")
	require.NoError(t, err)

	body := `{"events":[{"event_type":"keystroke","timestamp":"not-a-time"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/events", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppendEvents_AcceptsWellFormedBatch(t *testing.T) {
	router, s := newTestRouter(t)
	sess, err := s.CreateSession(context.Background(), "survey-1", "platform-1", "respondent-1", "ua", "1.2.3.4")
	require.NoError(t, err)

	body := `{"events":[{"event_type":"keystroke","timestamp":"2026-01-01T00:00:00Z"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/events", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp appendEventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accepted)
	assert.Equal(t, 1, resp.Total)
}

func TestAppendEvents_UnknownSessionReturns404(t *testing.T) {
	router, _ := newTestRouter(t)
	body := `{"events":[{"event_type":"keystroke","timestamp":"2026-01-01T00:00:00Z"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/does-not-exist/events", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
