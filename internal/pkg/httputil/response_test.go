package httputil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

func TestOK_WritesStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"hello":"world"}`, rec.Body.String())
}

func TestCreated_WritesStatus201(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]int{"id": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestNoContent_WritesStatus204WithEmptyBody(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestBadRequest_WritesDetailEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest(rec, "bad input")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bad input", resp.Detail)
}

func TestNotFound_WritesDetailEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, "missing")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "missing", resp.Detail)
}

func TestInternalError_NeverLeaksUnderlyingMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Detail)
	assert.NotContains(t, resp.Detail, assert.AnError.Error())
}

func TestDomainError_MapsEachKindToExpectedStatus(t *testing.T) {
	cases := []struct {
		kind   domain.ErrorKind
		status int
	}{
		{domain.KindValidationFailed, http.StatusBadRequest},
		{domain.KindCapExceeded, http.StatusBadRequest},
		{domain.KindSessionNotFound, http.StatusNotFound},
		{domain.KindHierarchyNotFound, http.StatusNotFound},
		{domain.KindConflict, http.StatusConflict},
		{domain.KindClassifierUnavailable, http.StatusServiceUnavailable},
		{domain.KindFraudComponentUnavailable, http.StatusServiceUnavailable},
		{domain.KindInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		DomainError(rec, domain.NewError(tc.kind, "detail message", nil))
		assert.Equal(t, tc.status, rec.Code, "kind %v", tc.kind)
	}
}

func TestDomainError_NonDomainErrorIsTreatedAsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	DomainError(rec, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()

	var dst map[string]any
	ok := Decode(rec, req, &dst)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecode_AcceptsWellFormedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"a":1}`))
	rec := httptest.NewRecorder()

	var dst map[string]any
	ok := Decode(rec, req, &dst)

	assert.True(t, ok)
	assert.Equal(t, float64(1), dst["a"])
}
