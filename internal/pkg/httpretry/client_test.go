package httpretry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryClient_SucceedsOnFirstTry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rc := NewRetryClient(nil, 3)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryClient_RetriesOnServerErrorThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rc := NewRetryClient(nil, 3)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRetryClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	rc := NewRetryClient(nil, 3)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx client errors must not be retried")
}

func TestRetryClient_ReturnsFinalResponseAfterExhaustingRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rc := NewRetryClient(nil, 1)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := rc.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "one initial attempt plus one retry")
}

func TestRetryClient_StopsRetryingWhenContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := NewRetryClient(nil, 3)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = rc.Do(req)
	assert.Error(t, err)
}

func TestNewRetryClient_DefaultsMaxRetriesWhenNonPositive(t *testing.T) {
	rc := NewRetryClient(nil, 0)
	assert.Equal(t, 3, rc.maxRetries)

	rc2 := NewRetryClient(nil, -5)
	assert.Equal(t, 3, rc2.maxRetries)
}

func TestNewTextClassifierRetryClient_UsesTighterBackoffThanGenericDefault(t *testing.T) {
	rc := NewTextClassifierRetryClient(nil, 3)
	assert.Equal(t, 3, rc.maxRetries)
	assert.Equal(t, classifierBaseDelay, rc.baseDelay)
	assert.Equal(t, classifierMaxDelay, rc.maxDelay)
	assert.Less(t, rc.maxDelay, NewRetryClient(nil, 3).maxDelay, "a classifier call sits inside the scoring request's own deadline and can't afford the generic 30s backoff ceiling")
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, isRetryableStatus(http.StatusTooManyRequests))
	assert.True(t, isRetryableStatus(http.StatusInternalServerError))
	assert.True(t, isRetryableStatus(http.StatusBadGateway))
	assert.True(t, isRetryableStatus(http.StatusServiceUnavailable))
	assert.True(t, isRetryableStatus(http.StatusGatewayTimeout))
	assert.False(t, isRetryableStatus(http.StatusOK))
	assert.False(t, isRetryableStatus(http.StatusNotFound))
	assert.False(t, isRetryableStatus(http.StatusBadRequest))
}
