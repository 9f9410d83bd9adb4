package text

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(baseURL string) *OpenAI {
	o := NewOpenAI("test-key", "gpt-4", baseURL, 0, 5*time.Second)
	return o
}

func TestOpenAI_RequiresAPIKey(t *testing.T) {
	o := NewOpenAI("", "gpt-4", "http://localhost", 0, time.Second)
	_, err := o.Classify(context.Background(), ClassifyRequest{QuestionText: "q", ResponseText: "r"})
	assert.Error(t, err)
}

func TestOpenAI_ParsesSuccessfulClassificationPayload(t *testing.T) {
	payload := `{
		"gibberish": {"probability": 0.1, "evidence": "ok"},
		"copy_paste": {"probability": 0.2, "evidence": "ok"},
		"relevance": {"off_topic_probability": 0.3, "evidence": "ok"},
		"generic": {"probability": 0.4, "evidence": "ok"},
		"quality": {"score": 75, "rationale": "decent"}
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: payload}}},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	o := newTestOpenAI(srv.URL)
	result, err := o.Classify(context.Background(), ClassifyRequest{QuestionText: "q", ResponseText: "r"})
	require.NoError(t, err)
	assert.Equal(t, 0.1, result.Gibberish.Probability)
	assert.Equal(t, 75.0, result.Quality.Score)
	assert.Equal(t, "decent", result.Quality.Rationale)
}

func TestOpenAI_PropagatesAPIErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{Error: &struct {
			Message string `json:"message"`
		}{Message: "rate limited"}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	o := newTestOpenAI(srv.URL)
	_, err := o.Classify(context.Background(), ClassifyRequest{QuestionText: "q", ResponseText: "r"})
	assert.ErrorContains(t, err, "rate limited")
}

func TestOpenAI_ErrorsOnNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	o := newTestOpenAI(srv.URL)
	_, err := o.Classify(context.Background(), ClassifyRequest{QuestionText: "q", ResponseText: "r"})
	assert.Error(t, err)
}

func TestOpenAI_ErrorsOnEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	o := newTestOpenAI(srv.URL)
	_, err := o.Classify(context.Background(), ClassifyRequest{QuestionText: "q", ResponseText: "r"})
	assert.ErrorContains(t, err, "no choices")
}

func TestOpenAI_SendsBearerAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	o := newTestOpenAI(srv.URL)
	_, err := o.Classify(context.Background(), ClassifyRequest{QuestionText: "q", ResponseText: "r"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
}
