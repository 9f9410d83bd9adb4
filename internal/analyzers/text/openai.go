package text

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/survey-integrity-scorer/internal/pkg/httpretry"
)

// OpenAI is a TextClassifier backed by an OpenAI-compatible chat
// completions endpoint, grounded on the teacher's
// internal/agent/openai_agent.go request/response skeleton (JSON
// body, bearer auth header, io.ReadAll + json.Unmarshal, typed error
// on a non-nil API error field) but speaking the §6.2 strict
// classification schema instead of tool-calling chat messages.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *httpretry.RetryClient
	timeout time.Duration
}

// NewOpenAI builds an OpenAI-backed classifier. baseURL defaults to
// the public chat completions endpoint if empty.
func NewOpenAI(apiKey, model, baseURL string, retries int, timeout time.Duration) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/chat/completions"
	}
	return &OpenAI{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  httpretry.NewTextClassifierRetryClient(&http.Client{Timeout: timeout}, retries),
		timeout: timeout,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// classifyPayload is the §6.2 strict JSON object the model is
// instructed to emit.
type classifyPayload struct {
	Gibberish struct {
		Probability float64 `json:"probability"`
		Evidence    string  `json:"evidence"`
	} `json:"gibberish"`
	CopyPaste struct {
		Probability float64 `json:"probability"`
		Evidence    string  `json:"evidence"`
	} `json:"copy_paste"`
	Relevance struct {
		OffTopicProbability float64 `json:"off_topic_probability"`
		Evidence            string  `json:"evidence"`
	} `json:"relevance"`
	Generic struct {
		Probability float64 `json:"probability"`
		Evidence    string  `json:"evidence"`
	} `json:"generic"`
	Quality struct {
		Score     float64 `json:"score"`
		Rationale string  `json:"rationale"`
	} `json:"quality"`
}

func (o *OpenAI) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	if o.apiKey == "" {
		return nil, fmt.Errorf("text: OpenAI classifier requires an API key")
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Classify this survey response for bot/low-quality signals. "+
			"question=%q response=%q min_length=%d. "+
			"Return strict JSON with fields gibberish, copy_paste, relevance, generic, quality "+
			"exactly as documented, no prose.",
		req.QuestionText, req.ResponseText, req.MinLength,
	)

	body := chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	}
	body.ResponseFormat.Type = "json_object"

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("text: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("text: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("text: classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("text: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("text: classifier returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, fmt.Errorf("text: parse response: %w (body: %s)", err, string(respBody))
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("text: classifier API error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("text: classifier returned no choices")
	}

	var payload classifyPayload
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("text: parse classification payload: %w", err)
	}

	return &ClassifyResult{
		Gibberish: Probability{Probability: payload.Gibberish.Probability, Evidence: payload.Gibberish.Evidence},
		CopyPaste: Probability{Probability: payload.CopyPaste.Probability, Evidence: payload.CopyPaste.Evidence},
		Relevance: Relevance{OffTopicProbability: payload.Relevance.OffTopicProbability, Evidence: payload.Relevance.Evidence},
		Generic:   Probability{Probability: payload.Generic.Probability, Evidence: payload.Generic.Evidence},
		Quality:   Quality{Score: payload.Quality.Score, Rationale: payload.Quality.Rationale},
	}, nil
}
