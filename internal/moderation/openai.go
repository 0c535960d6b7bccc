package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultModerationModel = "omni-moderation-latest"

// OpenAIClassifier calls an OpenAI-compatible /moderations endpoint.
type OpenAIClassifier struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIClassifier returns nil when apiKey is empty so the gate falls
// back to the keyword classifier.
func NewOpenAIClassifier(baseURL, apiKey, model string, timeout time.Duration) *OpenAIClassifier {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = defaultModerationModel
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenAIClassifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []Result `json:"results"`
}

// Classify sends text to the provider and returns the first result.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(moderationRequest{Model: c.model, Input: text})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/moderations", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("moderation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("moderation request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode moderation response: %w", err)
	}
	if len(out.Results) == 0 {
		return Result{}, fmt.Errorf("moderation response has no results")
	}
	res := out.Results[0]
	if res.Categories == nil {
		res.Categories = map[string]bool{}
	}
	return res, nil
}
