package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sketchcourse/api/internal/config"
)

// RateLimitError signals a provider-side throttle (HTTP 429 class). It is
// transient: callers retry it with backoff.
type RateLimitError struct {
	Provider string
	Body     string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %s", e.Provider, e.Body)
}

// Transient marks the error as retryable for the fan-out runner.
func (e *RateLimitError) Transient() bool { return true }

// ReplicateClient handles image generation through a Replicate-style
// predictions API.
type ReplicateClient struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	model      string
}

// PredictionInput is the generation input payload
type PredictionInput struct {
	Prompt            string  `json:"prompt"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	Guidance          float64 `json:"guidance"`
}

// PredictionRequest is the request body for a blocking prediction
type PredictionRequest struct {
	Input PredictionInput `json:"input"`
}

// PredictionResponse is the provider's prediction result
type PredictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error,omitempty"`
}

// NewReplicateClient creates a new image generation client
func NewReplicateClient(cfg *config.ReplicateConfig) *ReplicateClient {
	return &ReplicateClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		model:    cfg.Model,
	}
}

// GenerateImage runs one blocking prediction and returns the URL of the
// generated image. A 429 or a rate-limit error body yields RateLimitError.
func (c *ReplicateClient) GenerateImage(ctx context.Context, input PredictionInput) (string, error) {
	reqBody := PredictionRequest{Input: input}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Prefer", "wait")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &RateLimitError{Provider: "replicate", Body: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if strings.Contains(strings.ToLower(string(respBody)), "rate limit") {
			return "", &RateLimitError{Provider: "replicate", Body: string(respBody)}
		}
		return "", fmt.Errorf("replicate API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var pred PredictionResponse
	if err := json.Unmarshal(respBody, &pred); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if pred.Error != "" {
		return "", fmt.Errorf("prediction failed: %s", pred.Error)
	}

	return firstOutputURL(pred.Output)
}

// Download fetches generated image bytes from the provider's delivery URL.
func (c *ReplicateClient) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download failed (status %d)", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// IsConfigured returns true if the client has valid configuration
func (c *ReplicateClient) IsConfigured() bool {
	return c.apiToken != ""
}

// firstOutputURL extracts a usable URL from the prediction output, which is
// either a JSON array of URLs or a single string.
func firstOutputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("prediction returned no output")
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err == nil {
		if len(urls) == 0 {
			return "", fmt.Errorf("prediction returned empty output")
		}
		return urls[0], nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}

	return "", fmt.Errorf("unrecognized prediction output: %s", string(raw))
}
