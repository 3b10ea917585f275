// Package videogen is a client for the fal.ai queue API, used to run
// Sora-2 text-to-video generation.
package videogen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultModel = "fal-ai/sora-2/text-to-video"

// Options control the output format of a generation.
type Options struct {
	Resolution  string // e.g. "720p"
	AspectRatio string // e.g. "16:9"
	Duration    int    // seconds
}

// Video is a completed generation result.
type Video struct {
	URL     string
	VideoID string
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fal API error %d: %s", e.Status, e.Body)
}

// IsAuthError reports whether err is an authentication failure (bad key).
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}

// IsValidationError reports whether err is a prompt validation failure.
func IsValidationError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests
}

// Client is a fal.ai queue client
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	pollInterval time.Duration
}

// NewClient creates a new fal.ai client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   defaultModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		pollInterval: 5 * time.Second,
	}
}

type queuedRequest struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type queueStatus struct {
	Status string `json:"status"` // IN_QUEUE, IN_PROGRESS, COMPLETED
}

type generateResult struct {
	Video *struct {
		URL string `json:"url"`
	} `json:"video"`
	VideoID string `json:"video_id"`
}

// Generate submits a prompt to the queue and blocks until the video is
// ready or ctx is cancelled. Generation regularly takes minutes.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (*Video, error) {
	body := map[string]interface{}{
		"prompt": prompt,
	}
	if opts.Resolution != "" {
		body["resolution"] = opts.Resolution
	}
	if opts.AspectRatio != "" {
		body["aspect_ratio"] = opts.AspectRatio
	}
	if opts.Duration > 0 {
		body["duration"] = opts.Duration
	}

	var queued queuedRequest
	if err := c.doJSON(ctx, "POST", c.baseURL+"/"+c.model, body, &queued); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	if err := c.waitForCompletion(ctx, queued.StatusURL); err != nil {
		return nil, err
	}

	var result generateResult
	if err := c.doJSON(ctx, "GET", queued.ResponseURL, nil, &result); err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}

	if result.Video == nil || result.Video.URL == "" {
		return nil, errors.New("no video in result")
	}

	return &Video{
		URL:     result.Video.URL,
		VideoID: result.VideoID,
	}, nil
}

func (c *Client) waitForCompletion(ctx context.Context, statusURL string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var status queueStatus
		if err := c.doJSON(ctx, "GET", statusURL, nil, &status); err != nil {
			return fmt.Errorf("poll status: %w", err)
		}
		if status.Status == "COMPLETED" {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = strings.NewReader(string(jsonData))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Key "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
	}

	return nil
}
