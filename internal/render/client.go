// Package render drives the remote render service: job submission and
// status polling until a terminal state.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusFetching  Status = "fetching"
	StatusRendering Status = "rendering"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status ends the job's life cycle. Transitions
// happen only through polling; there are no push notifications.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Job is the remote render job as last observed. URL is set once the job is
// done; Error once it has failed.
type Job struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// API is the render service surface the orchestrator needs.
type API interface {
	Submit(ctx context.Context, doc timeline.Document) (string, error)
	Status(ctx context.Context, id string) (Job, error)
}

// Client talks to the render service over HTTP with an API-key header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type submitRequest struct {
	Timeline timeline.Timeline `json:"timeline"`
	Output   timeline.Output   `json:"output"`
}

type submitResponse struct {
	Response struct {
		ID string `json:"id"`
	} `json:"response"`
}

type statusResponse struct {
	Response struct {
		Status Status `json:"status"`
		URL    string `json:"url"`
		Error  string `json:"error"`
	} `json:"response"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Submit posts the document's {timeline, output} body and returns the job id.
// The document must already carry only remote asset sources.
func (c *Client) Submit(ctx context.Context, doc timeline.Document) (string, error) {
	body, err := json.Marshal(submitRequest{Timeline: doc.Timeline, Output: doc.Output})
	if err != nil {
		return "", fmt.Errorf("marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("render submit failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Message != "" {
			return "", fmt.Errorf("render submit failed: %s", e.Message)
		}
		return "", fmt.Errorf("render submit failed: HTTP %d", resp.StatusCode)
	}

	var result submitResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode render response: %w", err)
	}
	if result.Response.ID == "" {
		return "", fmt.Errorf("render response carries no job id")
	}

	c.logger.Info("render job submitted", "render_id", result.Response.ID)
	return result.Response.ID, nil
}

// Status fetches the job's current state.
func (c *Client) Status(ctx context.Context, id string) (Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/render/"+id, nil)
	if err != nil {
		return Job{}, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Job{}, fmt.Errorf("render status failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Message != "" {
			return Job{}, fmt.Errorf("render status failed: %s", e.Message)
		}
		return Job{}, fmt.Errorf("render status failed: HTTP %d", resp.StatusCode)
	}

	var result statusResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Job{}, fmt.Errorf("decode status response: %w", err)
	}

	return Job{
		ID:     id,
		Status: result.Response.Status,
		URL:    result.Response.URL,
		Error:  result.Response.Error,
	}, nil
}
