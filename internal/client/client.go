// Package client provides a REST client for the docparse server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/docparse-go/internal/models"
)

// Client talks to the docparse server over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a new client.
// If endpoint is empty, uses DOCPARSE_SERVER_URL env var or defaults to localhost:8000.
// Timeout can be configured via DOCPARSE_CLIENT_TIMEOUT env var (default 10m for batch operations).
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("DOCPARSE_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8000"
	}
	endpoint = strings.TrimRight(endpoint, "/")

	timeout := 10 * time.Minute
	if t := os.Getenv("DOCPARSE_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Endpoint returns the server base URL the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) do(ctx context.Context, method, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server error: %s - %s", resp.Status, string(body))
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// BatchResult is the server's response to a batch start.
type BatchResult struct {
	Status string   `json:"status"`
	Jobs   []string `json:"jobs"`
}

// StartBatch triggers parsing of every document in the server's input directory.
// It returns the IDs of the jobs the server scheduled.
func (c *Client) StartBatch(ctx context.Context) (*BatchResult, error) {
	var result BatchResult
	if err := c.do(ctx, http.MethodPost, "/parse_documents", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConvertResult is the server's response to an HTML-to-text conversion.
type ConvertResult struct {
	Status          string `json:"status"`
	OutputDirectory string `json:"output_directory"`
	Files           int    `json:"files"`
}

// Convert asks the server to convert parsed HTML artifacts to grouped text files.
func (c *Client) Convert(ctx context.Context) (*ConvertResult, error) {
	var result ConvertResult
	if err := c.do(ctx, http.MethodPost, "/convert_html_to_txt", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs returns all jobs known to the server, most recent first.
func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	var result struct {
		Jobs []models.Job `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/jobs", &result); err != nil {
		return nil, err
	}
	return result.Jobs, nil
}

// GetJob returns a single job by ID.
func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := c.do(ctx, http.MethodGet, "/jobs/"+id, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Stats returns the server's operation metrics as raw JSON.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/stats", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// WatchJobs subscribes to the server's job event stream over a websocket.
// The onEvent callback is invoked for each event. Return an error from onEvent to abort.
func (c *Client) WatchJobs(ctx context.Context, onEvent func(models.JobEvent) error) error {
	wsEndpoint := c.endpoint
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, wsEndpoint+"/jobs/watch", nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	// Close the connection on cancellation so the blocked read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event models.JobEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := onEvent(event); err != nil {
			return err
		}
	}
}
