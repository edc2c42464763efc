// Package upstage implements the client for the remote document-parse API:
// asynchronous submission, fixed-interval status polling, and result download.
package upstage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Processing options sent with every submission. The service parses the
// document with forced OCR and returns HTML only.
const (
	optOCR           = "force"
	optCoordinates   = "false"
	optOutputFormats = "['html']"
	optModel         = "document-parse"
)

// Config holds the remote endpoint and credential, read once at startup and
// passed in explicitly so tests can inject fakes.
type Config struct {
	Endpoint     string
	APIKey       string
	PollInterval time.Duration
}

// Client talks to the remote document-parse service.
type Client struct {
	cfg        Config
	statusRoot string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a remote service client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		statusRoot: statusRoot(cfg.Endpoint),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// statusRoot derives the requests URL from the submit endpoint. The status
// resource lives beside the operation on the service root, not under it:
// .../document-ai/document-parse accepts submissions while
// .../document-ai/requests/{id} reports their status.
func statusRoot(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return strings.TrimRight(endpoint, "/") + "/requests"
	}
	u.Path = path.Join(path.Dir(strings.TrimRight(u.Path, "/")), "requests")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// submitResponse is the body of a 202 Accepted submission response.
type submitResponse struct {
	RequestID string `json:"request_id"`
}

// statusResponse is the body of a request status check.
type statusResponse struct {
	Status         string `json:"status"`
	FailureMessage string `json:"failure_message"`
	Batches        []struct {
		DownloadURL string `json:"download_url"`
	} `json:"batches"`
}

// downloadResponse is the body of a completed result download. The content
// block is optional; a payload without it yields an empty result.
type downloadResponse struct {
	Content struct {
		HTML string `json:"html"`
	} `json:"content"`
}

// Submit uploads the document at path and returns the service-assigned
// request ID. Any response status other than 202 yields ErrSubmissionRejected
// carrying the response body for diagnostics. The source file is streamed,
// never deleted.
func (c *Client) Submit(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy document: %w", err)
	}

	fields := map[string]string{
		"ocr":            optOCR,
		"coordinates":    optCoordinates,
		"output_formats": optOutputFormats,
		"model":          optModel,
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("%w: status %d: %s", ErrSubmissionRejected, resp.StatusCode, respBody)
	}

	var parsed submitResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrSubmissionRejected, err)
	}
	if parsed.RequestID == "" {
		return "", fmt.Errorf("%w: response missing request_id", ErrSubmissionRejected)
	}

	c.logger.Info("document submitted", "path", path, "request_id", parsed.RequestID)
	return parsed.RequestID, nil
}

// Poll checks the request status at the configured fixed interval until the
// remote reports a terminal state. On completion it returns the first result
// batch's download URL; on remote failure it returns ErrRemoteFailure with
// the service-provided message. A transport-level failure halts the loop with
// ErrPollTransport; there is no retry or backoff. The wait suspends only the
// calling goroutine, and ctx cancellation ends an otherwise unbounded loop.
func (c *Client) Poll(ctx context.Context, requestID string) (string, error) {
	statusURL := fmt.Sprintf("%s/%s", c.statusRoot, requestID)

	for {
		status, err := c.checkStatus(ctx, statusURL)
		if err != nil {
			return "", err
		}

		c.logger.Debug("poll status", "request_id", requestID, "status", status.Status)

		switch status.Status {
		case "completed":
			if len(status.Batches) == 0 || status.Batches[0].DownloadURL == "" {
				return "", fmt.Errorf("%w: completed response has no result batch", ErrPollTransport)
			}
			return status.Batches[0].DownloadURL, nil
		case "failed":
			return "", fmt.Errorf("%w: %s", ErrRemoteFailure, status.FailureMessage)
		}

		if err := sleep(ctx, c.cfg.PollInterval); err != nil {
			return "", fmt.Errorf("%w: %v", ErrPollTransport, err)
		}
	}
}

func (c *Client) checkStatus(ctx context.Context, url string) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPollTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrPollTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrPollTransport, resp.StatusCode, body)
	}

	var parsed statusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrPollTransport, err)
	}
	return &parsed, nil
}

// Download fetches a completed result payload and returns its HTML content.
// The download URL carries its own authorization, so no auth header is sent.
// A payload without a content block yields an empty string, not an error.
func (c *Client) Download(ctx context.Context, downloadURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrDownload, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrDownload, resp.StatusCode, body)
	}

	var parsed downloadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrDownload, err)
	}
	return parsed.Content.HTML, nil
}

// sleep waits for d without blocking sibling pipelines, returning early if
// ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
