package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/genomeai/platform/common/models"
)

// RunnerClient calls the runner execution engine
type RunnerClient struct {
	baseURL string
	http    *HTTPClient
	logger  Logger
}

// NewRunnerClient creates a runner client. timeout bounds one whole job.
func NewRunnerClient(baseURL string, timeout time.Duration, logger Logger) *RunnerClient {
	httpClient := &http.Client{
		Timeout: timeout,
	}

	return &RunnerClient{
		baseURL: baseURL,
		http:    NewHTTPClient(httpClient, logger),
		logger:  logger,
	}
}

// Dispatch POSTs to a runner endpoint and decodes the job outcome. A nil body
// sends no payload. Any transport error, non-2xx status or undecodable body
// is returned as an error.
func (c *RunnerClient) Dispatch(ctx context.Context, path string, body []byte) (*models.RunnerResponse, error) {
	url := c.baseURL + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	start := time.Now()
	c.logger.Info("dispatching to runner", "url", url, "has_body", body != nil)

	resp, err := c.http.DoRequest(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, fmt.Errorf("runner request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read runner response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("runner returned status %d: %s", resp.StatusCode, truncate(raw, 512))
	}

	var out models.RunnerResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode runner response: %w", err)
	}
	if out.Status == "" {
		return nil, fmt.Errorf("runner response missing status")
	}

	c.logger.Info("runner responded",
		"url", url,
		"runner_job_id", out.RunID,
		"status", out.Status,
		"artifacts", len(out.Artifacts),
		"duration_ms", time.Since(start).Milliseconds())

	return &out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
