package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sendroom/sendroom/internal/provider/resilience"
)

// Client errors.
var (
	ErrWorkerUnavailable = errors.New("archive worker unavailable")
)

// Client creates archives from batches. Implemented by the HTTP client below
// and by test fakes.
type Client interface {
	// CreateArchive submits one batch to the archive worker and returns the
	// time-limited download URL of the produced archive.
	CreateArchive(ctx context.Context, req Request) (string, error)
}

// ClientConfig holds configuration for the HTTP archive worker client.
type ClientConfig struct {
	// Endpoint is the worker's batch-processing URL.
	Endpoint string

	// APIKey authenticates this service to the worker.
	APIKey string

	// Timeout is the per-invocation ceiling. A batch that exceeds it
	// surfaces as a batch failure. Zipping and uploading a multi-gigabyte
	// batch is slow, so this is much longer than a typical API timeout.
	Timeout time.Duration
}

// HTTPClient calls the archive worker over HTTP through the shared resilient
// client (circuit breaker plus retry with exponential backoff).
type HTTPClient struct {
	config ClientConfig
	client *resilience.Client
}

// NewHTTPClient creates a new archive worker client.
func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}

	resilienceCfg := resilience.DefaultClientConfig("archive-worker")
	resilienceCfg.Timeout = cfg.Timeout
	// Retrying a half-finished zip run re-reads every file; one retry only.
	resilienceCfg.MaxRetries = 1

	client := resilience.NewClient(resilienceCfg)
	resilience.GlobalRegistry.Register("archive-worker", client)

	return &HTTPClient{
		config: cfg,
		client: client,
	}
}

// CreateArchive submits one batch to the archive worker.
func (c *HTTPClient) CreateArchive(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal archive request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create archive request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		resilience.GlobalRegistry.RecordFailure("archive-worker", err)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return "", ErrWorkerUnavailable
		}
		return "", fmt.Errorf("archive worker call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := c.decodeError(resp)
		resilience.GlobalRegistry.RecordFailure("archive-worker", err)
		return "", err
	}

	var archiveResp Response
	if err := json.NewDecoder(resp.Body).Decode(&archiveResp); err != nil {
		return "", fmt.Errorf("decode archive response: %w", err)
	}
	if archiveResp.DownloadURL == "" {
		return "", errors.New("archive worker returned no download URL")
	}

	resilience.GlobalRegistry.RecordSuccess("archive-worker")
	return archiveResp.DownloadURL, nil
}

// decodeError extracts the worker's error message from a non-200 response.
func (c *HTTPClient) decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var workerErr errorResponse
	if err := json.Unmarshal(body, &workerErr); err == nil && workerErr.Error != "" {
		return fmt.Errorf("archive worker: %s", workerErr.Error)
	}
	return fmt.Errorf("archive worker returned status %d", resp.StatusCode)
}

// Ensure HTTPClient implements Client interface.
var _ Client = (*HTTPClient)(nil)
