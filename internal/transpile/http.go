package transpile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

const (
	transpilePath   = "/transpile"
	maxResponseSize = 16 * 1024 * 1024
)

// HTTPClient talks to the transpile web service.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewHTTPClient creates a client for the service at baseURL. A zero
// timeout leaves requests unbounded.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &HTTPClient{
		endpoint:   strings.TrimRight(baseURL, "/") + transpilePath,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "transpile",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("transpile breaker state changed", "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Submit posts source and decodes the reply. A reply with success=false
// is not counted against the breaker.
func (c *HTTPClient) Submit(ctx context.Context, source string) (Result, error) {
	body, err := json.Marshal(wireRequest{Code: source})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	requestID := uuid.NewString()
	started := time.Now()

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, requestID, body)
	})
	if err != nil {
		c.logger.Warn("transpile request failed",
			"request_id", requestID, "duration", time.Since(started), "error", err)
		if IsMalformed(err) {
			return Result{}, err
		}
		return Result{}, &TransportError{Backend: BackendHTTP, Err: err}
	}

	result := out.(Result)
	c.logger.Info("transpile request completed",
		"request_id", requestID, "duration", time.Since(started), "succeeded", result.Succeeded)
	return result, nil
}

func (c *HTTPClient) post(ctx context.Context, requestID string, body []byte) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return resolve(Malformed{Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)})
	}
	return resolve(Decode(data))
}
