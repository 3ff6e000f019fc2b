package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	apperrors "github.com/soundcraft/server/internal/shared/errors"
	"github.com/soundcraft/server/internal/shared/metrics"
)

// Client wraps gateway HTTP calls with a timeout, a circuit breaker and
// request duration metrics. One client per gateway.
type Client struct {
	gateway string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	metrics *metrics.Metrics
}

// NewClient creates a gateway HTTP client.
func NewClient(gateway string, timeout time.Duration, m *metrics.Metrics) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        gateway,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		gateway: gateway,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		metrics: m,
	}
}

// DoJSON performs an HTTP request with a JSON body (nil for none) and
// decodes the JSON response into out (nil to discard). Non-2xx responses
// come back as upstream errors carrying the gateway's status code.
func (c *Client) DoJSON(ctx context.Context, operation, method, url string, headers map[string]string, reqBody, out any) error {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, method, url, headers, reqBody)
	})
	c.metrics.GatewayRequestDuration.
		WithLabelValues(c.gateway, operation).
		Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s response: %w", c.gateway, err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, reqBody any) ([]byte, error) {
	var payload io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Upstream(http.StatusBadGateway, fmt.Sprintf("%s unreachable: %v", c.gateway, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Upstream(resp.StatusCode, fmt.Sprintf("%s returned %d: %s", c.gateway, resp.StatusCode, truncate(body, 256)))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
