package health

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPChecker performs a HEAD request against http_endpoint; any 2xx
// response is healthy.
type HTTPChecker struct {
	endpoint string
	client   *http.Client
}

// NewHTTPChecker creates an HTTP probe for endpoint.
func NewHTTPChecker(endpoint string) *HTTPChecker {
	return &HTTPChecker{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: probeTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Check performs the HTTP health check.
func (c *HTTPChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint, nil)
	if err != nil {
		return Result{Message: fmt.Sprintf("building request: %v", err), Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Message: fmt.Sprintf("request failed: %v", err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return Result{Healthy: true, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
}
