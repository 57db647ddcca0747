package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/BizDesk/internal/pkg/entitlements"
)

// HTTPChecker queries the entitlement endpoint over HTTP.
type HTTPChecker struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPChecker(endpoint, apiKey string) *HTTPChecker {
	return &HTTPChecker{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPChecker) Check(ctx context.Context, email string) (*entitlements.CheckResult, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse entitlement endpoint: %w", err)
	}
	q := u.Query()
	q.Set("email", email)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entitlement request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("entitlement request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var res entitlements.CheckResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode entitlement response: %w", err)
	}
	return &res, nil
}
