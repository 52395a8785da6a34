// Package mastodon is the REST client for Mastodon-compatible servers:
// instance capabilities, status search, media upload, status creation and
// the OAuth application flow.
package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mastothread/internal/domain"
)

// rateLimitHeader carries the caller's remaining request budget on every
// API response.
const rateLimitHeader = "X-RateLimit-Remaining"

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Client talks to one server, optionally authenticated.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// New creates a client for a bare server hostname.
func New(server, token string) *Client {
	return NewWithBaseURL("https://"+server, token)
}

// NewWithBaseURL creates a client against an explicit base URL. Tests use
// this to point at a local server.
func NewWithBaseURL(baseURL, token string) *Client {
	return &Client{
		httpClient: newHTTPClient(),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
	}
}

// do executes a request with the bearer token attached and rejects
// non-2xx responses. The response must be closed by the caller.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%s: %w", req.URL.Path, domain.ErrRateLimited)
		}
		return nil, fmt.Errorf("%s returned status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// getJSON performs a GET and decodes the body into out. It returns the
// rate-limit remaining reading from the response.
func (c *Client) getJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return domain.RateUnknown, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return domain.RateUnknown, err
	}
	defer resp.Body.Close()

	remaining := rateRemaining(resp)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return remaining, fmt.Errorf("decode %s response: %w", path, err)
	}
	return remaining, nil
}

// rateRemaining parses the remaining-budget header; absent or malformed
// readings map to RateUnknown.
func rateRemaining(resp *http.Response) int {
	v := resp.Header.Get(rateLimitHeader)
	if v == "" {
		return domain.RateUnknown
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return domain.RateUnknown
	}
	return n
}
