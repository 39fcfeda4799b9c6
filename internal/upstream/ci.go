package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	feedBuffer = 256
	logBuffer  = 64
)

// StatusError reports a non-200 response from the CI host.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ci host returned %d for %s", e.Code, e.URL)
}

// Client talks to the CI host: the global event feed, per-job log tails and
// the repository listing consumed by the project sync job.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		// No overall timeout: feed and log streams are long-lived.
		http: &http.Client{},
	}
}

func (c *Client) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// OpenFeedStream connects to the CI host's global build-event feed. The
// handle is reconnect-unaware: when the connection drops the stream ends and
// stays ended.
func (c *Client) OpenFeedStream(ctx context.Context) (Stream, error) {
	req, err := c.newRequest(ctx, "/api/stream")
	if err != nil {
		return nil, err
	}
	return openSSE(ctx, c.http, req, feedBuffer)
}

// OpenLogStream connects to the live log tail of one job. One handle per
// call; lines arrive in emission order.
func (c *Client) OpenLogStream(ctx context.Context, owner, name, number, job string) (Stream, error) {
	path := fmt.Sprintf("/api/repos/%s/%s/builds/%s/jobs/%s/stream",
		url.PathEscape(owner), url.PathEscape(name), url.PathEscape(number), url.PathEscape(job))
	req, err := c.newRequest(ctx, path)
	if err != nil {
		return nil, err
	}
	return openSSE(ctx, c.http, req, logBuffer)
}

// RemoteProject is a repository as the CI host reports it.
type RemoteProject struct {
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	LastBuild string    `json:"last_build_number"`
	LastState string    `json:"last_build_state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListProjects fetches the repository listing for the sync job.
func (c *Client) ListProjects(ctx context.Context) ([]RemoteProject, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := c.newRequest(ctx, "/api/repos")
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.String()}
	}

	var projects []RemoteProject
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		return nil, fmt.Errorf("failed to decode repository listing: %w", err)
	}
	return projects, nil
}
