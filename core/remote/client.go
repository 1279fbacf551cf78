package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"task-mirror/core/reconcile"
	"task-mirror/core/utils"
)

// ErrStatus matches every StatusError with errors.Is.
var ErrStatus = errors.New("unexpected response status")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Is reports ErrStatus as the sentinel of every StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

// Client is the HTTP implementation of Source.
type Client struct {
	http *http.Client
	base string
	cfg  Config
}

var _ Source = (*Client)(nil)

// NewClient creates a Client for cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid remote base url %q: %w", cfg.BaseURL, err)
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}

	return &Client{
		http: &http.Client{Transport: transport},
		base: strings.TrimSuffix(cfg.BaseURL, "/"),
		cfg:  cfg,
	}, nil
}

// get issues an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	target := c.base + "/" + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Access-Token", c.cfg.AccessToken)
	req.Header.Set("X-Client-ID", c.cfg.ClientID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("GET %s: failed to read body: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: invalid JSON: %w", path, err)
	}
	return nil
}

func (c *Client) FetchRoot(ctx context.Context) (reconcile.Record, error) {
	var rec reconcile.Record
	err := c.get(ctx, "root", nil, &rec)
	return rec, err
}

func (c *Client) FetchUser(ctx context.Context) (reconcile.Record, error) {
	var rec reconcile.Record
	err := c.get(ctx, "user", nil, &rec)
	return rec, err
}

func (c *Client) FetchLists(ctx context.Context) ([]reconcile.Record, error) {
	var recs []reconcile.Record
	err := c.get(ctx, "lists", nil, &recs)
	return recs, err
}

func (c *Client) FetchListPositions(ctx context.Context) ([]int64, error) {
	return c.positions(ctx, "list_positions", nil)
}

func (c *Client) FetchTasks(ctx context.Context, listID int64, completed, subtasks bool) ([]reconcile.Record, error) {
	params := url.Values{}
	params.Set("list_id", strconv.FormatInt(listID, 10))
	params.Set("completed", strconv.FormatBool(completed))
	path := "tasks"
	if subtasks {
		path = "subtasks"
	}

	var recs []reconcile.Record
	err := c.get(ctx, path, params, &recs)
	return recs, err
}

func (c *Client) FetchTaskPositions(ctx context.Context, listID int64) ([]int64, error) {
	return c.positions(ctx, "task_positions", listParams(listID))
}

func (c *Client) FetchSubtaskPositions(ctx context.Context, listID int64) ([]int64, error) {
	return c.positions(ctx, "subtask_positions", listParams(listID))
}

func (c *Client) FetchReminders(ctx context.Context) ([]reconcile.Record, error) {
	var recs []reconcile.Record
	err := c.get(ctx, "reminders", nil, &recs)
	return recs, err
}

func (c *Client) FetchSettings(ctx context.Context) ([]reconcile.Record, error) {
	var recs []reconcile.Record
	err := c.get(ctx, "settings", nil, &recs)
	return recs, err
}

// positions decodes the [{"values": [...]}] shape of the position endpoints.
// Several entries are concatenated in order.
func (c *Client) positions(ctx context.Context, path string, params url.Values) ([]int64, error) {
	var entries []struct {
		Values []any `json:"values"`
	}
	if err := c.get(ctx, path, params, &entries); err != nil {
		return nil, err
	}

	var ids []int64
	for _, e := range entries {
		for _, v := range e.Values {
			ids = append(ids, utils.ToInt64(v))
		}
	}
	return ids, nil
}

func listParams(listID int64) url.Values {
	params := url.Values{}
	params.Set("list_id", strconv.FormatInt(listID, 10))
	return params
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
