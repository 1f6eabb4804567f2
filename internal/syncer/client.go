package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ledgercast/internal/api"
	"ledgercast/internal/job"
)

// Transport is the daemon API surface the controller depends on. Tests swap
// in a scripted implementation; production code uses Client.
type Transport interface {
	Start(ctx context.Context, target string, jobType job.Type, force bool) (api.StartResponse, error)
	Status(ctx context.Context, target string, jobType job.Type) (api.StatusResponse, error)
	Cancel(ctx context.Context, target string, jobType job.Type) (api.CancelResponse, error)
	OpenStream(ctx context.Context, target string, jobType job.Type) (EventStream, error)
}

// EventStream is a live feed of job events. The channel closes when the
// server ends the stream or the connection drops; Err distinguishes the two.
type EventStream interface {
	Events() <-chan job.Event
	Err() error
	Close() error
}

// Client talks to the ledgercast daemon API over HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client
	// streamc has no overall timeout; stream connections stay open for the
	// lifetime of a job.
	streamc *http.Client
}

// NewClient builds a client for the daemon bound at address, which may be a
// bare host:port or a full http URL.
func NewClient(address string) *Client {
	base := strings.TrimRight(strings.TrimSpace(address), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		streamc: &http.Client{},
	}
}

// BaseURL reports the resolved daemon address.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) jobURL(target string, jobType job.Type, suffix string) string {
	path := fmt.Sprintf("/api/jobs/%s/%s%s", url.PathEscape(target), url.PathEscape(string(jobType)), suffix)
	return c.baseURL + path
}

// Start asks the daemon to begin generation for the pair. force supersedes
// an active job instead of reusing it.
func (c *Client) Start(ctx context.Context, target string, jobType job.Type, force bool) (api.StartResponse, error) {
	endpoint := c.jobURL(target, jobType, "")
	if force {
		endpoint += "?force=1"
	}

	var out api.StartResponse
	if err := c.do(ctx, http.MethodPost, endpoint, &out); err != nil {
		return api.StartResponse{}, err
	}
	return out, nil
}

// Status fetches the current record snapshot for the pair.
func (c *Client) Status(ctx context.Context, target string, jobType job.Type) (api.StatusResponse, error) {
	var out api.StatusResponse
	if err := c.do(ctx, http.MethodGet, c.jobURL(target, jobType, ""), &out); err != nil {
		return api.StatusResponse{}, err
	}
	return out, nil
}

// Cancel requests cancellation of the pair's current job.
func (c *Client) Cancel(ctx context.Context, target string, jobType job.Type) (api.CancelResponse, error) {
	var out api.CancelResponse
	if err := c.do(ctx, http.MethodDelete, c.jobURL(target, jobType, ""), &out); err != nil {
		return api.CancelResponse{}, err
	}
	return out, nil
}

// List fetches all records, optionally filtered by status.
func (c *Client) List(ctx context.Context, statuses ...job.Status) (api.ListResponse, error) {
	endpoint := c.baseURL + "/api/jobs"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", string(status))
		}
		endpoint += "?" + values.Encode()
	}

	var out api.ListResponse
	if err := c.do(ctx, http.MethodGet, endpoint, &out); err != nil {
		return api.ListResponse{}, err
	}
	return out, nil
}

// OpenStream connects to the pair's live event stream.
func (c *Client) OpenStream(ctx context.Context, target string, jobType job.Type) (EventStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jobURL(target, jobType, "/stream"), nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}
	return newSSEStream(resp.Body), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return apiError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError carries the HTTP status and server-reported message for a
// non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api returned %d", e.Code)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(body))
	var payload api.ErrorResponse
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		message = payload.Error
	}
	return &StatusError{Code: resp.StatusCode, Message: message}
}

// IsConflict reports whether err is the daemon refusing to supersede an
// active job.
func IsConflict(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusConflict
}

// IsNotFound reports whether err is the daemon reporting no job for the pair.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

// IsUnavailable reports whether err looks like the daemon being unreachable
// rather than a request the daemon rejected. These failures count toward the
// stale threshold instead of ending synchronization.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusBadGateway ||
			statusErr.Code == http.StatusServiceUnavailable ||
			statusErr.Code == http.StatusGatewayTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	message := err.Error()
	return strings.Contains(message, "connection refused") ||
		strings.Contains(message, "connection reset") ||
		strings.Contains(message, "no such host")
}
