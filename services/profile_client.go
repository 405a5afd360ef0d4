package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"airdrop-campaign/models"
	"airdrop-campaign/utils"

	"github.com/cenkalti/backoff/v5"
)

// ErrRemoteUnavailable wraps transport failures talking to the profile service.
var ErrRemoteUnavailable = errors.New("profile service unavailable")

var errRateLimited = errors.New("profile service rate limited the request")

const maxResponseBody = 1 << 20

// RemoteTask is a task definition served by GET tasks.
type RemoteTask struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	URL            string          `json:"url,omitempty"`
	Type           models.TaskType `json:"type"`
	Points         int64           `json:"points"`
	MaxCompletions int             `json:"maxCompletions"`
}

// RemoteTaskProgress is one entry of GET task-progress.
type RemoteTaskProgress struct {
	TaskID      string `json:"taskId"`
	Completions int    `json:"completions"`
	Completed   bool   `json:"completed"`
}

// RemoteProgress is the body of GET task-progress.
type RemoteProgress struct {
	Tasks       []RemoteTaskProgress `json:"tasks"`
	TotalPoints int64                `json:"totalPoints"`
	CurrentTier string               `json:"currentTier"`
}

// RemoteCompletion is the body of POST tasks/{id}/complete.
type RemoteCompletion struct {
	TaskID      string `json:"taskId"`
	Completions int    `json:"completions"`
	Completed   bool   `json:"completed"`
	TotalPoints int64  `json:"totalPoints"`
}

// RemoteSpin is the body of POST spinner/spin.
type RemoteSpin struct {
	Points      int64  `json:"points"`
	Description string `json:"description"`
	TotalPoints int64  `json:"totalPoints"`
	SpinsToday  int    `json:"spinsToday"`
}

// RemoteSpinnerStatus is the body of GET spinner/status.
type RemoteSpinnerStatus struct {
	CanSpin      bool       `json:"canSpin"`
	SpinsToday   int        `json:"spinsToday"`
	LastSpinTime *time.Time `json:"lastSpinTime,omitempty"`
}

// ProfileClient talks to the remote profile/task service. Requests are
// retried with exponential backoff only when the service answers 429.
type ProfileClient struct {
	BaseURL *url.URL
	Token   string
	Client  *http.Client

	MaxTries       uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func NewProfileClient(baseURL, token string) (*ProfileClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid profile service URL '%s': %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid profile service URL '%s': missing scheme or host", baseURL)
	}
	return &ProfileClient{
		BaseURL:        u,
		Token:          token,
		Client:         utils.NewHTTPClient(10 * time.Second),
		MaxTries:       5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
	}, nil
}

func (c *ProfileClient) Tasks(ctx context.Context, wallet string) ([]RemoteTask, error) {
	var out []RemoteTask
	err := c.do(ctx, http.MethodGet, wallet, &out, "tasks")
	return out, err
}

func (c *ProfileClient) Progress(ctx context.Context, wallet string) (*RemoteProgress, error) {
	var out RemoteProgress
	if err := c.do(ctx, http.MethodGet, wallet, &out, "task-progress"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ProfileClient) CompleteTask(ctx context.Context, wallet, taskID string) (*RemoteCompletion, error) {
	var out RemoteCompletion
	if err := c.do(ctx, http.MethodPost, wallet, &out, "tasks", taskID, "complete"); err != nil {
		return nil, err
	}
	if out.TaskID == "" {
		out.TaskID = taskID
	}
	return &out, nil
}

func (c *ProfileClient) Spin(ctx context.Context, wallet string) (*RemoteSpin, error) {
	var out RemoteSpin
	if err := c.do(ctx, http.MethodPost, wallet, &out, "spinner", "spin"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ProfileClient) SpinnerStatus(ctx context.Context, wallet string) (*RemoteSpinnerStatus, error) {
	var out RemoteSpinnerStatus
	if err := c.do(ctx, http.MethodGet, wallet, &out, "spinner", "status"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ProfileClient) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialBackoff
	b.MaxInterval = c.MaxBackoff
	return b
}

func (c *ProfileClient) do(ctx context.Context, method, wallet string, out any, path ...string) error {
	endpoint := c.BaseURL.JoinPath(path...).String()

	tries := c.MaxTries
	if tries == 0 {
		tries = 1
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Wallet-Address", wallet)
		if c.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.Token)
		}

		resp, err := c.Client.Do(req)
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %s %s: %v", ErrRemoteUnavailable, method, endpoint, err))
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode == http.StatusTooManyRequests {
			utils.LogWarn("[PROFILE] 429 from %s %s, backing off", method, endpoint)
			if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
				return struct{}{}, backoff.RetryAfter(secs)
			}
			return struct{}{}, errRateLimited
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: read %s: %v", ErrRemoteUnavailable, endpoint, err))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return struct{}{}, backoff.Permanent(fmt.Errorf("profile service %s %s returned %d: %s", method, endpoint, resp.StatusCode, truncate(string(body), 200)))
		}
		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("failed to decode profile service response: %w", err))
			}
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(c.newBackOff()), backoff.WithMaxTries(tries))
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
