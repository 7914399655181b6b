package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/kira/internal/adapters/repository"
	"github.com/okian/kira/internal/domain/model"
	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of an unexpected response is quoted in errors.
const maxErrorBody = 512

// Rejection is one event the service refused in a batch.
type Rejection struct {
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchResult is the decoded answer to POST /events/batch.
type BatchResult struct {
	Status   int         `json:"-"`
	Accepted int         `json:"accepted"`
	Rejected []Rejection `json:"rejected"`
}

// Backpressure reports whether the service refused the batch because its queue is full.
func (b BatchResult) Backpressure() bool {
	return b.Status == http.StatusTooManyRequests
}

// Client talks to the engagement service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client. A nil limiter means unpaced.
func NewClient(baseURL string, timeout time.Duration, limiter *rate.Limiter) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// NewLimiter paces submissions at perSecond events with room for one batch.
func NewLimiter(perSecond float64, batchSize int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), max(batchSize, int(perSecond)))
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	if err := c.getJSON(ctx, "/healthz", &out); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if out["status"] != "ok" {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, out["status"])
	}
	return nil
}

// SubmitBatch posts events to /events/batch after waiting for the limiter.
func (c *Client) SubmitBatch(ctx context.Context, events []model.EventPayload) (BatchResult, error) {
	if err := c.limiter.WaitN(ctx, len(events)); err != nil {
		return BatchResult{}, err
	}
	body, err := json.Marshal(struct {
		Events []model.EventPayload `json:"events"`
	}{events})
	if err != nil {
		return BatchResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events/batch", bytes.NewReader(body))
	if err != nil {
		return BatchResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return BatchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusTooManyRequests:
	default:
		return BatchResult{}, unexpected(resp)
	}
	res := BatchResult{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return BatchResult{}, fmt.Errorf("decode batch response: %w", err)
	}
	return res, nil
}

// Leaderboard fetches the top limit entries.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]repository.Entry, error) {
	var out []repository.Entry
	err := c.getJSON(ctx, "/leaderboard?limit="+strconv.Itoa(limit), &out)
	return out, err
}

// User fetches one user's rank and score.
func (c *Client) User(ctx context.Context, userID string) (repository.Entry, error) {
	var out repository.Entry
	err := c.getJSON(ctx, "/users/"+url.PathEscape(userID), &out)
	return out, err
}

// Stats fetches GET /stats.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.getJSON(ctx, "/stats", &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unexpected(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func unexpected(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpected, resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, bytes.TrimSpace(body))
}
