// Package client talks to the dieti API on behalf of a bot session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"dieti-tracker/internal/models"
)

// MinSearchLength is the shortest query sent to the search endpoint.
const MinSearchLength = 2

// StatusError is a non-2xx response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d", e.Status)
	}
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	searches *rate.Limiter
	lookups  singleflight.Group

	searchTimeout time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has no timeout of its
// own: every call is bounded by its context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSearchTimeout bounds a shared search request.
func WithSearchTimeout(d time.Duration) Option {
	return func(c *Client) { c.searchTimeout = d }
}

// WithSearchRate limits search requests to one per interval.
func WithSearchRate(interval time.Duration) Option {
	return func(c *Client) { c.searches = rate.NewLimiter(rate.Every(interval), 1) }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		http:     &http.Client{},
		searches: rate.NewLimiter(rate.Every(300*time.Millisecond), 1),

		searchTimeout: 8 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// AddFoodEntry stores entry. Posting an ID the store already has succeeds.
func (c *Client) AddFoodEntry(ctx context.Context, entry models.FoodLogEntry) error {
	return c.do(ctx, http.MethodPost, "/api/food", entry, nil)
}

// GetDailyTotals returns the stored totals for date. Every call issues its
// own request, so the result reflects all writes acknowledged before it.
func (c *Client) GetDailyTotals(ctx context.Context, date models.Date) (models.DailyIntake, error) {
	var intake models.DailyIntake
	q := url.Values{"date": {date.String()}}
	if err := c.do(ctx, http.MethodGet, "/api/intake/today?"+q.Encode(), nil, &intake); err != nil {
		return models.DailyIntake{}, err
	}
	return intake, nil
}

// GetHistory returns the daily rows of the last days days in ascending date
// order.
func (c *Client) GetHistory(ctx context.Context, days int) ([]models.DailyIntake, error) {
	var rows []models.DailyIntake
	q := url.Values{"days": {strconv.Itoa(days)}}
	if err := c.do(ctx, http.MethodGet, "/api/intake/history?"+q.Encode(), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetFoodLog(ctx context.Context, date models.Date) ([]models.FoodLogEntry, error) {
	var entries []models.FoodLogEntry
	if err := c.do(ctx, http.MethodGet, "/api/food/"+url.PathEscape(date.String()), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Search looks up foods and recipes. Queries shorter than MinSearchLength
// and queries without matches return no results. Identical queries in
// flight share one request; the catalog does not change with user writes.
func (c *Client) Search(ctx context.Context, query string) ([]models.NutritionalInfo, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return nil, nil
	}

	ch := c.lookups.DoChan(strings.ToLower(query), func() (any, error) {
		// Runs detached from the callers' contexts; each caller waits on its own.
		sctx, cancel := context.WithTimeout(context.Background(), c.searchTimeout)
		defer cancel()
		if err := c.searches.Wait(sctx); err != nil {
			return nil, err
		}
		var items []models.NutritionalInfo
		q := url.Values{"q": {query}}
		err := c.do(sctx, http.MethodGet, "/api/search?"+q.Encode(), nil, &items)
		if se, ok := err.(*StatusError); ok && se.Status == http.StatusNotFound {
			return []models.NutritionalInfo(nil), nil
		}
		return items, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.NutritionalInfo), nil
	}
}

func (c *Client) GetGoals(ctx context.Context) (models.Goal, error) {
	var g models.Goal
	if err := c.do(ctx, http.MethodGet, "/api/goals", nil, &g); err != nil {
		return models.Goal{}, err
	}
	return g, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(raw))
		}
		return &StatusError{Status: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
