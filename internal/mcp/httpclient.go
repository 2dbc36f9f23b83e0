package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/replift/internal/analytics"
	"github.com/claude/replift/internal/models"
	"github.com/claude/replift/internal/tracker"
)

// HTTPClient implements Tracker by calling the RepLift REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies Tracker.
var _ Tracker = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

// getJSON fetches path and decodes the body into a T.
func getJSON[T any](ctx context.Context, c *HTTPClient, path string, params url.Values) (T, error) {
	var v T
	body, err := c.get(ctx, path, params)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return v, nil
}

func (c *HTTPClient) Overview(ctx context.Context) (*analytics.Overview, error) {
	return getJSON[*analytics.Overview](ctx, c, "/api/v1/overview", nil)
}

func (c *HTTPClient) Summary(ctx context.Context) (*analytics.Summary, error) {
	return getJSON[*analytics.Summary](ctx, c, "/api/v1/summary", nil)
}

func (c *HTTPClient) Calendar(ctx context.Context, year int, month time.Month) (*analytics.CalendarMonth, error) {
	params := url.Values{}
	if year != 0 {
		params.Set("year", strconv.Itoa(year))
	}
	if month != 0 {
		params.Set("month", strconv.Itoa(int(month)))
	}
	return getJSON[*analytics.CalendarMonth](ctx, c, "/api/v1/calendar", params)
}

func (c *HTTPClient) Records(ctx context.Context, limit int) ([]analytics.PersonalRecord, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return getJSON[[]analytics.PersonalRecord](ctx, c, "/api/v1/records", params)
}

func (c *HTTPClient) Evolutions(ctx context.Context) ([]analytics.ExerciseTrend, error) {
	return getJSON[[]analytics.ExerciseTrend](ctx, c, "/api/v1/exercises/evolution", nil)
}

func (c *HTTPClient) Evolution(ctx context.Context, exercise string, period analytics.Period) (*analytics.EvolutionSeries, error) {
	params := url.Values{}
	params.Set("period", string(period))
	return getJSON[*analytics.EvolutionSeries](ctx, c, "/api/v1/exercises/evolution/"+url.PathEscape(exercise), params)
}

func (c *HTTPClient) Achievements(ctx context.Context) (*tracker.Achievements, error) {
	return getJSON[*tracker.Achievements](ctx, c, "/api/v1/achievements", nil)
}

func (c *HTTPClient) Sessions(ctx context.Context, filter tracker.SessionFilter) ([]models.Session, error) {
	params := url.Values{}
	if !filter.Start.IsZero() {
		params.Set("start", filter.Start.Format(time.RFC3339))
	}
	if !filter.End.IsZero() {
		params.Set("end", filter.End.Format(time.RFC3339))
	}
	if filter.Program != "" {
		params.Set("program", filter.Program)
	}
	return getJSON[[]models.Session](ctx, c, "/api/v1/sessions", params)
}

func (c *HTTPClient) Programs(ctx context.Context) ([]models.Program, error) {
	return getJSON[[]models.Program](ctx, c, "/api/v1/programs", nil)
}
