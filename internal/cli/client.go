package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"encore/internal/auth"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password, username string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
		"username": username,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Dashboard(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/dashboard", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ListArtists(ctx context.Context, accessToken string, available bool) (map[string]any, error) {
	path := "/v1/artists"
	if available {
		path = "/v1/artists?available=1"
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ArtistDetail(ctx context.Context, accessToken string, artistID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/artists/%d", artistID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) SignArtist(ctx context.Context, accessToken string, artistID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/artists/%d/sign", artistID), accessToken, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) StartActivity(ctx context.Context, accessToken string, artistID int64, activity, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/artists/%d/activities", artistID), accessToken, map[string]any{
		"activity": activity,
	}, &out, idem)
	return out, err
}

func (c *Client) CancelActivity(ctx context.Context, accessToken string, artistID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodDelete, fmt.Sprintf("/v1/artists/%d/activities", artistID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ScheduleActivity(ctx context.Context, accessToken string, artistID int64, activity, startAt, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/artists/%d/scheduled-actions", artistID), accessToken, map[string]any{
		"activity": activity,
		"start_at": startAt,
	}, &out, idem)
	return out, err
}

func (c *Client) CancelScheduledAction(ctx context.Context, accessToken string, artistID, scheduledID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodDelete, fmt.Sprintf("/v1/artists/%d/scheduled-actions/%d", artistID, scheduledID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ListVenues(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/venues", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) BookPerformance(ctx context.Context, accessToken string, artistID, venueID int64, scheduledFor string, ticketPrice float64, durationMinutes int, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/performances", accessToken, map[string]any{
		"artist_id":        artistID,
		"venue_id":         venueID,
		"scheduled_for":    scheduledFor,
		"ticket_price":     ticketPrice,
		"duration_minutes": durationMinutes,
	}, &out, idem)
	return out, err
}

func (c *Client) ListPerformances(ctx context.Context, accessToken, scope string) (map[string]any, error) {
	path := "/v1/performances"
	if scope != "" {
		path += "?scope=" + scope
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) PerformanceDetail(ctx context.Context, accessToken string, performanceID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/performances/%d", performanceID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) PerformanceEstimate(ctx context.Context, accessToken string, performanceID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/performances/%d/estimate", performanceID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) CompletePerformance(ctx context.Context, accessToken string, performanceID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/performances/%d/complete", performanceID), accessToken, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) CancelPerformance(ctx context.Context, accessToken string, performanceID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/performances/%d/cancel", performanceID), accessToken, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) ListTransactions(ctx context.Context, accessToken string, limit int) (map[string]any, error) {
	path := "/v1/transactions"
	if limit > 0 {
		path = fmt.Sprintf("/v1/transactions?limit=%d", limit)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) SyncReplay(ctx context.Context, accessToken string, commands []map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/sync/replay", accessToken, map[string]any{
		"commands": commands,
	}, &out, "")
	return out, err
}

func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, accessToken, body, &out, idem)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
