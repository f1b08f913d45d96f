// Package client is a Go client for the tea-shop API together with the
// terminal shell built on it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/atinyakov/teashop/internal/models"
)

const (
	apiLogin   = "/api/auth/login"
	apiData    = "/api/data"
	apiToday   = "/api/today"
	apiClose   = "/api/close"
	apiReports = "/api/reports"
	apiExport  = "/api/reports/export"
)

// ErrNotLoggedIn is returned by authenticated calls made without a token.
var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// Data is the answer of GET /api/data.
type Data struct {
	Today   models.DailyTally `json:"today"`
	Reports []models.Report   `json:"reports"`
}

// UpdateResult is the answer of POST /api/today.
type UpdateResult struct {
	Today         models.DailyTally `json:"today"`
	UpdatedReport models.Report     `json:"updatedReport"`
	Reports       []models.Report   `json:"reports"`
}

// Client calls the shop API on behalf of one user.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Token is the bearer token sent with authenticated requests.
	Token string
}

// New returns a Client for baseURL using httpClient.
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

// Login exchanges phone and PIN for a token and keeps it on the client.
func (c *Client) Login(ctx context.Context, phone, pin string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"phone": phone, "pin": pin}
	if err := c.do(ctx, http.MethodPost, apiLogin, false, body, &out); err != nil {
		return "", err
	}
	c.Token = out.Token
	return out.Token, nil
}

// Data fetches today's tally and the report archive.
func (c *Client) Data(ctx context.Context) (Data, error) {
	var out Data
	err := c.do(ctx, http.MethodGet, apiData, true, nil, &out)
	return out, err
}

// countUpdate is one entry of a partial POST /api/today payload.
type countUpdate struct {
	ID    int   `json:"id"`
	Count int64 `json:"count"`
}

// UpdateCounts sends only the given categories for the current day. The
// server leaves every other count untouched.
func (c *Client) UpdateCounts(ctx context.Context, updates ...models.CountUpdate) (UpdateResult, error) {
	cats := make([]countUpdate, 0, len(updates))
	for _, u := range updates {
		cats = append(cats, countUpdate{ID: u.ID, Count: u.Count})
	}
	body := map[string]any{"today": map[string]any{"categories": cats}}

	var out UpdateResult
	err := c.do(ctx, http.MethodPost, apiToday, true, body, &out)
	return out, err
}

// SetCount replaces the count of category id in today's tally.
func (c *Client) SetCount(ctx context.Context, id int, count int64) (UpdateResult, error) {
	if count < 0 {
		return UpdateResult{}, fmt.Errorf("count must not be negative, got %d", count)
	}
	res, err := c.UpdateCounts(ctx, models.CountUpdate{ID: id, Count: count})
	if err != nil {
		return res, err
	}
	if !hasCategory(res.Today, id) {
		return res, fmt.Errorf("unknown category %d", id)
	}
	return res, nil
}

// AddCount adds delta to the count of category id; delta may be negative as
// long as the result is not. The current count is read first, so a change by
// another client in between is overwritten for this category only.
func (c *Client) AddCount(ctx context.Context, id int, delta int64) (UpdateResult, error) {
	d, err := c.Data(ctx)
	if err != nil {
		return UpdateResult{}, err
	}
	for _, e := range d.Today.Categories {
		if e.ID != id {
			continue
		}
		n := e.Count + delta
		if n < 0 {
			return UpdateResult{}, fmt.Errorf("count of %s would become %d", e.Name, n)
		}
		return c.UpdateCounts(ctx, models.CountUpdate{ID: id, Count: n})
	}
	return UpdateResult{}, fmt.Errorf("unknown category %d", id)
}

func hasCategory(t models.DailyTally, id int) bool {
	for _, e := range t.Categories {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Close closes the day.
func (c *Client) Close(ctx context.Context) (Data, error) {
	var out Data
	err := c.do(ctx, http.MethodPost, apiClose, true, nil, &out)
	return out, err
}

// Reports lists the report archive, newest first.
func (c *Client) Reports(ctx context.Context) ([]models.Report, error) {
	var out struct {
		Reports []models.Report `json:"reports"`
	}
	err := c.do(ctx, http.MethodGet, apiReports, true, nil, &out)
	return out.Reports, err
}

// DeleteReport removes the report with the given id or date.
func (c *Client) DeleteReport(ctx context.Context, ref string) error {
	return c.do(ctx, http.MethodDelete, apiReports+"/"+url.PathEscape(ref), true, nil, nil)
}

// Export downloads the xlsx workbook of all reports into w.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, apiExport, true, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download export: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, auth bool, in, out any) error {
	resp, err := c.send(ctx, method, path, auth, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, auth bool, in any) (*http.Response, error) {
	if auth && c.Token == "" {
		return nil, ErrNotLoggedIn
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return resp, nil
}
