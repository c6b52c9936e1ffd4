package alchemistsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Alchemist HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Record is one dataset row keyed by column name.
type Record map[string]string

// DatasetInfo describes a stored dataset.
type DatasetInfo struct {
	Kind       string `json:"kind"`
	Rows       int    `json:"rows"`
	SourceName string `json:"source_name"`
	UpdatedAt  string `json:"updated_at"`
}

// Dataset is a stored dataset with its rows.
type Dataset struct {
	Info    DatasetInfo `json:"info"`
	Records []Record    `json:"records"`
}

// Match is one search hit; Index is the row's position in the dataset.
type Match struct {
	Index  int    `json:"index"`
	Record Record `json:"record"`
}

// ValidationError is a field-level finding.
type ValidationError struct {
	RowIndex  int    `json:"rowIndex"`
	ColumnKey string `json:"columnKey"`
	Message   string `json:"message"`
}

// Assignment is one (phase, task, client, worker) tuple.
type Assignment struct {
	Phase    int    `json:"phase"`
	TaskID   string `json:"taskId"`
	ClientID string `json:"clientId"`
	WorkerID string `json:"workerId"`
}

// Run represents a stored validation or schedule run.
type Run struct {
	ID              string                       `json:"id"`
	Kind            string                       `json:"kind"`
	Status          string                       `json:"status"`
	ActorID         string                       `json:"actor_id"`
	ErrorCount      int                          `json:"error_count"`
	AssignmentCount int                          `json:"assignment_count"`
	Errors          map[string][]ValidationError `json:"errors"`
	Assignments     []Assignment                 `json:"assignments"`
	Weights         map[string]int               `json:"weights"`
	CreatedAt       string                       `json:"created_at"`
}

// ScheduleRequest carries optional overrides for a stored schedule run.
type ScheduleRequest struct {
	Strict  bool             `json:"strict,omitempty"`
	Weights map[string]int   `json:"weights,omitempty"`
	Rules   []map[string]any `json:"rules,omitempty"`
}

// Report is an inline validation result.
type Report struct {
	ErrorCount int               `json:"error_count"`
	Clients    []ValidationError `json:"clients"`
	Workers    []ValidationError `json:"workers"`
	Tasks      []ValidationError `json:"tasks"`
}

// InlineSchedule is an inline allocation result.
type InlineSchedule struct {
	Assignments []Assignment   `json:"assignments"`
	Weights     map[string]int `json:"weights"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// Health checks the server.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

// PutDataset replaces a dataset with records.
func (c *Client) PutDataset(ctx context.Context, kind string, records []Record, sourceName string) (DatasetInfo, error) {
	if records == nil {
		records = []Record{}
	}
	body := map[string]any{
		"records":     records,
		"source_name": sourceName,
	}
	var resp DatasetInfo
	err := c.do(ctx, http.MethodPut, "datasets/"+url.PathEscape(kind), body, &resp)
	return resp, err
}

// PutDatasetCSV replaces a dataset with the CSV read from r.
func (c *Client) PutDatasetCSV(ctx context.Context, kind string, r io.Reader, sourceName string) (DatasetInfo, error) {
	endpoint := fmt.Sprintf("datasets/%s/csv", url.PathEscape(kind))
	if sourceName != "" {
		endpoint += "?source_name=" + url.QueryEscape(sourceName)
	}
	var resp DatasetInfo
	err := c.send(ctx, http.MethodPut, endpoint, "text/csv", r, &resp)
	return resp, err
}

// Dataset fetches a stored dataset.
func (c *Client) Dataset(ctx context.Context, kind string) (Dataset, error) {
	var resp Dataset
	err := c.do(ctx, http.MethodGet, "datasets/"+url.PathEscape(kind), nil, &resp)
	return resp, err
}

// Search returns the rows of a dataset where any cell contains query, ignoring case.
func (c *Client) Search(ctx context.Context, kind, query string) ([]Match, error) {
	var resp struct {
		Matches []Match `json:"matches"`
	}
	endpoint := fmt.Sprintf("datasets/%s/search?q=%s", url.PathEscape(kind), url.QueryEscape(query))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Matches, err
}

// Validate runs validation on the stored datasets.
func (c *Client) Validate(ctx context.Context) (Run, error) {
	var resp Run
	err := c.do(ctx, http.MethodPost, "validate", nil, &resp)
	return resp, err
}

// Schedule runs the allocator on the stored datasets.
func (c *Client) Schedule(ctx context.Context, req ScheduleRequest) (Run, error) {
	var resp Run
	err := c.do(ctx, http.MethodPost, "schedule", req, &resp)
	return resp, err
}

// ValidateInline validates collections without storing them.
func (c *Client) ValidateInline(ctx context.Context, clients, workers, tasks []Record) (Report, error) {
	body := map[string]any{"clients": nonNil(clients), "workers": nonNil(workers), "tasks": nonNil(tasks)}
	var resp Report
	err := c.do(ctx, http.MethodPost, "validate/inline", body, &resp)
	return resp, err
}

// ScheduleInline allocates collections without storing them.
func (c *Client) ScheduleInline(ctx context.Context, clients, workers, tasks []Record, weights map[string]int) (InlineSchedule, error) {
	body := map[string]any{"clients": nonNil(clients), "workers": nonNil(workers), "tasks": nonNil(tasks)}
	if len(weights) > 0 {
		body["weights"] = weights
	}
	var resp InlineSchedule
	err := c.do(ctx, http.MethodPost, "schedule/inline", body, &resp)
	return resp, err
}

// Runs lists runs, newest first. Empty kind or status means any.
func (c *Client) Runs(ctx context.Context, kind, status string, limit int) ([]Run, error) {
	q := url.Values{}
	if kind != "" {
		q.Set("kind", kind)
	}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	endpoint := "runs"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Run
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Run fetches a run with its errors or assignments.
func (c *Client) Run(ctx context.Context, id string) (Run, error) {
	var resp Run
	err := c.do(ctx, http.MethodGet, "runs/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Export returns the export document as raw JSON.
func (c *Client) Export(ctx context.Context) (json.RawMessage, error) {
	var resp json.RawMessage
	err := c.do(ctx, http.MethodGet, "export", nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	return c.send(ctx, method, endpoint, "application/json", &buf, out)
}

func (c *Client) send(ctx context.Context, method, endpoint, contentType string, body io.Reader, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) url(endpoint string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base + "/" + strings.TrimLeft(endpoint, "/")
}

func nonNil(in []Record) []Record {
	if in == nil {
		return []Record{}
	}
	return in
}
