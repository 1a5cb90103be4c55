// Package client is a small Supabase PostgREST client used by the FrameStore
// supabase storage backend. It covers table queries, writes and RPC calls.
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

	"github.com/R3E-Network/framestore/pkg/logger"
)

// Client is a Supabase REST API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// Config holds client configuration.
type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *logger.Logger
}

// New creates a new Supabase client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("supabase")
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		log:        log,
	}, nil
}

// From starts a query builder for a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client: c,
		table:  table,
	}
}

type filter struct {
	column string
	expr   string
}

// QueryBuilder builds PostgREST queries. A builder is single use.
type QueryBuilder struct {
	client     *Client
	table      string
	columns    string
	filters    []filter
	orders     []string
	limit      int
	offset     int
	single     bool
	count      string // exact, planned, estimated
	onConflict string
	upsert     bool
}

// Select specifies columns to select.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

func (q *QueryBuilder) where(column, op string, value any) *QueryBuilder {
	q.filters = append(q.filters, filter{column: column, expr: op + "." + formatValue(value)})
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.where(column, "eq", value)
}

// Neq adds a not-equal filter.
func (q *QueryBuilder) Neq(column string, value any) *QueryBuilder {
	return q.where(column, "neq", value)
}

// Gt adds a greater-than filter.
func (q *QueryBuilder) Gt(column string, value any) *QueryBuilder {
	return q.where(column, "gt", value)
}

// Gte adds a greater-than-or-equal filter.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	return q.where(column, "gte", value)
}

// Lt adds a less-than filter.
func (q *QueryBuilder) Lt(column string, value any) *QueryBuilder {
	return q.where(column, "lt", value)
}

// Lte adds a less-than-or-equal filter.
func (q *QueryBuilder) Lte(column string, value any) *QueryBuilder {
	return q.where(column, "lte", value)
}

// In adds an IN filter.
func (q *QueryBuilder) In(column string, values []any) *QueryBuilder {
	parts := make([]string, len(values))
	for i, v := range values {
		s := formatValue(v)
		if strings.ContainsAny(s, ",()\"") {
			s = strconv.Quote(s)
		}
		parts[i] = s
	}
	q.filters = append(q.filters, filter{column: column, expr: "in.(" + strings.Join(parts, ",") + ")"})
	return q
}

// Is adds an IS filter (for null, true, false).
func (q *QueryBuilder) Is(column string, value any) *QueryBuilder {
	if value == nil {
		value = "null"
	}
	return q.where(column, "is", value)
}

// Order adds an ORDER BY clause. Calls accumulate.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

// Limit sets the LIMIT.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Offset sets the OFFSET.
func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.offset = n
	return q
}

// Single expects exactly one row. PostgREST answers 406 when none match.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// Count includes count in response.
func (q *QueryBuilder) Count(countType string) *QueryBuilder {
	q.count = countType
	return q
}

// OnConflict turns the next ExecuteInsert into an upsert on the given columns.
func (q *QueryBuilder) OnConflict(columns string) *QueryBuilder {
	q.upsert = true
	q.onConflict = columns
	return q
}

func (q *QueryBuilder) endpoint(withRead bool) string {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)

	params := url.Values{}
	for _, f := range q.filters {
		params.Add(f.column, f.expr)
	}
	if withRead {
		if q.columns != "" {
			params.Set("select", q.columns)
		}
		if len(q.orders) > 0 {
			params.Set("order", strings.Join(q.orders, ","))
		}
		if q.limit > 0 {
			params.Set("limit", strconv.Itoa(q.limit))
		}
		if q.offset > 0 {
			params.Set("offset", strconv.Itoa(q.offset))
		}
	}
	if q.upsert && q.onConflict != "" {
		params.Set("on_conflict", q.onConflict)
	}
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return reqURL
}

// Execute executes a SELECT query.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.endpoint(true), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.client.setHeaders(ctx, req)
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}
	if q.count != "" {
		req.Header.Set("Prefer", "count="+q.count)
	}

	return q.client.do(req)
}

// ExecuteInsert inserts data, or upserts it after OnConflict.
func (q *QueryBuilder) ExecuteInsert(ctx context.Context, data any) (*Response, error) {
	prefer := "return=representation"
	if q.upsert {
		prefer = "resolution=merge-duplicates," + prefer
	}
	return q.write(ctx, http.MethodPost, data, prefer)
}

// ExecuteUpdate patches every row matching the filters.
func (q *QueryBuilder) ExecuteUpdate(ctx context.Context, data any) (*Response, error) {
	return q.write(ctx, http.MethodPatch, data, "return=representation")
}

// ExecuteDelete deletes every row matching the filters.
func (q *QueryBuilder) ExecuteDelete(ctx context.Context) (*Response, error) {
	return q.write(ctx, http.MethodDelete, nil, "return=representation")
}

func (q *QueryBuilder) write(ctx context.Context, method string, data any, prefer string) (*Response, error) {
	var body io.Reader
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal data: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.endpoint(false), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.client.setHeaders(ctx, req)
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}
	req.Header.Set("Prefer", prefer)

	return q.client.do(req)
}

// RPC calls a stored procedure.
func (c *Client) RPC(ctx context.Context, fn string, params any) (*Response, error) {
	reqURL := fmt.Sprintf("%s/rest/v1/rpc/%s", c.baseURL, fn)

	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setHeaders(ctx, req)
	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req)
}

// Response is a raw PostgREST response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Error returns an *APIError when the response indicates failure.
func (r *Response) Error() error {
	if r.StatusCode < 400 {
		return nil
	}
	apiErr := &APIError{StatusCode: r.StatusCode}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
		Hint    string `json:"hint"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		apiErr.Details = body.Details
		apiErr.Hint = body.Hint
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}

// APIError is a PostgREST error body. Code carries the Postgres SQLSTATE or a
// PGRST-prefixed PostgREST code.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
	Hint       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase error: %s", e.Message)
	}
	return fmt.Sprintf("supabase error: status %d", e.StatusCode)
}

// NoRows reports a Single query that matched nothing.
func (e *APIError) NoRows() bool {
	return e.Code == "PGRST116" || e.StatusCode == http.StatusNotFound
}

// UniqueViolation reports a duplicate key.
func (e *APIError) UniqueViolation() bool {
	return e.Code == "23505"
}

// ForeignKeyViolation reports a reference to a missing row.
func (e *APIError) ForeignKeyViolation() bool {
	return e.Code == "23503"
}

func formatValue(v any) string {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if id := logger.TraceID(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}
}

func (c *Client) do(req *http.Request) (*Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.ForContext(req.Context()).WithFields(map[string]interface{}{
		"method":   req.Method,
		"path":     req.URL.Path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("supabase request")

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}
