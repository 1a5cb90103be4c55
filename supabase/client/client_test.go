package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/R3E-Network/framestore/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	c, err := New(Config{URL: server.URL + "/", APIKey: "service-key", Logger: logger.Discard()})
	require.NoError(t, err)
	return c
}

func TestNewRequiresURLAndKey(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "http://x"})
	assert.Error(t, err)
}

func TestExecuteBuildsPostgRESTQuery(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`[{"id":"f-1"}]`))
	})

	since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := logger.WithTraceID(context.Background(), "trace-1")
	resp, err := c.From("frames").
		Select("id,title").
		Eq("user_id", "u-1").
		Gte("created_at", since).
		Is("current_version_id", nil).
		Order("created_at", false).
		Order("id", true).
		Limit(20).
		Offset(40).
		Execute(ctx)
	require.NoError(t, err)
	require.NoError(t, resp.Error())

	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/rest/v1/frames", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "id,title", q.Get("select"))
	assert.Equal(t, "eq.u-1", q.Get("user_id"))
	assert.Equal(t, "gte.2026-03-01T12:00:00Z", q.Get("created_at"))
	assert.Equal(t, "is.null", q.Get("current_version_id"))
	assert.Equal(t, "created_at.desc,id.asc", q.Get("order"))
	assert.Equal(t, "20", q.Get("limit"))
	assert.Equal(t, "40", q.Get("offset"))
	assert.Equal(t, "service-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer service-key", got.Header.Get("Authorization"))
	assert.Equal(t, "trace-1", got.Header.Get("X-Request-Id"))

	var rows []map[string]string
	require.NoError(t, resp.JSON(&rows))
	assert.Equal(t, "f-1", rows[0]["id"])
}

func TestInFilterQuotesReservedCharacters(t *testing.T) {
	var raw string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw = r.URL.Query().Get("category")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.From("templates").In("category", []any{"social", "a,b"}).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `in.(social,"a,b")`, raw)
}

func TestSingleSetsObjectAccept(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	resp, err := c.From("frames").Eq("id", "missing").Single().Execute(context.Background())
	require.NoError(t, err)

	var apiErr *APIError
	require.True(t, errors.As(resp.Error(), &apiErr))
	assert.True(t, apiErr.NoRows())
	assert.False(t, apiErr.UniqueViolation())
}

func TestWritesSendJSONAndPreferHeaders(t *testing.T) {
	type seen struct {
		method, prefer, query, body string
	}
	var calls []seen
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, seen{r.Method, r.Header.Get("Prefer"), r.URL.RawQuery, string(b)})
		_, _ = w.Write([]byte(`[]`))
	})
	ctx := context.Background()

	_, err := c.From("likes").ExecuteInsert(ctx, map[string]string{"frame_id": "f-1", "user_id": "u-1"})
	require.NoError(t, err)
	_, err = c.From("users").OnConflict("wallet_address").ExecuteInsert(ctx, map[string]string{"wallet_address": "0xabc"})
	require.NoError(t, err)
	_, err = c.From("notifications").Eq("id", "n-1").ExecuteUpdate(ctx, map[string]bool{"read": true})
	require.NoError(t, err)
	_, err = c.From("frames").Eq("id", "f-1").ExecuteDelete(ctx)
	require.NoError(t, err)

	require.Len(t, calls, 4)
	assert.Equal(t, seen{"POST", "return=representation", "", `{"frame_id":"f-1","user_id":"u-1"}`}, calls[0])
	assert.Equal(t, "resolution=merge-duplicates,return=representation", calls[1].prefer)
	assert.Equal(t, "on_conflict=wallet_address", calls[1].query)
	assert.Equal(t, seen{"PATCH", "return=representation", "id=eq.n-1", `{"read":true}`}, calls[2])
	assert.Equal(t, seen{"DELETE", "return=representation", "id=eq.f-1", ""}, calls[3])
}

func TestRPCPostsParams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/increment_likes", r.URL.Path)
		var params map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "f-1", params["p_frame_id"])
		_, _ = w.Write([]byte(`7`))
	})

	resp, err := c.RPC(context.Background(), "increment_likes", map[string]string{"p_frame_id": "f-1"})
	require.NoError(t, err)
	var likes int
	require.NoError(t, resp.JSON(&likes))
	assert.Equal(t, 7, likes)
}

func TestResponseErrorCarriesPostgresCode(t *testing.T) {
	resp := &Response{StatusCode: http.StatusConflict, Body: []byte(`{"code":"23505","message":"duplicate key value","details":"Key (frame_id, user_id)"}`)}
	var apiErr *APIError
	require.True(t, errors.As(resp.Error(), &apiErr))
	assert.True(t, apiErr.UniqueViolation())
	assert.Equal(t, "supabase error: duplicate key value", apiErr.Error())

	resp = &Response{StatusCode: http.StatusBadGateway, Body: []byte(`not json`)}
	assert.EqualError(t, resp.Error(), "supabase error: status 502")

	assert.NoError(t, (&Response{StatusCode: http.StatusOK}).Error())
}

func TestNewEnhancedRetriesThroughTransport(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"p_frame_id":"f-1"}`, string(body))
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`1`))
	}))
	defer server.Close()

	c, err := NewEnhanced(EnhancedConfig{
		Config:               Config{URL: server.URL, APIKey: "k", Logger: logger.Discard()},
		RetryConfig:          fastRetry(2, http.StatusServiceUnavailable),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
		EnableResilience:     true,
	})
	require.NoError(t, err)

	resp, err := c.RPC(context.Background(), "increment_likes", map[string]string{"p_frame_id": "f-1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}
