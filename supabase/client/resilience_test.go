package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry(max int, codes ...int) RetryConfig {
	return RetryConfig{
		MaxRetries:           max,
		InitialBackoff:       time.Millisecond,
		MaxBackoff:           5 * time.Millisecond,
		BackoffMultiplier:    2.0,
		RetryableStatusCodes: codes,
	}
}

func TestDefaultPolicies(t *testing.T) {
	retry := DefaultRetryConfig()
	if retry.MaxRetries != 3 || retry.InitialBackoff != 100*time.Millisecond {
		t.Fatalf("unexpected retry defaults: %+v", retry)
	}
	if len(retry.RetryableStatusCodes) != 5 {
		t.Fatalf("RetryableStatusCodes = %v", retry.RetryableStatusCodes)
	}

	breaker := DefaultCircuitBreakerConfig()
	if breaker.FailureThreshold != 5 || breaker.SuccessThreshold != 2 || breaker.Timeout != 30*time.Second {
		t.Fatalf("unexpected breaker defaults: %+v", breaker)
	}
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 2, Timeout: time.Minute})
	cb.now = func() time.Time { return now }

	if err := cb.Allow(); err != nil {
		t.Fatalf("closed breaker rejected call: %v", err)
	}

	cb.RecordFailure(errors.New("one"))
	cb.RecordSuccess()
	cb.RecordFailure(errors.New("two"))
	if cb.State() != CircuitClosed {
		t.Fatalf("success should reset the failure count, state = %v", cb.State())
	}

	cb.RecordFailure(errors.New("three"))
	if cb.State() != CircuitOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow() = %v, want ErrCircuitOpen", err)
	}
	if cb.LastError() == nil || cb.LastError().Error() != "three" {
		t.Fatalf("LastError() = %v", cb.LastError())
	}

	now = now.Add(2 * time.Minute)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after timeout = %v", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("State() = %v, want half-open", cb.State())
	}

	cb.RecordFailure(errors.New("probe failed"))
	if cb.State() != CircuitOpen {
		t.Fatalf("half-open failure should reopen, state = %v", cb.State())
	}

	now = now.Add(2 * time.Minute)
	_ = cb.Allow()
	cb.RecordSuccess()
	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Fatalf("State() = %v, want closed", cb.State())
	}
}

func TestCircuitStateString(t *testing.T) {
	cases := map[CircuitState]string{
		CircuitClosed:    "closed",
		CircuitOpen:      "open",
		CircuitHalfOpen:  "half-open",
		CircuitState(42): "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("String() = %s, want %s", got, want)
		}
	}
}

func TestCircuitBreakerNotifiesStateChange(t *testing.T) {
	changes := make(chan CircuitState, 4)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		Timeout:          time.Minute,
		OnStateChange:    func(_, to CircuitState) { changes <- to },
	})

	cb.RecordFailure(errors.New("down"))

	select {
	case to := <-changes:
		if to != CircuitOpen {
			t.Fatalf("transition to %v, want open", to)
		}
	case <-time.After(time.Second):
		t.Fatal("OnStateChange was not called")
	}
}

func TestCircuitBreakerConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); _ = cb.Allow() }()
		go func() { defer wg.Done(); cb.RecordSuccess() }()
		go func() { defer wg.Done(); cb.RecordFailure(errors.New("x")) }()
	}
	wg.Wait()
}

func TestResilientClientRetriesServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rc := NewResilientClient(ResilientClientConfig{
		RetryConfig:          fastRetry(3, http.StatusServiceUnavailable),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
	})

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := rc.Do(req)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
	m := rc.Metrics()
	if m["retried_requests"] != 2 || m["success_requests"] != 1 || m["total_requests"] != 1 {
		t.Fatalf("Metrics() = %v", m)
	}
}

func TestResilientClientRewindsBodyOnRetry(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	rc := NewResilientClient(ResilientClientConfig{
		RetryConfig:          fastRetry(2, http.StatusBadGateway),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
	})

	req, _ := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(`{"title":"hi"}`))
	resp, err := rc.Do(req)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	resp.Body.Close()

	if len(bodies) != 2 || bodies[0] != bodies[1] || bodies[1] != `{"title":"hi"}` {
		t.Fatalf("bodies = %q", bodies)
	}
}

func TestResilientClientReturnsLastResponseWhenExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"maintenance"}`))
	}))
	defer server.Close()

	rc := NewResilientClient(ResilientClientConfig{
		RetryConfig:          fastRetry(1, http.StatusServiceUnavailable),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
	})

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := rc.Do(req)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(body), "maintenance") {
		t.Fatalf("got %d %s", resp.StatusCode, body)
	}
	if rc.Metrics()["failed_requests"] != 1 {
		t.Fatalf("Metrics() = %v", rc.Metrics())
	}
}

func TestResilientClientOpensCircuit(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	rc := NewResilientClient(ResilientClientConfig{
		RetryConfig:          fastRetry(0, http.StatusServiceUnavailable),
		CircuitBreakerConfig: CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute},
	})

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
		if resp, err := rc.Do(req); err == nil {
			resp.Body.Close()
		}
	}
	if rc.CircuitState() != CircuitOpen {
		t.Fatalf("CircuitState() = %v", rc.CircuitState())
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	if _, err := rc.Do(req); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Do() error = %v, want ErrCircuitOpen", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("upstream hits = %d, want 2", got)
	}
}

func TestResilientClientStopsOnContextCancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	rc := NewResilientClient(ResilientClientConfig{
		RetryConfig:          DefaultRetryConfig(),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
	})

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := rc.Do(req.WithContext(ctx)); err == nil {
		t.Fatal("Do() should fail once the context expires")
	}
}

func TestHTTPErrorText(t *testing.T) {
	if got := (&HTTPError{StatusCode: http.StatusNotFound}).Error(); got != "Not Found" {
		t.Fatalf("Error() = %s", got)
	}
}

func BenchmarkCircuitBreakerAllow(b *testing.B) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	for i := 0; i < b.N; i++ {
		_ = cb.Allow()
	}
}
