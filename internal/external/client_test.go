package external

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"minaret/internal/types"
)

func noSleep() BaseClientOption {
	return WithSleepFunc(func(time.Duration) {})
}

func TestBaseClient_SuccessPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test", DefaultRetryPolicy(), "Minaret-Test", noSleep())

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestBaseClient_RetriesOn5xx(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test-retry", RetryPolicy{MaxRetries: 3, MinWait: time.Millisecond, MaxWait: time.Millisecond}, "", noSleep())

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	resp.Body.Close()
	if calls != 3 {
		t.Errorf("upstream called %d times, want 3", calls)
	}
}

func TestBaseClient_ExhaustedRetriesMapToUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test-exhaust", RetryPolicy{MaxRetries: 1, MinWait: time.Millisecond, MaxWait: time.Millisecond}, "", noSleep())

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := c.Do(req)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error is %T, want *types.AppError", err)
	}
	if appErr.Code != types.ErrCodeUpstreamUnavailable {
		t.Errorf("code = %s, want %s", appErr.Code, types.ErrCodeUpstreamUnavailable)
	}
}

func TestBaseClient_404IsNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test-404", DefaultRetryPolicy(), "", noSleep())

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("4xx should return the response, got error: %v", err)
	}
	resp.Body.Close()
	if calls != 1 {
		t.Errorf("upstream called %d times, want 1 (no retry on 4xx)", calls)
	}
}

func TestBaseClient_RateLimitMapsToRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test-429", RetryPolicy{MaxRetries: 1, MinWait: time.Millisecond, MaxWait: time.Millisecond}, "", noSleep())

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := c.Do(req)
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error is %T, want *types.AppError", err)
	}
	if appErr.Code != types.ErrCodeUpstreamRateLimited {
		t.Errorf("code = %s, want %s", appErr.Code, types.ErrCodeUpstreamRateLimited)
	}
}

func TestBaseClient_InjectsHeaders(t *testing.T) {
	var gotUA, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReqID = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test-headers", DefaultRetryPolicy(), "Minaret/1.0", noSleep())

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req-abc"))
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if gotUA != "Minaret/1.0" {
		t.Errorf("User-Agent = %q, want Minaret/1.0", gotUA)
	}
	if gotReqID != "req-abc" {
		t.Errorf("X-Request-Id = %q, want req-abc", gotReqID)
	}
}

func TestComputeBackoff_RespectsRetryAfter(t *testing.T) {
	c := NewBaseClient(http.DefaultClient, "test-backoff", RetryPolicy{MaxRetries: 1, MinWait: 100 * time.Millisecond, MaxWait: 3 * time.Second}, "")

	resp := &http.Response{Header: http.Header{"Retry-After": []string{"2"}}}
	if got := c.computeBackoff(0, resp); got != 2*time.Second {
		t.Errorf("backoff = %v, want 2s from Retry-After", got)
	}

	// Retry-After above MaxWait is clamped.
	resp.Header.Set("Retry-After", "60")
	if got := c.computeBackoff(0, resp); got != 3*time.Second {
		t.Errorf("backoff = %v, want clamp to 3s", got)
	}
}

func TestComputeBackoff_WithinBounds(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, MinWait: 100 * time.Millisecond, MaxWait: time.Second}
	c := NewBaseClient(http.DefaultClient, "test-bounds", policy, "")

	for attempt := 0; attempt < 6; attempt++ {
		got := c.computeBackoff(attempt, nil)
		if got < policy.MinWait || got > policy.MaxWait {
			t.Errorf("attempt %d: backoff %v outside [%v, %v]", attempt, got, policy.MinWait, policy.MaxWait)
		}
	}
}
