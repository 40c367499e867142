package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradeflow/provider"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL})
}

func TestBuildRequestURL(t *testing.T) {
	s := New(Options{BaseURL: "https://api.example.com/"})

	got := s.BuildRequestURL("v1/quote", http.MethodGet, map[string]interface{}{"symbol": "AAPL"})
	want := "https://api.example.com/v1/quote?symbol=AAPL"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// Non-GET params travel in the body, not the query string.
	got = s.BuildRequestURL("v1/order", http.MethodPost, map[string]interface{}{"qty": 1})
	if got != "https://api.example.com/v1/order" {
		t.Errorf("unexpected POST url: %q", got)
	}

	// Absolute endpoints bypass the base URL.
	got = s.BuildRequestURL("https://other.example.com/x", http.MethodGet, nil)
	if got != "https://other.example.com/x" {
		t.Errorf("unexpected absolute url: %q", got)
	}
}

func TestRequestHeadersDefaultBearer(t *testing.T) {
	s := New(Options{Credentials: provider.Credentials{AccessToken: "tok", APIKey: "key"}})
	h := s.RequestHeaders()
	if got := h.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("expected access token preferred, got %q", got)
	}

	s = New(Options{Credentials: provider.Credentials{APIKey: "key"}})
	if got := s.RequestHeaders().Get("Authorization"); got != "Bearer key" {
		t.Errorf("expected api key fallback, got %q", got)
	}
}

func TestRequestHeadersOverride(t *testing.T) {
	s := New(Options{
		Credentials: provider.Credentials{AccessToken: "tok"},
		AuthHeaders: func(h http.Header) {
			h.Set("access_token", "tok")
		},
	})
	h := s.RequestHeaders()
	if h.Get("Authorization") != "" {
		t.Error("override must suppress default bearer header")
	}
	if h.Get("access_token") != "tok" {
		t.Error("override header missing")
	}
}

func TestExecuteDecodesJSON(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price": 12.5}`))
	})

	res, err := s.Execute(context.Background(), http.MethodGet, "quote", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Decoded {
		t.Fatal("expected decoded JSON result")
	}
	obj, ok := res.Object()
	if !ok || obj["price"] != 12.5 {
		t.Errorf("unexpected object: %v", res.Value)
	}
}

func TestExecuteNonJSONBody(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("symbol,name\nAAPL,Apple"))
	})

	res, err := s.Execute(context.Background(), http.MethodGet, "csv", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Decoded {
		t.Error("CSV body must not count as decoded JSON")
	}
	if string(res.Body) != "symbol,name\nAAPL,Apple" {
		t.Errorf("raw body lost: %q", res.Body)
	}
}

func TestExecuteAPIErrorMessageExtraction(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message": "rate limit exceeded"}`))
	})

	_, err := s.Execute(context.Background(), http.MethodGet, "quote", nil)
	if err == nil {
		t.Fatal("expected api error")
	}
	pe, ok := provider.AsError(err)
	if !ok {
		t.Fatalf("expected structured error, got %T", err)
	}
	if pe.Kind != provider.KindAPI || pe.Status != 429 {
		t.Errorf("unexpected kind/status: %s/%d", pe.Kind, pe.Status)
	}
	if pe.Message != "rate limit exceeded" {
		t.Errorf("unexpected message: %q", pe.Message)
	}
	if !pe.Retryable() {
		t.Error("429 must be retryable")
	}
	if s.LastError() == nil {
		t.Error("LastError must hold the failure")
	}
}

func TestExecuteAPIErrorFallsBackToStatusLine(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("not json"))
	})

	_, err := s.Execute(context.Background(), http.MethodGet, "quote", nil)
	pe, ok := provider.AsError(err)
	if !ok {
		t.Fatalf("expected structured error, got %v", err)
	}
	if pe.Message == "" {
		t.Error("expected status line fallback message")
	}
	if pe.Retryable() {
		t.Error("400 must not be retryable")
	}
}

func TestExecuteTransportError(t *testing.T) {
	s := New(Options{BaseURL: "http://127.0.0.1:0"})

	_, err := s.Execute(context.Background(), http.MethodGet, "quote", nil)
	if provider.KindOf(err) != provider.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	pe, _ := provider.AsError(err)
	if !pe.Retryable() {
		t.Error("transport errors must be retryable")
	}
}

func TestRateLimitHeaderTracking(t *testing.T) {
	remaining := "5"
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ratelimit-limit", "10")
		w.Header().Set("x-ratelimit-remaining", remaining)
		w.Header().Set("x-ratelimit-reset", "1681383600")
		w.Write([]byte(`{}`))
	})

	if s.IsRateLimited() {
		t.Fatal("no headers observed yet")
	}

	if _, err := s.Execute(context.Background(), http.MethodGet, "quote", nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if s.IsRateLimited() {
		t.Error("remaining=5 must not report limited")
	}
	if got := s.RateLimit().Limit; got != 10 {
		t.Errorf("unexpected limit: %d", got)
	}
	if s.RateLimit().Reset.Unix() != 1681383600 {
		t.Errorf("unexpected reset: %v", s.RateLimit().Reset)
	}

	remaining = "0"
	if _, err := s.Execute(context.Background(), http.MethodGet, "quote", nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !s.IsRateLimited() {
		t.Error("remaining=0 must report limited")
	}
}

func TestRateLimitHeaderAbsenceKeepsState(t *testing.T) {
	clock := SystemClock()
	s := New(Options{Clock: clock})

	h := http.Header{}
	h.Set("x-ratelimit-limit", "10")
	h.Set("x-ratelimit-remaining", "0")
	s.UpdateRateLimits(h)
	if !s.IsRateLimited() {
		t.Fatal("expected limited after remaining=0")
	}

	// A response without the headers leaves the prior snapshot alone.
	s.UpdateRateLimits(http.Header{})
	if !s.IsRateLimited() {
		t.Error("header absence must not clear prior state")
	}
}

func TestExecuteBodyEncodeFailure(t *testing.T) {
	calls := 0
	s := New(Options{
		BaseURL: "https://api.example.com",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			return nil, nil
		})},
	})

	// Channels cannot be JSON-encoded; the failure must surface before any
	// network call.
	_, err := s.Execute(context.Background(), http.MethodPost, "order", map[string]interface{}{
		"ch": make(chan int),
	})
	if provider.KindOf(err) != provider.KindInvalidResponse {
		t.Fatalf("expected invalid_response for encode failure, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected zero network calls, got %d", calls)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestLastResultTracksMostRecentSuccess(t *testing.T) {
	status := http.StatusOK
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"ok": true}`))
	})

	if s.LastResult() != nil {
		t.Fatal("no result recorded yet")
	}

	res, err := s.Execute(context.Background(), http.MethodGet, "status", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if s.LastResult() != res {
		t.Error("LastResult must hold the latest success")
	}
	if s.LastError() != nil {
		t.Error("LastError must clear after a success")
	}

	// A subsequent failure keeps the prior success while recording the error.
	status = http.StatusInternalServerError
	if _, err := s.Execute(context.Background(), http.MethodGet, "status", nil); err == nil {
		t.Fatal("expected api error")
	}
	if s.LastResult() != res {
		t.Error("failure must not displace the last successful result")
	}
	if s.LastError() == nil {
		t.Error("LastError must hold the failure")
	}
}

func TestExecuteLimiterHonorsContext(t *testing.T) {
	s := New(Options{
		BaseURL:           "https://api.example.com",
		RequestsPerSecond: 0.001,
		BurstSize:         1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// First call consumes the burst; the second waits and hits the deadline.
	s.limiter.Allow()
	_, err := s.Execute(ctx, http.MethodGet, "quote", nil)
	if provider.KindOf(err) != provider.KindTransport {
		t.Fatalf("expected transport error from limiter wait, got %v", err)
	}
}
