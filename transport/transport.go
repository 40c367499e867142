// Package transport is the shared HTTP layer under every provider client.
// It turns (method, endpoint, params) into an executed request and a decoded
// result, with structured errors for transport and HTTP failures and
// opportunistic rate-limit header tracking.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tradeflow/logger"
	"tradeflow/provider"
)

// DefaultTimeout applies when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// HeaderFunc mutates the outgoing header set. Clients whose auth scheme
// diverges from bearer tokens override only this step of the request
// lifecycle.
type HeaderFunc func(h http.Header)

// Options configures a Service.
type Options struct {
	BaseURL     string
	Credentials provider.Credentials
	Timeout     time.Duration
	// AuthHeaders overrides the default bearer-token header derivation.
	AuthHeaders HeaderFunc
	// HTTPClient overrides the default client; tests use it to install
	// counting round-trippers.
	HTTPClient *http.Client
	// RequestsPerSecond and BurstSize enable a local request limiter when
	// positive.
	RequestsPerSecond float64
	BurstSize         int
	Clock             Clock
}

// Result is the decoded outcome of a successful request. When the body is
// not JSON (plain text, CSV endpoints) Decoded is false and Body carries the
// raw bytes; that is not an error.
type Result struct {
	Status  int
	Header  http.Header
	Body    []byte
	Value   interface{}
	Decoded bool
}

// Object returns the decoded body as a JSON object when it is one.
func (r *Result) Object() (map[string]interface{}, bool) {
	obj, ok := r.Value.(map[string]interface{})
	return obj, ok
}

// Decode unmarshals the raw body into out.
func (r *Result) Decode(out interface{}) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return &provider.Error{
			Kind:    provider.KindInvalidResponse,
			Message: fmt.Sprintf("decode response: %v", err),
			Raw:     r.Body,
			Cause:   err,
		}
	}
	return nil
}

// Service executes HTTP requests for one provider client. It is not safe for
// concurrent use without external synchronization, matching the one-instance-
// per-logical-operation contract of the clients built on it.
type Service struct {
	baseURL     string
	creds       provider.Credentials
	client      *http.Client
	authHeaders HeaderFunc
	limiter     *rate.Limiter
	clock       Clock
	log         *logger.Entry

	mu         sync.Mutex
	rateLimit  RateLimitState
	hasLimit   bool
	lastErr    error
	lastResult *Result
}

// New builds a Service from options, applying the default timeout and clock
// when unset.
func New(opts Options) *Service {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.BurstSize
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Service{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		creds:       opts.Credentials,
		client:      httpClient,
		authHeaders: opts.AuthHeaders,
		limiter:     limiter,
		clock:       clock,
		log:         logger.GetLogger().WithComponent("transport"),
	}
}

// SetCredentials replaces the credential bundle, used after token rotation.
func (s *Service) SetCredentials(creds provider.Credentials) {
	s.creds = creds
}

// Credentials returns the bundle currently attached to requests.
func (s *Service) Credentials() provider.Credentials {
	return s.creds
}

// BuildRequestURL serializes params into the query string for GET requests
// and returns the bare endpoint URL otherwise; non-GET params travel as the
// JSON body built by Execute.
func (s *Service) BuildRequestURL(endpoint, method string, params map[string]interface{}) string {
	full := s.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		full = endpoint
	}
	if method != http.MethodGet || len(params) == 0 {
		return full
	}
	query := url.Values{}
	for k, v := range params {
		query.Set(k, fmt.Sprintf("%v", v))
	}
	return full + "?" + query.Encode()
}

// RequestHeaders returns the headers attached to every request. The default
// auth derivation is a bearer token from the access token, falling back to
// the API key; clients with bespoke schemes supply AuthHeaders instead.
func (s *Service) RequestHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")

	if s.authHeaders != nil {
		s.authHeaders(h)
		return h
	}

	switch {
	case s.creds.AccessToken != "":
		h.Set("Authorization", "Bearer "+s.creds.AccessToken)
	case s.creds.APIKey != "":
		h.Set("Authorization", "Bearer "+s.creds.APIKey)
	}
	return h
}

// Execute performs the call and interprets the response. Expected failures
// come back as *provider.Error values: transport_error for network failures,
// api_error (with status and raw payload) for non-2xx responses.
func (s *Service) Execute(ctx context.Context, method, endpoint string, params map[string]interface{}) (*Result, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, s.fail(&provider.Error{
				Kind:    provider.KindTransport,
				Message: fmt.Sprintf("rate limiter wait: %v", err),
				Cause:   err,
			})
		}
	}

	reqURL := s.BuildRequestURL(endpoint, method, params)

	var body io.Reader
	if method != http.MethodGet && len(params) > 0 {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, s.fail(&provider.Error{
				Kind:    provider.KindInvalidResponse,
				Message: fmt.Sprintf("encode request body: %v", err),
				Cause:   err,
			})
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, s.fail(&provider.Error{
			Kind:    provider.KindTransport,
			Message: fmt.Sprintf("build request: %v", err),
			Cause:   err,
		})
	}
	req.Header = s.RequestHeaders()

	start := s.clock.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.fail(&provider.Error{
			Kind:    provider.KindTransport,
			Message: fmt.Sprintf("execute request: %v", err),
			Cause:   err,
		})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.fail(&provider.Error{
			Kind:    provider.KindTransport,
			Message: fmt.Sprintf("read response body: %v", err),
			Cause:   err,
		})
	}

	s.UpdateRateLimits(resp.Header)

	s.log.WithFields(logger.Fields{
		"method":      method,
		"url":         reqURL,
		"status":      resp.StatusCode,
		"duration_ms": s.clock.Now().Sub(start).Milliseconds(),
	}).Debug("request executed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, s.fail(&provider.Error{
			Kind:    provider.KindAPI,
			Status:  resp.StatusCode,
			Message: extractErrorMessage(raw, resp.Status),
			Raw:     raw,
		})
	}

	result := &Result{Status: resp.StatusCode, Header: resp.Header, Body: raw}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err == nil {
		result.Value = value
		result.Decoded = true
	}

	s.mu.Lock()
	s.lastErr = nil
	s.lastResult = result
	s.mu.Unlock()
	return result, nil
}

// UpdateRateLimits opportunistically records x-ratelimit-* headers. Header
// absence is not an error and leaves prior state unchanged.
func (s *Service) UpdateRateLimits(h http.Header) {
	state, ok := parseRateLimitHeaders(h, s.clock)
	if !ok {
		return
	}
	s.mu.Lock()
	s.rateLimit = state
	s.hasLimit = true
	s.mu.Unlock()
}

// IsRateLimited reports whether the last known remaining quota is exhausted.
// Advisory and possibly stale: the reset time is recorded but deliberately
// not consulted.
func (s *Service) IsRateLimited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasLimit && s.rateLimit.Remaining <= 0
}

// RateLimit returns the last observed rate-limit snapshot.
func (s *Service) RateLimit() RateLimitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rateLimit
}

// LastError returns the most recent request failure, nil after a success.
func (s *Service) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LastResult returns the most recent successful result.
func (s *Service) LastResult() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

func (s *Service) fail(err *provider.Error) *provider.Error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// extractErrorMessage pulls a machine-readable error or message field out of
// a JSON error body, falling back to the HTTP status line.
func extractErrorMessage(raw []byte, statusLine string) string {
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, key := range []string{"error", "message", "msg"} {
			if v, ok := body[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return statusLine
}
