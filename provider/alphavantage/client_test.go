package alphavantage

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"tradeflow/provider"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newClient(t *testing.T, body string) *Client {
	t.Helper()
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Query().Get("apikey") == "" {
			t.Error("apikey query parameter missing")
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("alphavantage must not send an Authorization header")
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     http.StatusText(http.StatusOK),
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	})
	c, err := New(Options{
		Credentials: provider.Credentials{APIKey: "demo-key"},
		HTTPClient:  &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Options{})
	if provider.KindOf(err) != provider.KindMissingCredentials {
		t.Fatalf("expected missing_credentials, got %v", err)
	}
}

func TestQueryInBandError(t *testing.T) {
	c := newClient(t, `{"Error Message": "Invalid API call."}`)

	_, err := c.RawGlobalQuote(context.Background(), "IBM")
	pe, ok := provider.AsError(err)
	if !ok || pe.Kind != provider.KindAPI {
		t.Fatalf("expected api_error, got %v", err)
	}
	if pe.Message != "Invalid API call." {
		t.Errorf("provider message lost: %q", pe.Message)
	}
}

func TestQueryThrottleNote(t *testing.T) {
	c := newClient(t, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`)

	_, err := c.RawGlobalQuote(context.Background(), "IBM")
	pe, ok := provider.AsError(err)
	if !ok || pe.Kind != provider.KindAPI || pe.Status != 429 {
		t.Fatalf("expected api_error with 429, got %v", err)
	}
	if !pe.Retryable() {
		t.Error("throttle notes must be retryable")
	}
}

func TestQuerySuccess(t *testing.T) {
	c := newClient(t, `{"Global Quote": {"05. price": "142.50"}}`)

	obj, err := c.RawGlobalQuote(context.Background(), "IBM")
	if err != nil {
		t.Fatalf("RawGlobalQuote failed: %v", err)
	}
	if _, ok := obj["Global Quote"]; !ok {
		t.Errorf("payload lost: %v", obj)
	}
}

func TestEarningsCalendarCSV(t *testing.T) {
	c := newClient(t, "symbol,name,reportDate,fiscalDateEnding,estimate,currency\nIBM,International Business Machines,2023-04-19,2023-03-31,1.26,USD\n")

	rows, err := c.EarningsCalendarRows(context.Background(), "")
	if err != nil {
		t.Fatalf("EarningsCalendarRows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(rows))
	}
	if rows[1][0] != "IBM" {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

func TestModeIsLive(t *testing.T) {
	c := newClient(t, `{}`)
	if c.Mode() != provider.ModeLive {
		t.Errorf("data-only provider must report live mode, got %s", c.Mode())
	}
}
