package tracker

import (
	"testing"
	"time"

	"tradeflow/provider"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestTracker(t *testing.T, candidates []string) (*Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1681383600, 0)}
	return NewMemory(candidates, clock), clock
}

func TestBestProviderForPrefersSuccessHistory(t *testing.T) {
	tr, _ := newTestTracker(t, []string{"webull", "alpaca"})

	tr.TrackCall("webull", "quote", false)
	tr.TrackCall("webull", "quote", false)
	tr.TrackCall("alpaca", "quote", true)

	id, err := tr.BestProviderFor(provider.DataQuote)
	if err != nil {
		t.Fatalf("BestProviderFor failed: %v", err)
	}
	if id != "alpaca" {
		t.Errorf("expected alpaca, got %s", id)
	}
}

func TestBestProviderForSkipsRateLimited(t *testing.T) {
	tr, _ := newTestTracker(t, []string{"webull", "alpaca"})

	tr.MarkRateLimited("webull")

	id, err := tr.BestProviderFor(provider.DataQuote)
	if err != nil {
		t.Fatalf("BestProviderFor failed: %v", err)
	}
	if id != "alpaca" {
		t.Errorf("expected alpaca, got %s", id)
	}
}

func TestRateLimitMarkExpires(t *testing.T) {
	tr, clock := newTestTracker(t, []string{"webull"})

	tr.MarkRateLimited("webull")
	if !tr.IsLikelyRateLimited("webull", provider.DataQuote) {
		t.Fatal("expected webull rate limited immediately after mark")
	}
	if _, err := tr.BestProviderFor(provider.DataQuote); err == nil {
		t.Fatal("expected no usable provider while mark in force")
	}

	clock.advance(DefaultCooldown + time.Second)

	if tr.IsLikelyRateLimited("webull", provider.DataQuote) {
		t.Error("expected mark to expire after cooldown")
	}
	id, err := tr.BestProviderFor(provider.DataQuote)
	if err != nil {
		t.Fatalf("BestProviderFor failed after expiry: %v", err)
	}
	if id != "webull" {
		t.Errorf("expected webull, got %s", id)
	}
}

func TestBestProviderForCapability(t *testing.T) {
	// alpaca serves market data but not news; alphavantage serves both.
	tr, _ := newTestTracker(t, []string{"alpaca", "alphavantage"})

	id, err := tr.BestProviderFor(provider.DataNews)
	if err != nil {
		t.Fatalf("BestProviderFor failed: %v", err)
	}
	if id != "alphavantage" {
		t.Errorf("expected alphavantage for news, got %s", id)
	}
}

func TestBestProviderForUnknownCandidate(t *testing.T) {
	tr, _ := newTestTracker(t, []string{"etrade"})

	if _, err := tr.BestProviderFor(provider.DataQuote); err == nil {
		t.Fatal("expected error when no candidate is known")
	}
}
