package transport

import (
	"net/http"
	"strconv"
	"time"
)

// Clock abstracts the time source so rate-limit state can be tested without
// sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// RateLimitState is the advisory, best-effort view of the provider's call
// quota derived from response headers. Last write wins; concurrent updates
// racing only produces slightly stale advisory data.
type RateLimitState struct {
	Limit     int
	Remaining int
	Reset     time.Time
	UpdatedAt time.Time
}

// parseRateLimitHeaders extracts x-ratelimit-* headers into a state snapshot.
// Missing headers return ok=false so prior state is left unchanged.
func parseRateLimitHeaders(h http.Header, clock Clock) (RateLimitState, bool) {
	limitStr := h.Get("x-ratelimit-limit")
	remainingStr := h.Get("x-ratelimit-remaining")
	if limitStr == "" && remainingStr == "" {
		return RateLimitState{}, false
	}

	state := RateLimitState{UpdatedAt: clock.Now()}
	if v, err := strconv.Atoi(limitStr); err == nil {
		state.Limit = v
	}
	if v, err := strconv.Atoi(remainingStr); err == nil {
		state.Remaining = v
	}
	if resetStr := h.Get("x-ratelimit-reset"); resetStr != "" {
		if v, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			state.Reset = time.Unix(v, 0)
		}
	}
	return state, true
}
