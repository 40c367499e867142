// Package tracker keeps advisory per-provider usage and rate-limit
// bookkeeping. The factory consults it to pick a provider for a data type
// and to route around providers that look rate-limited.
package tracker

import (
	"sync"
	"time"

	"tradeflow/logger"
	"tradeflow/provider"
	"tradeflow/transport"
)

// Tracker is the bookkeeping surface the factory consults. Implementations
// are advisory: a stale answer degrades provider selection, never
// correctness.
type Tracker interface {
	// BestProviderFor picks a provider id for the data type, or errors when
	// no candidate is usable.
	BestProviderFor(dataType provider.DataType) (string, error)
	// IsLikelyRateLimited reports whether calls to the provider for this
	// data type would probably be throttled.
	IsLikelyRateLimited(providerID string, dataType provider.DataType) bool
	// MarkRateLimited records that the provider throttled a call; the mark
	// expires after cooldown.
	MarkRateLimited(providerID string)
	// TrackCall records one call outcome for selection heuristics.
	TrackCall(providerID, endpoint string, success bool)
}

// DefaultCooldown is how long a rate-limit mark stays in force.
const DefaultCooldown = time.Minute

type providerStats struct {
	calls          int64
	failures       int64
	lastCall       time.Time
	rateLimitUntil time.Time
}

// Memory is an in-process Tracker. Safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	candidates []string
	stats      map[string]*providerStats
	cooldown   time.Duration
	clock      transport.Clock
	log        *logger.Entry
}

var _ Tracker = (*Memory)(nil)

// NewMemory builds a tracker over the given candidate provider ids. The
// clock is injected so cooldown expiry is testable.
func NewMemory(candidates []string, clock transport.Clock) *Memory {
	if clock == nil {
		clock = transport.SystemClock()
	}
	return &Memory{
		candidates: candidates,
		stats:      make(map[string]*providerStats),
		cooldown:   DefaultCooldown,
		clock:      clock,
		log:        logger.GetLogger().WithComponent("tracker"),
	}
}

// SetCooldown overrides the rate-limit mark duration.
func (m *Memory) SetCooldown(d time.Duration) {
	m.mu.Lock()
	m.cooldown = d
	m.mu.Unlock()
}

func (m *Memory) statsFor(providerID string) *providerStats {
	s, ok := m.stats[providerID]
	if !ok {
		s = &providerStats{}
		m.stats[providerID] = s
	}
	return s
}

// BestProviderFor picks the usable candidate with the best success history,
// requiring the capability matching the data type.
func (m *Memory) BestProviderFor(dataType provider.DataType) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	best := ""
	var bestScore float64 = -1

	for _, id := range m.candidates {
		desc, err := provider.Get(id)
		if err != nil {
			continue
		}
		if !capabilityFor(desc, dataType) {
			continue
		}
		s := m.statsFor(id)
		if s.rateLimitUntil.After(now) {
			continue
		}

		score := 1.0
		if s.calls > 0 {
			score = float64(s.calls-s.failures) / float64(s.calls)
		}
		if score > bestScore {
			bestScore = score
			best = id
		}
	}

	if best == "" {
		return "", provider.NewError(provider.KindUnknownProvider, "no usable provider for data type %q", dataType)
	}
	return best, nil
}

// IsLikelyRateLimited reports whether an unexpired rate-limit mark exists.
func (m *Memory) IsLikelyRateLimited(providerID string, dataType provider.DataType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsFor(providerID).rateLimitUntil.After(m.clock.Now())
}

// MarkRateLimited stamps the provider with a cooldown expiry.
func (m *Memory) MarkRateLimited(providerID string) {
	m.mu.Lock()
	s := m.statsFor(providerID)
	s.rateLimitUntil = m.clock.Now().Add(m.cooldown)
	m.mu.Unlock()

	m.log.WithFields(logger.Fields{"provider": providerID}).Warn("provider marked rate limited")
}

// TrackCall records a call outcome.
func (m *Memory) TrackCall(providerID, endpoint string, success bool) {
	m.mu.Lock()
	s := m.statsFor(providerID)
	s.calls++
	if !success {
		s.failures++
	}
	s.lastCall = m.clock.Now()
	m.mu.Unlock()
}

// capabilityFor maps a data type onto the descriptor capability that serves
// it.
func capabilityFor(desc provider.Descriptor, dataType provider.DataType) bool {
	switch dataType {
	case provider.DataNews:
		return desc.Can(provider.CapNews)
	case provider.DataEarnings, provider.DataProfile:
		return desc.Can(provider.CapFundamentals) || desc.Can(provider.CapNews)
	default:
		return desc.Can(provider.CapMarketData)
	}
}
