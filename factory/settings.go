package factory

import (
	"context"
	"time"

	"tradeflow/config"
	"tradeflow/logger"
	"tradeflow/provider"
	"tradeflow/tracker"
)

// Factory resolves provider clients from a settings store, consulting the
// usage tracker for fallback routing. It holds no client cache; construction
// is cheap and credentials may rotate between calls.
type Factory struct {
	settings config.SettingsStore
	tracker  tracker.Tracker
	timeout  time.Duration
	log      *logger.Entry
}

// New builds a settings-driven factory. The tracker may be nil, which
// disables fallback routing entirely.
func New(settings config.SettingsStore, tr tracker.Tracker, timeout time.Duration) *Factory {
	return &Factory{
		settings: settings,
		tracker:  tr,
		timeout:  timeout,
		log:      logger.GetLogger().WithComponent("factory"),
	}
}

func (f *Factory) build(providerID string) (provider.Client, error) {
	if !f.settings.ProviderEnabled(providerID) {
		return nil, provider.NewError(provider.KindUnavailable, "provider %q is disabled", providerID)
	}

	mode := f.settings.Mode()
	creds, err := f.settings.Credentials(providerID, mode)
	if err != nil {
		return nil, err
	}
	rps, burst := f.settings.RateLimit(providerID)

	return Create(providerID, Options{
		Credentials:       creds,
		Mode:              mode,
		Timeout:           f.timeout,
		Demo:              f.settings.DemoMode(providerID),
		RequestsPerSecond: rps,
		BurstSize:         burst,
	})
}

// noteCreated records a synthetic successful connection_test call so the
// tracker's selection history stays warm for factory-only consumers.
func (f *Factory) noteCreated(providerID string) {
	if f.tracker != nil {
		f.tracker.TrackCall(providerID, "connection_test", true)
	}
}

// CreateFromSettings resolves a client for the data type. An explicit
// providerID is honored exactly unless the tracker reports it rate-limited,
// in which case a capable substitute is chosen. An empty providerID asks the
// tracker to pick.
func (f *Factory) CreateFromSettings(providerID string, dataType provider.DataType) (provider.Client, error) {
	if providerID == "" {
		return f.createTracked(dataType)
	}

	if f.tracker != nil && f.tracker.IsLikelyRateLimited(providerID, dataType) {
		substitute, err := f.tracker.BestProviderFor(dataType)
		if err == nil && substitute != providerID {
			f.log.WithFields(logger.Fields{
				"provider":   providerID,
				"substitute": substitute,
				"data_type":  string(dataType),
			}).Warn("provider rate limited, substituting")
			if client, err := f.build(substitute); err == nil {
				f.noteCreated(substitute)
				return client, nil
			}
		}
		// Substitution failed; fall through to the requested provider.
	}

	client, err := f.build(providerID)
	if err != nil {
		return nil, err
	}
	f.noteCreated(providerID)
	return client, nil
}

func (f *Factory) createTracked(dataType provider.DataType) (provider.Client, error) {
	if f.tracker != nil {
		if id, err := f.tracker.BestProviderFor(dataType); err == nil {
			if client, err := f.build(id); err == nil {
				f.noteCreated(id)
				return client, nil
			}
		}
	}

	// Tracker unavailable or its pick failed to construct; try the configured
	// hard default before walking the directory.
	if id := f.settings.DefaultProvider(); id != "" {
		if client, err := f.build(id); err == nil {
			f.noteCreated(id)
			return client, nil
		}
	}

	for _, desc := range provider.List() {
		if !f.settings.ProviderEnabled(desc.ID) {
			continue
		}
		client, err := f.build(desc.ID)
		if err != nil {
			continue
		}
		f.noteCreated(desc.ID)
		return client, nil
	}
	return nil, provider.NewError(provider.KindUnavailable, "no enabled provider can serve data type %q", dataType)
}

// TestResult is one provider's connection check outcome.
type TestResult struct {
	Provider string
	Skipped  bool
	Err      error
}

// TestAllAPIs runs TestConnection against every directory provider. Disabled
// or unbuildable providers come back Skipped; failures carry the error.
func (f *Factory) TestAllAPIs(ctx context.Context) map[string]TestResult {
	results := make(map[string]TestResult)
	for _, desc := range provider.List() {
		res := TestResult{Provider: desc.ID}
		if !f.settings.ProviderEnabled(desc.ID) {
			res.Skipped = true
			results[desc.ID] = res
			continue
		}

		client, err := f.build(desc.ID)
		if err != nil {
			if provider.KindOf(err) == provider.KindUnavailable {
				res.Skipped = true
			} else {
				res.Err = err
			}
			results[desc.ID] = res
			continue
		}

		start := time.Now()
		err = client.TestConnection(ctx)
		res.Err = err
		results[desc.ID] = res

		logger.LogAPICall(f.log, desc.ID, "connection_test", err == nil, time.Since(start))
		if f.tracker != nil {
			f.tracker.TrackCall(desc.ID, "connection_test", err == nil)
		}
	}
	return results
}
