package config

import (
	"tradeflow/provider"
)

// SettingsStore is the read surface the factory uses to resolve which
// providers are available and with which credentials. Config implements it
// over the loaded yaml file; other backends (a database, a secrets manager)
// can implement it too.
type SettingsStore interface {
	// ProviderEnabled reports whether the provider is switched on.
	ProviderEnabled(providerID string) bool
	// DemoMode reports whether the provider should run with canned data.
	DemoMode(providerID string) bool
	// Mode returns the trading mode the deployment runs in.
	Mode() provider.Mode
	// Credentials resolves the credential set for the provider under the
	// given mode. Data-only providers ignore mode and return their single
	// key set.
	Credentials(providerID string, mode provider.Mode) (provider.Credentials, error)
	// RateLimit returns the configured client-side request rate, zero when
	// unset.
	RateLimit(providerID string) (rps float64, burst int)
	// DefaultProvider returns the hard-fallback provider id, empty when
	// fallback is disabled.
	DefaultProvider() string
}

var _ SettingsStore = (*Config)(nil)

func (c *Config) providerConfig(providerID string) (*ProviderConfig, bool) {
	switch providerID {
	case "webull":
		return &c.Providers.Webull, true
	case "alpaca":
		return &c.Providers.Alpaca, true
	case "alphavantage":
		return &c.Providers.AlphaVantage, true
	default:
		return nil, false
	}
}

func (c *Config) ProviderEnabled(providerID string) bool {
	pc, ok := c.providerConfig(providerID)
	return ok && pc.Enabled
}

func (c *Config) DemoMode(providerID string) bool {
	pc, ok := c.providerConfig(providerID)
	return ok && pc.Demo
}

func (c *Config) Mode() provider.Mode {
	return provider.Mode(c.Tradeflow.Mode)
}

// Credentials resolves per-mode credentials. Trading providers keep distinct
// paper and live sets; data-only providers carry one set in the live slot.
func (c *Config) Credentials(providerID string, mode provider.Mode) (provider.Credentials, error) {
	pc, ok := c.providerConfig(providerID)
	if !ok {
		return provider.Credentials{}, provider.NewError(provider.KindUnknownProvider, "no settings for provider %q", providerID)
	}

	desc, err := provider.Get(providerID)
	if err != nil {
		return provider.Credentials{}, err
	}

	set := pc.Live
	if desc.Type == provider.APITrading && mode == provider.ModePaper {
		set = pc.Paper
	}

	creds := set.credentials()
	if creds.Empty() && !pc.Demo {
		return provider.Credentials{}, provider.NewError(provider.KindMissingCredentials,
			"no %s credentials configured for provider %q", mode, providerID)
	}
	return creds, nil
}

func (c *Config) RateLimit(providerID string) (float64, int) {
	pc, ok := c.providerConfig(providerID)
	if !ok {
		return 0, 0
	}
	return pc.RequestsPerSecond, pc.BurstSize
}

// DefaultProvider returns the configured hard-fallback provider, consulted by
// the factory when no provider is specified and the tracker cannot pick one.
func (c *Config) DefaultProvider() string {
	if !c.Fallback.Enabled {
		return ""
	}
	return c.Fallback.DefaultProvider
}

// EnabledProviders lists the configured providers that are switched on, in
// directory order.
func (c *Config) EnabledProviders() []string {
	var out []string
	for _, desc := range provider.List() {
		if c.ProviderEnabled(desc.ID) {
			out = append(out, desc.ID)
		}
	}
	return out
}
