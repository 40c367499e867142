// Package factory constructs provider clients from the directory and the
// settings store, with tracker-driven fallback between providers.
package factory

import (
	"net/http"
	"time"

	"tradeflow/provider"
	"tradeflow/provider/alpaca"
	"tradeflow/provider/alphavantage"
	"tradeflow/provider/webull"
	"tradeflow/transport"
)

// Options carries everything a provider constructor may need. Unused fields
// are ignored by providers that do not support them.
type Options struct {
	Credentials       provider.Credentials
	Mode              provider.Mode
	Timeout           time.Duration
	Demo              bool
	RequestsPerSecond float64
	BurstSize         int
	HTTPClient        *http.Client
	Clock             transport.Clock
}

// builderFunc constructs one provider's client from generic options.
type builderFunc func(Options) (provider.Client, error)

// builders is the compile-time registry. Directory entries without a builder
// (polygon, telegram) are known providers whose implementation is
// unavailable.
var builders = map[string]builderFunc{
	"webull": func(opts Options) (provider.Client, error) {
		return webull.New(webull.Options{
			Credentials: opts.Credentials,
			Mode:        opts.Mode,
			Timeout:     opts.Timeout,
			Demo:        opts.Demo,
			HTTPClient:  opts.HTTPClient,
			Clock:       opts.Clock,
		})
	},
	"alpaca": func(opts Options) (provider.Client, error) {
		return alpaca.New(alpaca.Options{
			Credentials: opts.Credentials,
			Mode:        opts.Mode,
			Timeout:     opts.Timeout,
		})
	},
	"alphavantage": func(opts Options) (provider.Client, error) {
		return alphavantage.New(alphavantage.Options{
			Credentials:       opts.Credentials,
			Timeout:           opts.Timeout,
			HTTPClient:        opts.HTTPClient,
			Clock:             opts.Clock,
			RequestsPerSecond: opts.RequestsPerSecond,
		})
	},
}

// Create builds a client for the provider id. Unknown ids fail with
// unknown_provider; directory entries without a registered constructor fail
// with implementation_unavailable.
func Create(providerID string, opts Options) (provider.Client, error) {
	desc, err := provider.Get(providerID)
	if err != nil {
		return nil, err
	}

	build, ok := builders[desc.ID]
	if !ok {
		return nil, provider.NewError(provider.KindUnavailable, "provider %q has no client implementation", desc.ID)
	}

	client, err := build(opts)
	if err != nil {
		if _, ok := provider.AsError(err); ok {
			return nil, err
		}
		return nil, &provider.Error{
			Kind:    provider.KindInstantiation,
			Message: "failed to construct client for provider " + desc.ID,
			Cause:   err,
		}
	}
	return client, nil
}
