package provider

import (
	"sort"
)

// Capability names used in descriptor tables.
const (
	CapMarketData   = "market_data"
	CapTrading      = "trading"
	CapPaperTrading = "paper_trading"
	CapStreaming    = "streaming"
	CapNews         = "news"
	CapFundamentals = "fundamentals"
)

// directory is the static, compiled-in table of known providers. Entries may
// exist without a registered client implementation; constructing those yields
// an implementation_unavailable error rather than a lookup miss.
var directory = map[string]Descriptor{
	"webull": {
		ID:   "webull",
		Name: "WeBull",
		Auth: AuthOAuth,
		Type: APITrading,
		Capabilities: map[string]bool{
			CapMarketData:   true,
			CapTrading:      true,
			CapPaperTrading: true,
			CapStreaming:    true,
		},
		Sandbox: true,
	},
	"alpaca": {
		ID:   "alpaca",
		Name: "Alpaca",
		Auth: AuthAPIKey,
		Type: APITrading,
		Capabilities: map[string]bool{
			CapMarketData:   true,
			CapTrading:      true,
			CapPaperTrading: true,
		},
		Sandbox: true,
	},
	"alphavantage": {
		ID:   "alphavantage",
		Name: "Alpha Vantage",
		Auth: AuthAPIKey,
		Type: APIDataOnly,
		Capabilities: map[string]bool{
			CapMarketData:   true,
			CapNews:         true,
			CapFundamentals: true,
		},
	},
	"polygon": {
		ID:   "polygon",
		Name: "Polygon.io",
		Auth: AuthAPIKey,
		Type: APIDataOnly,
		Capabilities: map[string]bool{
			CapMarketData: true,
			CapNews:       true,
		},
	},
	"telegram": {
		ID:   "telegram",
		Name: "Telegram",
		Auth: AuthBotToken,
		Type: APIMessaging,
		Capabilities: map[string]bool{},
	},
}

// Get looks up a provider descriptor by id. Unknown ids return an
// unknown_provider error, never a panic; callers must branch on it.
func Get(id string) (Descriptor, error) {
	d, ok := directory[id]
	if !ok {
		return Descriptor{}, NewError(KindUnknownProvider, "no provider with id %q", id)
	}
	return d, nil
}

// List returns all known descriptors ordered by id. When apiTypes are given
// only providers of those types are included.
func List(apiTypes ...APIType) []Descriptor {
	out := make([]Descriptor, 0, len(directory))
	for _, d := range directory {
		if len(apiTypes) > 0 {
			match := false
			for _, t := range apiTypes {
				if d.Type == t {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
