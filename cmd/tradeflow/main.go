package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradeflow/adapter"
	"tradeflow/archive"
	"tradeflow/config"
	"tradeflow/factory"
	"tradeflow/logger"
	"tradeflow/provider"
	"tradeflow/tracker"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "", "Path to configuration file")
	mode := flag.String("mode", "quote", "Operation: quote, bars, search, health, watch")
	providerID := flag.String("provider", "", "Provider id; empty lets the tracker pick")
	symbol := flag.String("symbol", "AAPL", "Ticker symbol")
	timeframe := flag.String("timeframe", "1d", "Bar timeframe")
	count := flag.Int("count", 30, "Number of bars")
	interval := flag.Duration("interval", 15*time.Second, "Polling interval for watch mode")

	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	env := config.AppEnvironment()
	log.WithFields(logger.Fields{
		"service":     cfg.Tradeflow.Name,
		"version":     cfg.Tradeflow.Version,
		"mode":        cfg.Tradeflow.Mode,
		"environment": env,
	}).Info("starting tradeflow")

	if config.IsProductionLike(env) {
		for _, id := range cfg.EnabledProviders() {
			if cfg.DemoMode(id) {
				log.WithFields(logger.Fields{
					"provider":    id,
					"environment": env,
				}).Warn("demo mode enabled in a production-like environment")
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := tracker.NewMemory(cfg.EnabledProviders(), nil)
	f := factory.New(cfg, tr, cfg.HTTP.Timeout)

	switch strings.ToLower(*mode) {
	case "quote":
		err = runQuote(ctx, f, tr, *providerID, *symbol)
	case "bars":
		err = runBars(ctx, f, tr, *providerID, *symbol, *timeframe, *count)
	case "search":
		err = runSearch(ctx, f, *providerID, *symbol)
	case "health":
		err = runHealth(ctx, f)
	case "watch":
		err = runWatch(ctx, cfg, f, tr, *providerID, *symbol, *interval)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func dataSource(f *factory.Factory, providerID string, dataType provider.DataType) (adapter.DataSource, string, error) {
	client, err := f.CreateFromSettings(providerID, dataType)
	if err != nil {
		return nil, "", err
	}
	return adapter.For(client), client.Descriptor().ID, nil
}

func runQuote(ctx context.Context, f *factory.Factory, tr tracker.Tracker, providerID, symbol string) error {
	src, id, err := dataSource(f, providerID, provider.DataQuote)
	if err != nil {
		return err
	}
	quote, err := src.GetQuote(ctx, symbol)
	tr.TrackCall(id, "quote", err == nil)
	if err != nil {
		return err
	}
	return printJSON(quote)
}

func runBars(ctx context.Context, f *factory.Factory, tr tracker.Tracker, providerID, symbol, timeframe string, count int) error {
	src, id, err := dataSource(f, providerID, provider.DataBars)
	if err != nil {
		return err
	}
	bars, err := src.GetHistoricalData(ctx, symbol, timeframe, count)
	tr.TrackCall(id, "bars", err == nil)
	if err != nil {
		return err
	}
	return printJSON(bars)
}

func runSearch(ctx context.Context, f *factory.Factory, providerID, keyword string) error {
	src, _, err := dataSource(f, providerID, provider.DataSearch)
	if err != nil {
		return err
	}
	matches, err := src.SearchSymbols(ctx, keyword)
	if err != nil {
		return err
	}
	return printJSON(matches)
}

func runHealth(ctx context.Context, f *factory.Factory) error {
	results := f.TestAllAPIs(ctx)
	out := make(map[string]string, len(results))
	failed := false
	for id, res := range results {
		switch {
		case res.Skipped:
			out[id] = "skipped"
		case res.Err != nil:
			out[id] = res.Err.Error()
			failed = true
		default:
			out[id] = "ok"
		}
	}
	if err := printJSON(out); err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("one or more providers failed the connection test")
	}
	return nil
}

// runWatch polls quotes on an interval and archives them until interrupted.
func runWatch(ctx context.Context, cfg *config.Config, f *factory.Factory, tr tracker.Tracker, providerID, symbol string, interval time.Duration) error {
	log := logger.GetLogger().WithComponent("watch")

	var arc *archive.Writer
	if cfg.Archive.Enabled {
		var err error
		arc, err = archive.NewWriter(cfg)
		if err != nil {
			return err
		}
		if err := arc.Start(ctx); err != nil {
			return err
		}
		defer arc.Stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithFields(logger.Fields{"symbol": symbol, "interval": interval.String()}).Info("watching quotes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigChan:
			log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutting down")
			return nil
		case <-ticker.C:
			src, id, err := dataSource(f, providerID, provider.DataQuote)
			if err != nil {
				log.WithError(err).Warn("no provider available")
				continue
			}
			start := time.Now()
			quote, err := src.GetQuote(ctx, symbol)
			tr.TrackCall(id, "quote", err == nil)
			logger.LogAPICall(log, id, "quote", err == nil, time.Since(start))
			if err != nil {
				if pe, ok := provider.AsError(err); ok && pe.Status == 429 {
					tr.MarkRateLimited(id)
				}
				continue
			}
			if arc != nil {
				arc.AppendQuote(quote)
			}
			log.WithFields(logger.Fields{
				"symbol": quote.Symbol,
				"price":  quote.Price,
				"source": quote.Source,
			}).Info("quote")
		}
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
