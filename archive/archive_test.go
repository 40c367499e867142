package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	appconfig "tradeflow/config"
	"tradeflow/models"
)

func testConfig(t *testing.T) *appconfig.Config {
	t.Helper()
	return &appconfig.Config{
		Archive: appconfig.ArchiveConfig{
			Enabled:       true,
			Directory:     t.TempDir(),
			BatchSize:     2,
			FlushInterval: time.Minute,
		},
	}
}

func TestAppendQuoteFlushesAtBatchSize(t *testing.T) {
	cfg := testConfig(t)
	w, err := NewWriter(cfg)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	q := models.Quote{Symbol: "AAPL", Price: 123.45, Timestamp: 1681383600, Source: "webull"}
	w.AppendQuote(q)

	w.mu.Lock()
	buffered := len(w.quotes["AAPL"])
	w.mu.Unlock()
	if buffered != 1 {
		t.Fatalf("expected 1 buffered quote, got %d", buffered)
	}

	// Second quote reaches the batch size and flushes to disk.
	w.AppendQuote(q)

	w.mu.Lock()
	buffered = len(w.quotes["AAPL"])
	w.mu.Unlock()
	if buffered != 0 {
		t.Errorf("expected buffer drained after flush, got %d", buffered)
	}

	files := listParquet(t, cfg.Archive.Directory)
	if len(files) != 1 {
		t.Fatalf("expected 1 parquet file, got %v", files)
	}
	if !strings.Contains(files[0], "kind=quote") || !strings.Contains(files[0], "symbol=AAPL") {
		t.Errorf("unexpected object key layout: %s", files[0])
	}
}

func TestFlushAllDrainsBars(t *testing.T) {
	cfg := testConfig(t)
	w, err := NewWriter(cfg)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	w.AppendBars("MSFT", []models.Bar{
		{Timestamp: 1681383600, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	})
	w.FlushAll()

	files := listParquet(t, cfg.Archive.Directory)
	if len(files) != 1 {
		t.Fatalf("expected 1 parquet file, got %v", files)
	}
	if !strings.Contains(files[0], "kind=bar") {
		t.Errorf("unexpected object key layout: %s", files[0])
	}
}

func TestBuildQuoteParquetNotEmpty(t *testing.T) {
	data, err := buildQuoteParquet([]models.Quote{{Symbol: "AAPL", Price: 1}})
	if err != nil {
		t.Fatalf("buildQuoteParquet failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty parquet payload")
	}
}

func listParquet(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".parquet") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk archive dir: %v", err)
	}
	return files
}
