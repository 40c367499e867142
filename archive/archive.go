// Package archive persists quote and bar snapshots as parquet files, locally
// or in S3, for later backtesting and audit.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "tradeflow/config"
	"tradeflow/logger"
	"tradeflow/models"
)

// quoteRecord defines the parquet schema for archived quotes.
type quoteRecord struct {
	Symbol        string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price         float64 `parquet:"name=price, type=DOUBLE"`
	Change        float64 `parquet:"name=change, type=DOUBLE"`
	ChangePercent float64 `parquet:"name=change_percent, type=DOUBLE"`
	Volume        int64   `parquet:"name=volume, type=INT64"`
	Bid           float64 `parquet:"name=bid, type=DOUBLE"`
	Ask           float64 `parquet:"name=ask, type=DOUBLE"`
	Timestamp     int64   `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Source        string  `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// barRecord defines the parquet schema for archived bars.
type barRecord struct {
	Symbol    string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Open      float64 `parquet:"name=open, type=DOUBLE"`
	High      float64 `parquet:"name=high, type=DOUBLE"`
	Low       float64 `parquet:"name=low, type=DOUBLE"`
	Close     float64 `parquet:"name=close, type=DOUBLE"`
	Volume    int64   `parquet:"name=volume, type=INT64"`
	Timestamp int64   `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// memFileWriter adapts a byte buffer to the parquet source interface so files
// are assembled in memory before upload.
type memFileWriter struct{ buffer *bytes.Buffer }

func newMemFileWriter() *memFileWriter { return &memFileWriter{buffer: &bytes.Buffer{}} }

func (m *memFileWriter) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFileWriter) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFileWriter) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFileWriter) Read([]byte) (int, error)                  { return 0, nil }
func (m *memFileWriter) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFileWriter) Close() error                              { return nil }
func (m *memFileWriter) Bytes() []byte                             { return m.buffer.Bytes() }

// Writer buffers quotes and bars per symbol and flushes them as parquet
// batches, to S3 when configured and to the local archive directory
// otherwise.
type Writer struct {
	cfg         *appconfig.Config
	s3Client    *s3.Client
	quotes      map[string][]models.Quote
	bars        map[string][]models.Bar
	mu          sync.Mutex
	flushTicker *time.Ticker
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	log         *logger.Entry
}

// NewWriter initializes an archive writer; the S3 client is only built when
// S3 storage is enabled.
func NewWriter(cfg *appconfig.Config) (*Writer, error) {
	w := &Writer{
		cfg:    cfg,
		quotes: make(map[string][]models.Quote),
		bars:   make(map[string][]models.Bar),
		log:    logger.GetLogger().WithComponent("archive"),
	}

	if cfg.Storage.S3.Enabled {
		loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Storage.S3.Region)}
		if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					cfg.Storage.S3.AccessKeyID,
					cfg.Storage.S3.SecretAccessKey,
					"",
				)))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		w.s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Storage.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
			}
			o.UsePathStyle = cfg.Storage.S3.PathStyle
		})
	}

	return w, nil
}

// Start launches the periodic flush loop.
func (w *Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("archive writer already running")
	}
	w.running = true
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.Archive.FlushInterval)
	w.mu.Unlock()

	w.wg.Add(1)
	go w.flushLoop()

	w.log.Info("archive writer started")
	return nil
}

// Stop halts the flush loop and drains remaining buffers.
func (w *Writer) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.flushTicker.Stop()
	w.cancel()
	w.wg.Wait()
	w.FlushAll()
	w.log.Info("archive writer stopped")
}

// AppendQuote buffers one quote, flushing its symbol when the batch fills.
func (w *Writer) AppendQuote(q models.Quote) {
	w.mu.Lock()
	w.quotes[q.Symbol] = append(w.quotes[q.Symbol], q)
	full := len(w.quotes[q.Symbol]) >= w.cfg.Archive.BatchSize
	w.mu.Unlock()
	if full {
		w.flushQuotes(q.Symbol)
	}
}

// AppendBars buffers a slice of bars for one symbol.
func (w *Writer) AppendBars(symbol string, bars []models.Bar) {
	w.mu.Lock()
	w.bars[symbol] = append(w.bars[symbol], bars...)
	full := len(w.bars[symbol]) >= w.cfg.Archive.BatchSize
	w.mu.Unlock()
	if full {
		w.flushBars(symbol)
	}
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.FlushAll()
		}
	}
}

// FlushAll drains every buffered symbol.
func (w *Writer) FlushAll() {
	w.mu.Lock()
	quoteSymbols := make([]string, 0, len(w.quotes))
	for s := range w.quotes {
		quoteSymbols = append(quoteSymbols, s)
	}
	barSymbols := make([]string, 0, len(w.bars))
	for s := range w.bars {
		barSymbols = append(barSymbols, s)
	}
	w.mu.Unlock()

	for _, s := range quoteSymbols {
		w.flushQuotes(s)
	}
	for _, s := range barSymbols {
		w.flushBars(s)
	}
}

func (w *Writer) flushQuotes(symbol string) {
	w.mu.Lock()
	quotes := w.quotes[symbol]
	if len(quotes) == 0 {
		w.mu.Unlock()
		return
	}
	delete(w.quotes, symbol)
	w.mu.Unlock()

	data, err := buildQuoteParquet(quotes)
	if err != nil {
		w.log.WithError(err).Error("create quote parquet failed")
		return
	}
	w.store("quote", symbol, len(quotes), data)
}

func (w *Writer) flushBars(symbol string) {
	w.mu.Lock()
	bars := w.bars[symbol]
	if len(bars) == 0 {
		w.mu.Unlock()
		return
	}
	delete(w.bars, symbol)
	w.mu.Unlock()

	data, err := buildBarParquet(symbol, bars)
	if err != nil {
		w.log.WithError(err).Error("create bar parquet failed")
		return
	}
	w.store("bar", symbol, len(bars), data)
}

func (w *Writer) store(kind, symbol string, records int, data []byte) {
	start := time.Now()
	key := w.objectKey(kind, symbol, start)
	var err error
	if w.s3Client != nil {
		err = w.upload(key, data)
	} else {
		err = w.writeLocal(key, data)
	}
	if err != nil {
		w.log.WithError(err).WithFields(logger.Fields{"key": key}).Error("archive batch store failed")
		return
	}
	logger.LogPerformanceEntry(w.log, "archive", "batch_store", time.Since(start), logger.Fields{
		"key":     key,
		"records": records,
		"bytes":   len(data),
	})
}

func buildQuoteParquet(quotes []models.Quote) ([]byte, error) {
	mw := newMemFileWriter()
	pw, err := writer.NewParquetWriter(mw, new(quoteRecord), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, q := range quotes {
		rec := quoteRecord{
			Symbol:        q.Symbol,
			Price:         q.Price,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			Volume:        q.Volume,
			Bid:           q.Bid,
			Ask:           q.Ask,
			Timestamp:     q.Timestamp * 1000,
			Source:        q.Source,
		}
		if err := pw.Write(rec); err != nil {
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return mw.Bytes(), nil
}

func buildBarParquet(symbol string, bars []models.Bar) ([]byte, error) {
	mw := newMemFileWriter()
	pw, err := writer.NewParquetWriter(mw, new(barRecord), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, b := range bars {
		rec := barRecord{
			Symbol:    symbol,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			Timestamp: b.Timestamp * 1000,
		}
		if err := pw.Write(rec); err != nil {
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return mw.Bytes(), nil
}

func (w *Writer) upload(key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(w.cfg.Storage.S3.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := w.s3Client.PutObject(ctx, input)
	return err
}

func (w *Writer) writeLocal(key string, data []byte) error {
	dir := w.cfg.Archive.Directory
	if dir == "" {
		dir = "archive"
	}
	path := filepath.Join(dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (w *Writer) objectKey(kind, symbol string, ts time.Time) string {
	parts := []string{
		fmt.Sprintf("kind=%s", kind),
		fmt.Sprintf("symbol=%s", symbol),
		fmt.Sprintf("year=%04d", ts.Year()),
		fmt.Sprintf("month=%02d", int(ts.Month())),
		fmt.Sprintf("day=%02d", ts.Day()),
	}
	filename := fmt.Sprintf("%s_%s_%s.parquet", kind, symbol, uuid.New().String())
	return filepath.ToSlash(filepath.Join(append(parts, filename)...))
}
