package webull

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradeflow/logger"
	"tradeflow/models"
)

// QuoteStream subscribes to WeBull's push websocket and forwards real-time
// quote ticks to the provided channel. One stream serves a fixed set of
// ticker ids; reconnects use capped exponential backoff.
type QuoteStream struct {
	client    *Client
	url       string
	tickerIDs []string
	quoteChan chan<- models.Quote
	ctx       context.Context
	wg        *sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	log       *logger.Entry
}

// NewQuoteStream creates a stream bound to the client's session. The client
// must be authenticated before Start for providers that gate push data.
func NewQuoteStream(client *Client, tickerIDs []string, quoteChan chan<- models.Quote) *QuoteStream {
	return &QuoteStream{
		client:    client,
		url:       pushBase,
		tickerIDs: tickerIDs,
		quoteChan: quoteChan,
		wg:        &sync.WaitGroup{},
		log:       logger.GetLogger().WithComponent("webull_stream"),
	}
}

// Start launches the websocket read loop.
func (s *QuoteStream) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("quote stream already running")
	}
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	if len(s.tickerIDs) == 0 {
		return fmt.Errorf("no ticker ids to subscribe")
	}

	s.log.WithFields(logger.Fields{"tickers": s.tickerIDs}).Info("starting quote stream")
	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop terminates the stream and waits for the read loop to exit.
func (s *QuoteStream) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.log.Info("stopping quote stream")
	s.wg.Wait()
	s.log.Info("quote stream stopped")
}

func (s *QuoteStream) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *QuoteStream) run() {
	defer s.wg.Done()

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		if !s.isRunning() {
			return
		}

		if err := s.connectAndRead(); err != nil {
			s.log.WithError(err).Warn("stream disconnected, reconnecting")
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *QuoteStream) connectAndRead() error {
	header := make(map[string][]string)
	if s.client.session.DeviceID != "" {
		header["did"] = []string{s.client.session.DeviceID}
	}
	if s.client.session.AccessToken != "" {
		header["access_token"] = []string{s.client.session.AccessToken}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(s.ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("dial push endpoint: %w", err)
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"op":        "subscribe",
		"tickerIds": s.tickerIDs,
		"type":      "quote",
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for {
		select {
		case <-s.ctx.Done():
			return nil
		default:
		}
		if !s.isRunning() {
			return nil
		}

		if err := conn.SetReadDeadline(time.Now().Add(time.Minute)); err != nil {
			return err
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(payload)
	}
}

func (s *QuoteStream) handleMessage(payload []byte) {
	var tick wbQuote
	if err := json.Unmarshal(payload, &tick); err != nil {
		s.log.WithError(err).Warn("failed to decode push message")
		return
	}
	if tick.TickerID == 0 {
		// heartbeat or subscription ack
		return
	}

	quote := models.Quote{
		Symbol:        tick.Symbol,
		Price:         float64(tick.LastPrice),
		Change:        float64(tick.Change),
		ChangePercent: float64(tick.ChangeRatio) * 100,
		Volume:        int64(tick.Volume),
		Open:          float64(tick.Open),
		High:          float64(tick.High),
		Low:           float64(tick.Low),
		PreviousClose: float64(tick.PreClose),
		Timestamp:     msToSeconds(tick.TradeTime),
		Source:        s.client.desc.ID,
	}

	select {
	case s.quoteChan <- quote:
	case <-s.ctx.Done():
	default:
		s.log.Warn("quote channel full, dropping tick")
	}
}
