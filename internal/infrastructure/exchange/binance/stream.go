// Package binance streams mark prices from the Binance futures combined
// stream, one websocket connection per canonical instrument.
package binance

import (
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"folio/internal/application/port"
	"folio/internal/domain"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
	pingInterval     = 25 * time.Second
	writeTimeout     = 5 * time.Second
)

// Factory opens markPrice streams against one websocket base URL
// (wss://fstream.binance.com in production, an httptest server in tests).
type Factory struct {
	wsBase string
	dialer *websocket.Dialer
}

func NewFactory(wsBase string) *Factory {
	return &Factory{
		wsBase: strings.TrimSpace(wsBase),
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

// Open starts a stream for the canonical symbol. The connection is dialed
// on the stream's own goroutine, so onTerminated never fires before Open
// returns.
func (f *Factory) Open(symbol string, state *domain.PriceState, onTerminated func(string)) port.Stream {
	s := &stream{
		symbol:       symbol,
		state:        state,
		onTerminated: onTerminated,
		dialer:       f.dialer,
	}
	s.phase.Store(int32(domain.PhaseConnecting))

	wsURL, err := markPriceURL(f.wsBase, symbol)
	if err != nil {
		log.Error().Str("symbol", symbol).Err(err).Msg("bad stream url")
		go s.fail()
		return s
	}

	go s.run(wsURL)
	return s
}

// markPriceURL builds the combined-stream endpoint for one instrument,
// e.g. wss://fstream.binance.com/stream?streams=btcusdt@markPrice.
func markPriceURL(base, symbol string) (string, error) {
	if base == "" {
		return "", errors.New("binance ws base empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.ToLower(symbol) + "@markPrice"
	return u.String(), nil
}

// combinedEnvelope is the combined-stream wrapper around one event.
type combinedEnvelope struct {
	Stream string        `json:"stream"`
	Data   markPriceData `json:"data"`
}

type markPriceData struct {
	Event       string `json:"e"`
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	MarkPrice   string `json:"p"`
	NextFunding int64  `json:"T"`
}

type stream struct {
	symbol       string
	state        *domain.PriceState
	onTerminated func(string)
	dialer       *websocket.Dialer

	phase atomic.Int32

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	// terminated coalesces close and error into a single notification.
	terminated sync.Once
}

func (s *stream) Phase() domain.ConnPhase {
	return domain.ConnPhase(s.phase.Load())
}

func (s *stream) Close() error {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	// Not dialed yet; the dial goroutine notices closed and terminates.
	return nil
}

func (s *stream) run(wsURL string) {
	conn, _, err := s.dialer.Dial(wsURL, nil)
	if err != nil {
		log.Error().Str("symbol", s.symbol).Err(err).Msg("ws dial failed")
		s.fail()
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		s.finish(domain.PhaseClosed)
		return
	}
	s.conn = conn
	s.mu.Unlock()

	s.phase.Store(int32(domain.PhaseOpen))
	log.Info().Str("symbol", s.symbol).Msg("ws connected")

	s.readLoop(conn)
}

func (s *stream) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout))
			}
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			deliberate := s.closed
			s.mu.Unlock()

			if deliberate || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info().Str("symbol", s.symbol).Msg("ws closed")
				s.finish(domain.PhaseClosed)
			} else {
				log.Warn().Str("symbol", s.symbol).Err(err).Msg("ws read failed")
				s.fail()
			}
			_ = conn.Close()
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		s.handleMessage(payload)
	}
}

// handleMessage applies one inbound frame. A malformed frame is logged and
// skipped; the connection stays open.
func (s *stream) handleMessage(payload []byte) {
	var env combinedEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Warn().Str("symbol", s.symbol).Err(err).Msg("markPrice frame decode failed")
		return
	}
	raw := strings.TrimSpace(env.Data.MarkPrice)
	if raw == "" {
		return
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn().Str("symbol", s.symbol).Str("price", raw).Err(err).Msg("markPrice not numeric")
		return
	}

	ts := time.Now()
	if env.Data.EventTime > 0 {
		ts = time.UnixMilli(env.Data.EventTime)
	} else if env.Data.NextFunding > 0 {
		ts = time.UnixMilli(env.Data.NextFunding)
	}
	s.state.SetPrice(price, ts)
}

// fail marks the stream errored and terminates it. Error and close funnel
// into the same single notification.
func (s *stream) fail() {
	s.finish(domain.PhaseErrored)
}

func (s *stream) finish(phase domain.ConnPhase) {
	s.phase.Store(int32(phase))
	s.terminated.Do(func() { s.onTerminated(s.symbol) })
}
