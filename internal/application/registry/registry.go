// Package registry owns the process-wide map from canonical instrument id
// to its price state and venue stream. It is the only component that
// decides when connections are opened, replaced, or retried.
package registry

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"folio/internal/application/port"
	"folio/internal/domain"
)

// DefaultRetryDelay is the fixed pause before a dead stream is reopened.
const DefaultRetryDelay = 1500 * time.Millisecond

type entry struct {
	state  *domain.PriceState
	stream port.Stream
	// retryPending guards against arming a second timer while one is
	// already in flight for this instrument.
	retryPending bool
}

// Deps wires a Registry.
type Deps struct {
	Factory    port.StreamFactory
	RetryDelay time.Duration
}

// Registry maps canonical instrument ids to their registry entries.
// All fields are guarded by mu; streams report back through onTerminated
// from their own goroutines.
type Registry struct {
	mu      sync.Mutex
	factory port.StreamFactory
	delay   time.Duration
	entries map[string]*entry
	closed  bool

	// after arms a retry timer; swapped out by tests.
	after func(d time.Duration, f func())
}

func New(d Deps) *Registry {
	delay := d.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return &Registry{
		factory: d.Factory,
		delay:   delay,
		entries: make(map[string]*entry),
		after:   func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// EnsureStream normalizes the symbol and guarantees a live stream exists
// for it: at most one connection per instrument, reusing the existing
// price state across reconnects. Returns the instrument's state.
func (r *Registry) EnsureStream(rawSymbol string) *domain.PriceState {
	symbol := domain.NormalizeCrypto(rawSymbol)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureLocked(symbol)
}

func (r *Registry) ensureLocked(symbol string) *domain.PriceState {
	ent, ok := r.entries[symbol]
	if ok && ent.stream != nil && ent.stream.Phase().Alive() {
		return ent.state
	}
	if !ok {
		ent = &entry{state: domain.NewPriceState(symbol)}
		r.entries[symbol] = ent
	}
	if r.closed {
		return ent.state
	}

	log.Info().Str("symbol", symbol).Msg("opening price stream")
	ent.stream = r.factory.Open(symbol, ent.state, r.onTerminated)
	return ent.state
}

// onTerminated is the single notification a stream sends when its
// connection is done, whatever the cause. Close and error coalesce into
// one call, so one retry timer at most is armed here.
func (r *Registry) onTerminated(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ent, ok := r.entries[symbol]
	if !ok || ent.retryPending || r.closed {
		return
	}
	ent.retryPending = true
	log.Warn().Str("symbol", symbol).Dur("delay", r.delay).Msg("price stream down, reconnect scheduled")

	r.after(r.delay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// Clear the pending flag before reconnecting so an immediate
		// failure of this attempt can arm the next timer.
		ent, ok := r.entries[symbol]
		if !ok || r.closed {
			return
		}
		ent.retryPending = false
		r.ensureLocked(symbol)
	})
}

// Snapshot returns the instrument's current state without blocking on the
// network. A never-seen symbol gets an entry and a stream on first read
// (lazy warm-up) and reports warming until a price arrives.
func (r *Registry) Snapshot(rawSymbol string) domain.Snapshot {
	symbol := domain.NormalizeCrypto(rawSymbol)

	r.mu.Lock()
	ent, ok := r.entries[symbol]
	var state *domain.PriceState
	if ok {
		state = ent.state
	} else {
		state = r.ensureLocked(symbol)
	}
	r.mu.Unlock()

	return state.Snapshot()
}

// Close tears down every stream and stops future reconnects. Price state
// is not cleared; the registry is done for the life of the process.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	streams := make([]port.Stream, 0, len(r.entries))
	for _, ent := range r.entries {
		if ent.stream != nil {
			streams = append(streams, ent.stream)
		}
	}
	r.mu.Unlock()

	for _, s := range streams {
		_ = s.Close()
	}
}
