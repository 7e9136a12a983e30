package registry

import (
	"sync"
	"testing"
	"time"

	"folio/internal/application/port"
	"folio/internal/domain"
)

type fakeStream struct {
	mu    sync.Mutex
	phase domain.ConnPhase
}

func (f *fakeStream) Phase() domain.ConnPhase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

func (f *fakeStream) Close() error { return nil }

func (f *fakeStream) setPhase(p domain.ConnPhase) {
	f.mu.Lock()
	f.phase = p
	f.mu.Unlock()
}

type fakeFactory struct {
	mu      sync.Mutex
	opened  []string
	streams []*fakeStream
}

func (f *fakeFactory) Open(symbol string, state *domain.PriceState, onTerminated func(string)) port.Stream {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeStream{phase: domain.PhaseConnecting}
	f.opened = append(f.opened, symbol)
	f.streams = append(f.streams, s)
	return s
}

func (f *fakeFactory) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opened)
}

func (f *fakeFactory) last() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[len(f.streams)-1]
}

// manualTimers collects armed retry timers so tests fire them by hand.
type manualTimers struct {
	mu    sync.Mutex
	funcs []func()
}

func (m *manualTimers) after(d time.Duration, f func()) {
	m.mu.Lock()
	m.funcs = append(m.funcs, f)
	m.mu.Unlock()
}

func (m *manualTimers) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.funcs)
}

func (m *manualTimers) fireAll() {
	m.mu.Lock()
	funcs := m.funcs
	m.funcs = nil
	m.mu.Unlock()
	for _, f := range funcs {
		f()
	}
}

func newTestRegistry() (*Registry, *fakeFactory, *manualTimers) {
	factory := &fakeFactory{}
	timers := &manualTimers{}
	r := New(Deps{Factory: factory})
	r.after = timers.after
	return r, factory, timers
}

func TestEnsureStreamAtMostOneConnection(t *testing.T) {
	r, factory, _ := newTestRegistry()

	r.EnsureStream("btc-usdt")
	r.EnsureStream("BTCUSDT")
	if got := factory.openCount(); got != 1 {
		t.Fatalf("expected 1 stream while connecting, got %d", got)
	}

	factory.last().setPhase(domain.PhaseOpen)
	r.EnsureStream("btc/usdt")
	if got := factory.openCount(); got != 1 {
		t.Fatalf("expected 1 stream while open, got %d", got)
	}
}

func TestEnsureStreamReplacesDeadConnection(t *testing.T) {
	r, factory, _ := newTestRegistry()

	state := r.EnsureStream("eth")
	state.SetPrice(2000, time.Now())
	factory.last().setPhase(domain.PhaseClosed)

	again := r.EnsureStream("eth")
	if got := factory.openCount(); got != 2 {
		t.Fatalf("expected a replacement stream, got %d opens", got)
	}
	if again != state {
		t.Fatal("price state must survive a reconnect")
	}
	if snap := again.Snapshot(); snap.Status != domain.StatusReady {
		t.Errorf("price history lost across reconnect: status %q", snap.Status)
	}
}

func TestScheduleReconnectDedupsTimers(t *testing.T) {
	r, factory, timers := newTestRegistry()

	r.EnsureStream("btc")
	factory.last().setPhase(domain.PhaseErrored)

	// error and close arriving back to back must arm a single timer
	r.onTerminated("BTCUSDT")
	r.onTerminated("BTCUSDT")
	if got := timers.pending(); got != 1 {
		t.Fatalf("expected 1 pending retry timer, got %d", got)
	}

	timers.fireAll()
	if got := factory.openCount(); got != 2 {
		t.Fatalf("expected reconnect after timer fired, got %d opens", got)
	}

	// the fired timer cleared the pending flag, so the next drop re-arms
	factory.last().setPhase(domain.PhaseClosed)
	r.onTerminated("BTCUSDT")
	if got := timers.pending(); got != 1 {
		t.Fatalf("expected retry to re-arm after previous fire, got %d", got)
	}
}

func TestReconnectForUnknownSymbolIsNoop(t *testing.T) {
	r, factory, timers := newTestRegistry()

	r.onTerminated("NEVERSEEN")
	if timers.pending() != 0 || factory.openCount() != 0 {
		t.Fatal("terminate for unknown symbol must not arm a timer")
	}
}

func TestSnapshotLazyWarmup(t *testing.T) {
	r, factory, _ := newTestRegistry()

	snap := r.Snapshot("sol")
	if got := factory.openCount(); got != 1 {
		t.Fatalf("snapshot of a never-seen symbol must start streaming, got %d opens", got)
	}
	if snap.Symbol != "SOLUSDT" {
		t.Errorf("symbol = %q, want SOLUSDT", snap.Symbol)
	}
	if snap.Status != domain.StatusWarming || snap.Price != nil || snap.LastUpdated != nil {
		t.Errorf("fresh snapshot must be warming with null fields: %+v", snap)
	}
}

func TestSnapshotReadyAfterUpdate(t *testing.T) {
	r, factory, _ := newTestRegistry()

	state := r.EnsureStream("btc")
	factory.last().setPhase(domain.PhaseOpen)
	ts := time.UnixMilli(1700000000123)
	state.SetPrice(64250.5, ts)

	snap := r.Snapshot("BTC-USDT")
	if snap.Status != domain.StatusReady {
		t.Fatalf("status = %q, want ready", snap.Status)
	}
	if snap.Price == nil || *snap.Price != 64250.5 {
		t.Errorf("price = %v, want 64250.5", snap.Price)
	}
	if snap.LastUpdated == nil {
		t.Fatal("lastUpdated missing")
	}
	parsed, err := time.Parse(time.RFC3339Nano, *snap.LastUpdated)
	if err != nil || !parsed.Equal(ts) {
		t.Errorf("lastUpdated = %q, want %v (err %v)", *snap.LastUpdated, ts, err)
	}
}

func TestSnapshotDoesNotReopenWhileRetryPending(t *testing.T) {
	r, factory, timers := newTestRegistry()

	r.EnsureStream("btc")
	factory.last().setPhase(domain.PhaseClosed)
	r.onTerminated("BTCUSDT")

	// a poll between disconnect and retry observes state, it does not dial
	snap := r.Snapshot("btc")
	if got := factory.openCount(); got != 1 {
		t.Fatalf("snapshot of a known symbol must not open streams, got %d", got)
	}
	if snap.Status != domain.StatusWarming {
		t.Errorf("status = %q, want warming", snap.Status)
	}
	if timers.pending() != 1 {
		t.Errorf("retry timer lost")
	}
}

func TestCloseStopsReconnects(t *testing.T) {
	r, factory, timers := newTestRegistry()

	r.EnsureStream("btc")
	factory.last().setPhase(domain.PhaseClosed)
	r.onTerminated("BTCUSDT")
	r.Close()

	timers.fireAll()
	if got := factory.openCount(); got != 1 {
		t.Fatalf("reconnect fired after Close, got %d opens", got)
	}
	r.onTerminated("BTCUSDT")
	if timers.pending() != 0 {
		t.Fatal("timer armed after Close")
	}
}
