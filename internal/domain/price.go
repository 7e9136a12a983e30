package domain

import (
	"sync"
	"time"
)

// Source tag reported in crypto snapshots.
const SourceBinanceWS = "binance-ws"

// Snapshot statuses. A symbol is warming until its stream has delivered
// at least one price.
const (
	StatusReady   = "ready"
	StatusWarming = "warming"
)

// ConnPhase is the lifecycle phase of one instrument stream:
// connecting -> open -> (closed | errored).
type ConnPhase int32

const (
	PhaseConnecting ConnPhase = iota
	PhaseOpen
	PhaseClosed
	PhaseErrored
)

func (p ConnPhase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseOpen:
		return "open"
	case PhaseClosed:
		return "closed"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Alive reports whether a stream in this phase still counts as the
// instrument's live connection (no replacement may be opened for it).
func (p ConnPhase) Alive() bool {
	return p == PhaseConnecting || p == PhaseOpen
}

// PriceState holds the last known price of a single instrument. It is
// created empty the first time the symbol is requested and survives
// reconnects; only the stream currently owning the instrument writes it.
type PriceState struct {
	mu          sync.RWMutex
	symbol      string
	price       float64
	hasPrice    bool
	lastUpdated time.Time
}

func NewPriceState(symbol string) *PriceState {
	return &PriceState{symbol: symbol}
}

func (ps *PriceState) Symbol() string { return ps.symbol }

// SetPrice records an accepted price update.
func (ps *PriceState) SetPrice(price float64, ts time.Time) {
	ps.mu.Lock()
	ps.price = price
	ps.hasPrice = true
	ps.lastUpdated = ts
	ps.mu.Unlock()
}

// Snapshot returns the point-in-time view served over HTTP. Price and
// lastUpdated are null until the first update arrives.
func (ps *PriceState) Snapshot() Snapshot {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	snap := Snapshot{
		Symbol: ps.symbol,
		Source: SourceBinanceWS,
		Status: StatusWarming,
	}
	if ps.hasPrice {
		price := ps.price
		updated := ps.lastUpdated.UTC().Format(time.RFC3339Nano)
		snap.Price = &price
		snap.LastUpdated = &updated
		snap.Status = StatusReady
	}
	return snap
}

// Snapshot is the wire shape of one instrument's current state.
type Snapshot struct {
	Symbol      string   `json:"symbol"`
	Price       *float64 `json:"price"`
	LastUpdated *string  `json:"lastUpdated"`
	Source      string   `json:"source"`
	Status      string   `json:"status"`
}

// EquityQuote is the wire shape of one delayed stock quote. Fields the
// upstream provider omits stay null.
type EquityQuote struct {
	Symbol        string   `json:"symbol"`
	Currency      *string  `json:"currency"`
	Price         *float64 `json:"price"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"changePercent"`
	MarketTime    *string  `json:"marketTime"`
	Source        string   `json:"source"`
}
