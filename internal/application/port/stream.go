package port

import "folio/internal/domain"

// Stream is one live subscription delivering price updates for a single
// canonical instrument into its PriceState.
type Stream interface {
	// Phase reports where the stream is in its lifecycle.
	Phase() domain.ConnPhase
	// Close tears the connection down. The terminate notification still
	// fires (once), like any other disconnect.
	Close() error
}

// StreamFactory opens venue streams. Open must return before the stream
// can invoke onTerminated, even when the connection fails immediately;
// the registry relies on this to re-arm retries without deadlocking.
// onTerminated fires exactly once per stream, whether the transport
// closed or errored.
type StreamFactory interface {
	Open(symbol string, state *domain.PriceState, onTerminated func(symbol string)) Stream
}
