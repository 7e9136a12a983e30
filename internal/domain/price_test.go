package domain

import (
	"testing"
	"time"
)

func TestPriceStateSnapshotWarming(t *testing.T) {
	ps := NewPriceState("BTCUSDT")
	snap := ps.Snapshot()

	if snap.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %q, want BTCUSDT", snap.Symbol)
	}
	if snap.Status != StatusWarming {
		t.Errorf("status = %q, want %q", snap.Status, StatusWarming)
	}
	if snap.Price != nil || snap.LastUpdated != nil {
		t.Errorf("expected null price and lastUpdated before first update, got %v %v", snap.Price, snap.LastUpdated)
	}
	if snap.Source != SourceBinanceWS {
		t.Errorf("source = %q, want %q", snap.Source, SourceBinanceWS)
	}
}

func TestPriceStateSnapshotReady(t *testing.T) {
	ps := NewPriceState("ETHUSDT")
	ts := time.UnixMilli(1700000000000)
	ps.SetPrice(2012.34, ts)

	snap := ps.Snapshot()
	if snap.Status != StatusReady {
		t.Fatalf("status = %q, want %q", snap.Status, StatusReady)
	}
	if snap.Price == nil || *snap.Price != 2012.34 {
		t.Errorf("price = %v, want 2012.34", snap.Price)
	}
	if snap.LastUpdated == nil {
		t.Fatal("lastUpdated is null after update")
	}
	parsed, err := time.Parse(time.RFC3339Nano, *snap.LastUpdated)
	if err != nil {
		t.Fatalf("lastUpdated %q is not RFC3339: %v", *snap.LastUpdated, err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("lastUpdated = %v, want %v", parsed, ts)
	}
}

func TestConnPhaseAlive(t *testing.T) {
	alive := map[ConnPhase]bool{
		PhaseConnecting: true,
		PhaseOpen:       true,
		PhaseClosed:     false,
		PhaseErrored:    false,
	}
	for phase, want := range alive {
		if got := phase.Alive(); got != want {
			t.Errorf("%v.Alive() = %v, want %v", phase, got, want)
		}
	}
}
