package canbus

import (
	"context"
	"testing"
	"time"
)

type fakeStore struct {
	state   *VehicleState
	history []HistoryEntry
}

func (s *fakeStore) State(ctx context.Context, imei string) (*VehicleState, error) {
	return s.state, nil
}

func (s *fakeStore) SaveState(ctx context.Context, state *VehicleState) error {
	s.state = state
	return nil
}

func (s *fakeStore) AppendHistory(ctx context.Context, entries []HistoryEntry) error {
	s.history = append(s.history, entries...)
	return nil
}

func newTestEngine(t *testing.T, store Store) *Engine {
	t.Helper()

	registry := loadTestRegistry(t)

	return NewEngine(registry, store, func(ctx context.Context, imei string) string {
		return "fms_truck"
	})
}

func TestHandleFramesSavesState(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	engine := newTestEngine(t, store)

	now := time.Date(2025, 1, 17, 10, 30, 0, 0, time.UTC)

	signals, err := engine.HandleFrames(context.Background(), "123456789012345", []Frame{
		{ID: "0CF00400", Data: "FFFFFF0019FFFFFF"},
	}, now)
	if err != nil {
		t.Fatalf("HandleFrames: %v", err)
	}

	if got := signals["engine_rpm"]; got != 800.0 {
		t.Errorf("engine_rpm = %v, want 800", got)
	}

	if store.state == nil {
		t.Fatal("state not saved")
	}
	if store.state.IMEI != "123456789012345" || !store.state.Timestamp.Equal(now) {
		t.Errorf("saved state %+v", store.state)
	}
	if len(store.history) != 1 || store.history[0].Signal != "engine_rpm" {
		t.Errorf("history = %+v, want one engine_rpm entry", store.history)
	}
}

func TestHandleFramesIgnoresStalePackets(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 17, 10, 30, 0, 0, time.UTC)

	store := &fakeStore{
		state: &VehicleState{
			IMEI:      "123456789012345",
			Timestamp: now,
			Signals:   map[string]interface{}{"engine_rpm": 1200.0},
		},
	}
	engine := newTestEngine(t, store)

	_, err := engine.HandleFrames(context.Background(), "123456789012345", []Frame{
		{ID: "0CF00400", Data: "FFFFFF0019FFFFFF"},
	}, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("HandleFrames: %v", err)
	}

	if store.state.Signals["engine_rpm"] != 1200.0 {
		t.Errorf("stale packet overwrote state: %+v", store.state.Signals)
	}
	if len(store.history) != 0 {
		t.Errorf("stale packet appended history: %+v", store.history)
	}
}

func TestHandleFramesHistoryThreshold(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 17, 10, 30, 0, 0, time.UTC)

	store := &fakeStore{
		state: &VehicleState{
			IMEI:      "123456789012345",
			Timestamp: now.Add(-time.Minute),
			// 795 rpm, within the 50 rpm threshold of the new 800.
			Signals: map[string]interface{}{"engine_rpm": 795.0},
		},
	}
	engine := newTestEngine(t, store)

	_, err := engine.HandleFrames(context.Background(), "123456789012345", []Frame{
		{ID: "0CF00400", Data: "FFFFFF0019FFFFFF"},
	}, now)
	if err != nil {
		t.Fatalf("HandleFrames: %v", err)
	}

	if len(store.history) != 0 {
		t.Errorf("sub-threshold change appended history: %+v", store.history)
	}
	if store.state.Signals["engine_rpm"] != 800.0 {
		t.Errorf("state not refreshed: %+v", store.state.Signals)
	}
}

func TestHandleFramesMergesPreviousSignals(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 17, 10, 30, 0, 0, time.UTC)

	store := &fakeStore{
		state: &VehicleState{
			IMEI:      "123456789012345",
			Timestamp: now.Add(-time.Minute),
			Signals:   map[string]interface{}{"battery_soc_pct": 80.0},
		},
	}
	engine := newTestEngine(t, store)

	_, err := engine.HandleFrames(context.Background(), "123456789012345", []Frame{
		{ID: "0CF00400", Data: "FFFFFF0019FFFFFF"},
	}, now)
	if err != nil {
		t.Fatalf("HandleFrames: %v", err)
	}

	if store.state.Signals["battery_soc_pct"] != 80.0 {
		t.Errorf("previous signal lost from state: %+v", store.state.Signals)
	}
	if store.state.Signals["engine_rpm"] != 800.0 {
		t.Errorf("new signal missing from state: %+v", store.state.Signals)
	}
}
