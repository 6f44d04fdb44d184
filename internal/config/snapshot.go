package config

import "sync/atomic"

// ThresholdStore hands out consistent threshold snapshots to the decision
// path. Updates replace the whole value; readers never observe a partially
// written config.
type ThresholdStore struct {
	current atomic.Pointer[Thresholds]
}

// NewThresholdStore creates a store seeded with a validated snapshot.
func NewThresholdStore(t Thresholds) (*ThresholdStore, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	s := &ThresholdStore{}
	s.current.Store(&t)
	return s, nil
}

// Snapshot returns the active thresholds. The returned value is a copy and
// safe to hold across the whole decision for one event.
func (s *ThresholdStore) Snapshot() Thresholds {
	return *s.current.Load()
}

// Update validates and swaps in a new snapshot. On validation failure the
// previous config stays active and the error is returned.
func (s *ThresholdStore) Update(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.current.Store(&t)
	return nil
}
