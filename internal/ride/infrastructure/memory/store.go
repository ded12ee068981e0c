package memory

import (
	"context"
	"sync"

	ride "bikecloud/internal/ride/domain"
)

// Store is an in-memory ride store. It backs tests and no-database
// development mode. Samples are held oldest-first so appends stay
// O(1); reads reverse into the newest-first contract order.
type Store struct {
	mu      sync.RWMutex
	session ride.Session
	samples []ride.Sample
	maxLen  int
}

// NewStore constructs a store.
func NewStore(opts ...StoreOption) *Store {
	store := &Store{}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithMaxSeriesLength caps the retained sample log. Zero keeps the
// log unbounded.
func WithMaxSeriesLength(maxLen int) StoreOption {
	return func(store *Store) {
		if maxLen > 0 {
			store.maxLen = maxLen
		}
	}
}

// Snapshot returns a consistent copy of session and series.
func (s *Store) Snapshot(ctx context.Context) (ride.Snapshot, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	var series ride.Series
	if len(s.samples) > 0 {
		series = make(ride.Series, 0, len(s.samples))
		for i := len(s.samples) - 1; i >= 0; i-- {
			series = append(series, s.samples[i])
		}
	}
	return ride.Snapshot{Session: s.session, Series: series}, nil
}

// Session returns session boundaries.
func (s *Store) Session(ctx context.Context) (ride.Session, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, nil
}

// Head returns the newest sample.
func (s *Store) Head(ctx context.Context) (ride.Sample, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.samples) == 0 {
		return ride.Sample{}, false, nil
	}
	return s.samples[len(s.samples)-1], true, nil
}

// SetPoweredOn records the power-on marker.
func (s *Store) SetPoweredOn(ctx context.Context, t int64) error {
	_ = ctx
	s.mu.Lock()
	s.session.PoweredOnAt = t
	s.mu.Unlock()
	return nil
}

// StartSession discards all prior state and records the new start.
func (s *Store) StartSession(ctx context.Context, t int64, bikeIP string) error {
	_ = ctx
	s.mu.Lock()
	s.session = ride.Session{StartedAt: t, BikeIP: bikeIP}
	s.samples = nil
	s.mu.Unlock()
	return nil
}

// EndSession records the end and clears the bike address.
func (s *Store) EndSession(ctx context.Context, t int64) error {
	_ = ctx
	s.mu.Lock()
	s.session.EndedAt = t
	s.session.BikeIP = ""
	s.mu.Unlock()
	return nil
}

// Append writes a sample as the new head and trims to the cap.
func (s *Store) Append(ctx context.Context, sample ride.Sample) error {
	_ = ctx
	s.mu.Lock()
	s.samples = append(s.samples, sample)
	if s.maxLen > 0 && len(s.samples) > s.maxLen {
		s.samples = append(s.samples[:0:0], s.samples[len(s.samples)-s.maxLen:]...)
	}
	s.mu.Unlock()
	return nil
}
