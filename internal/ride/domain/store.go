package ride

import "context"

// Store persists session state and the sample log in a shared keyed
// store. Every mutation that touches more than one key must be applied
// as a single atomic unit so concurrent readers never observe a
// half-applied reset or an append without its trim.
type Store interface {
	// Snapshot returns a consistent view of session and series.
	Snapshot(ctx context.Context) (Snapshot, error)
	// Session returns session boundaries only.
	Session(ctx context.Context) (Session, error)
	// Head returns the most recently accepted sample, if any.
	Head(ctx context.Context) (Sample, bool, error)

	// SetPoweredOn records the power-on marker. No effect on an
	// in-progress session.
	SetPoweredOn(ctx context.Context, t int64) error
	// StartSession discards all prior state (session fields and
	// samples) and records the new start, atomically.
	StartSession(ctx context.Context, t int64, bikeIP string) error
	// EndSession records the end and clears the bike address,
	// atomically. Idempotent.
	EndSession(ctx context.Context, t int64) error
	// Append writes a sample as the new head and trims the log to the
	// configured maximum length, atomically.
	Append(ctx context.Context, sample Sample) error
}
