package ride

import "time"

// Session records the lifecycle boundaries of the current ride.
// Zero values mean "not set"; a new start_session discards everything.
type Session struct {
	PoweredOnAt int64
	StartedAt   int64
	EndedAt     int64
	// BikeIP is the producer's public address captured at session
	// start. It authorizes resistance control for dashboard clients
	// on the same address and is cleared when the session ends.
	BikeIP string
}

// HasStarted reports whether a session start has been recorded.
func (s Session) HasStarted() bool { return s.StartedAt != 0 }

// HasEnded reports whether the session has ended.
func (s Session) HasEnded() bool { return s.EndedAt != 0 }

// Active reports whether a session is in progress.
func (s Session) Active() bool { return s.HasStarted() && !s.HasEnded() }

// Duration returns EndedAt-StartedAt for an ended session.
func (s Session) Duration() (time.Duration, bool) {
	if !s.HasStarted() || !s.HasEnded() {
		return 0, false
	}
	return time.Duration(s.EndedAt-s.StartedAt) * time.Second, true
}

// DurationSince returns elapsed time from session start to now.
func (s Session) DurationSince(now time.Time) (time.Duration, bool) {
	if !s.HasStarted() {
		return 0, false
	}
	return now.Sub(time.Unix(s.StartedAt, 0)), true
}

// OriginAuthorized reports whether addr matches the bike's address
// while the session is active. Always false once the session ends.
func (s Session) OriginAuthorized(addr string) bool {
	return s.Active() && s.BikeIP != "" && addr == s.BikeIP
}

// Snapshot is a consistent view of session state and retained samples.
type Snapshot struct {
	Session Session
	Series  Series
}
