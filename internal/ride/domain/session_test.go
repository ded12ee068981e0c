package ride

import (
	"testing"
	"time"
)

func TestSessionLifecycleQueries(t *testing.T) {
	var s Session
	if s.HasStarted() || s.HasEnded() || s.Active() {
		t.Fatalf("zero session should be inactive, got %+v", s)
	}

	s.StartedAt = 1000
	if !s.HasStarted() || !s.Active() {
		t.Fatalf("started session should be active")
	}
	if _, ok := s.Duration(); ok {
		t.Fatalf("duration should be unknown before session end")
	}

	s.EndedAt = 1600
	if s.Active() {
		t.Fatalf("ended session should not be active")
	}
	duration, ok := s.Duration()
	if !ok || duration != 10*time.Minute {
		t.Fatalf("expected 10m duration, got %v ok=%v", duration, ok)
	}
}

func TestSessionDurationSince(t *testing.T) {
	s := Session{StartedAt: 1000}
	elapsed, ok := s.DurationSince(time.Unix(1090, 0))
	if !ok || elapsed != 90*time.Second {
		t.Fatalf("expected 90s elapsed, got %v ok=%v", elapsed, ok)
	}

	if _, ok := (Session{}).DurationSince(time.Unix(1090, 0)); ok {
		t.Fatalf("elapsed should be unknown before session start")
	}
}

func TestOriginAuthorized(t *testing.T) {
	s := Session{StartedAt: 1000, BikeIP: "203.0.113.7"}
	if !s.OriginAuthorized("203.0.113.7") {
		t.Fatalf("matching address during active session should authorize")
	}
	if s.OriginAuthorized("198.51.100.1") {
		t.Fatalf("non-matching address should not authorize")
	}

	s.EndedAt = 1600
	if s.OriginAuthorized("203.0.113.7") {
		t.Fatalf("ended session should never authorize")
	}

	if (Session{StartedAt: 1000}).OriginAuthorized("") {
		t.Fatalf("empty bike address should never authorize")
	}
}

func TestSeriesHead(t *testing.T) {
	var series Series
	if _, ok := series.Head(); ok {
		t.Fatalf("empty series should have no head")
	}
	if _, ok := series.HeadTS(); ok {
		t.Fatalf("empty series should have no head timestamp")
	}

	series = Series{{TS: 102}, {TS: 101}, {TS: 100}}
	ts, ok := series.HeadTS()
	if !ok || ts != 102 {
		t.Fatalf("expected head ts 102, got %d ok=%v", ts, ok)
	}
}

func TestSeriesHasResistance(t *testing.T) {
	level := 4
	if (Series{{TS: 1}, {TS: 2}}).HasResistance() {
		t.Fatalf("series without resistance readings should report false")
	}
	if !(Series{{TS: 1}, {TS: 2, Resistance: &level}}).HasResistance() {
		t.Fatalf("series with one resistance reading should report true")
	}
}
