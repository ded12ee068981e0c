package ride

// Sample is one telemetry reading pushed by the bike.
type Sample struct {
	TS       int64
	SpeedMPH float64
	// Resistance is nil for device variants that do not report it.
	Resistance *int
	HeartBPM   float64
}

// Series is the retained sample log for the current session, newest first.
type Series []Sample

// Head returns the most recently accepted sample.
func (s Series) Head() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	return s[0], true
}

// HeadTS returns the timestamp of the current head.
func (s Series) HeadTS() (int64, bool) {
	head, ok := s.Head()
	if !ok {
		return 0, false
	}
	return head.TS, true
}

// HasResistance reports whether any retained sample carries the
// resistance channel.
func (s Series) HasResistance() bool {
	for _, sample := range s {
		if sample.Resistance != nil {
			return true
		}
	}
	return false
}
