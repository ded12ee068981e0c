package ride

// EventKind discriminates webhook events pushed by the bike.
type EventKind string

const (
	EventPoweredOn    EventKind = "powered_on"
	EventStartSession EventKind = "start_session"
	EventEndSession   EventKind = "end_session"
	EventNewData      EventKind = "new_data"
)

// Event is a decoded webhook payload.
type Event struct {
	Kind EventKind
	T    int64

	// new_data payload.
	SpeedMPH   float64
	Resistance *int
	HeartBPM   float64

	// start_session payload.
	BikeIP string
}

// Known reports whether the kind is one the coordinator understands.
func (k EventKind) Known() bool {
	switch k {
	case EventPoweredOn, EventStartSession, EventEndSession, EventNewData:
		return true
	}
	return false
}
