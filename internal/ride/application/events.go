package application

import ride "bikecloud/internal/ride/domain"

// IngestAccepted is published after an event mutates state.
type IngestAccepted struct {
	Kind  ride.EventKind
	T     int64
	Reply string
}

// IngestRejected is published after an event is ignored or refused.
type IngestRejected struct {
	Kind   ride.EventKind
	T      int64
	Reason string
}
