package ride

import "errors"

// ErrMalformedEvent is returned for a payload missing required fields.
var ErrMalformedEvent = errors.New("ride: malformed event")

// ErrUnknownEvent is returned for an event kind the coordinator does
// not understand. Maps to HTTP 501 at the webhook boundary.
var ErrUnknownEvent = errors.New("ride: event not understood")
