package sessions

import "errors"

var (
	// errPanicked is returned to a caller whose turn's actor recovered
	// from a panic; the actor itself survives to process later requests.
	errPanicked = errors.New("sessions: actor recovered from an internal panic processing this turn")

	// ErrNotFound is returned by operations targeting an unknown session id.
	ErrNotFound = errors.New("sessions: session not found")

	// ErrAlreadyStarted is returned by Create when called with an id that
	// already has a live actor (§4.K "idempotent with :already_started").
	ErrAlreadyStarted = errors.New("sessions: already started")
)
