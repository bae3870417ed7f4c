package certificates

import "errors"

var (
	// ErrValidation is returned for a missing or blank ticket ID.
	ErrValidation = errors.New("ticket ID is required")
	// ErrNotFound is returned when no attendee holds the ticket ID. The message is shown to attendees.
	ErrNotFound = errors.New("ticket ID not recognized, confirm you checked in")
)
