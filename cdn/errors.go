package cdn

import "errors"

var (
	// ErrTransport covers failures where no usable payload came back:
	// network errors, timeouts and non-JSON bodies.
	ErrTransport = errors.New("cdn: transport failure")

	// ErrPurgeRejected is returned when the API answers success:false.
	ErrPurgeRejected = errors.New("cdn: purge rejected")

	// ErrInvalidRequest is returned before any I/O for requests lacking a
	// zone, token or tags.
	ErrInvalidRequest = errors.New("cdn: invalid purge request")
)
