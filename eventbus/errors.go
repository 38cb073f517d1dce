package eventbus

import "errors"

var (
	// ErrNoAddr is returned by New when no Redis address is configured.
	ErrNoAddr = errors.New("eventbus: redis address is required")

	// ErrClosed is returned by Run when the subscription channel closes.
	ErrClosed = errors.New("eventbus: subscription closed")
)
