package dispatch

import "errors"

// Sentinel errors describing why an event did not purge. They appear in
// Outcome.Err and logs only; Dispatch never returns them.
var (
	// ErrNoEligibleTags means no tag survived the allow-list.
	ErrNoEligibleTags = errors.New("dispatch: no available cache tags specified")

	// ErrMissingCredentials means the API token or zone identifier is unset.
	ErrMissingCredentials = errors.New("dispatch: missing cloudflare credentials")
)
