// Package dispatch turns cache invalidation events into Cloudflare purges.
//
// For each event the Dispatcher walks one state machine:
//
//	Idle -> Filtering -> ShortCircuited
//	                  -> CredentialMissing
//	                  -> Dispatching -> Succeeded | Failed
//
// Events are dropped silently while either feature flag is off (Disabled).
// Tags are kept only when they equal or start with an allow-list entry.
// An event leaves at most one purge request, which runs detached from the
// caller and is never retried. Every failure ends in a log line. None is
// returned to the code that raised the event.
package dispatch
