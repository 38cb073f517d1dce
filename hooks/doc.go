// Package hooks is the dispatch table connecting rendering and invalidation
// events to their handlers.
//
// The table is owned by the caller and built at startup; there is no
// package-level registry. Two injection points exist:
//
//   - OnBeforeOutputRendered: called with the response handle, the render
//     context and the output body just before a response is finalized.
//     Hooks run in registration order and each receives the previous
//     hook's output.
//   - OnAfterCacheInvalidated: called once per invalidation event.
//
// Hooks must not panic. The table does not recover.
package hooks
