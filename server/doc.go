// Package server is the HTTP surface of edgetag.
//
// It fronts an origin with a reverse proxy that turns the origin's tag
// header into a Cache-Tag header, serves in-process handlers behind the
// same render hooks, and exposes the admin invalidation endpoint, health
// endpoints and Prometheus metrics.
package server
