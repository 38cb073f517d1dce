// Package cdn implements the Cloudflare cache purge client.
//
// A Client issues one POST per Purge call to
//
//	{BaseURL}/zones/{zone}/purge_cache
//
// with a bearer token and a {"tags":[...]} body. It never retries. Each
// call runs under the resilience guards configured on the client and is
// traced and measured through observe.Middleware.
//
// Purge returns a PurgeResult whenever a response body came back, including
// rejected purges, so callers can log the raw response.
package cdn
