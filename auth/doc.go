// Package auth authenticates callers of the edgetag admin API.
//
// Two credential kinds are accepted: static API keys sent in X-API-Key and
// HS256 bearer tokens signed with a shared secret. NewAdminAuthenticator
// builds the combination from configuration and Middleware enforces it on
// an HTTP route, attaching the resulting Identity to the request context.
package auth
