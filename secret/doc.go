// Package secret resolves credentials referenced from configuration.
//
// Configuration values may carry a reference instead of the credential
// itself. References use the prefix "secretref:":
//   - Full value:  secretref:env:CLOUDFLARE_API_TOKEN
//   - Full value:  secretref:file:/run/secrets/cloudflare_token
//   - Inline use:  Bearer secretref:env:ADMIN_TOKEN
//
// Values without a reference go through strict environment expansion
// (see ExpandEnvStrict). Two providers are built in and registered on
// DefaultRegistry: "env" and "file".
package secret
