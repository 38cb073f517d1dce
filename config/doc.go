// Package config loads the edgetag configuration.
//
// Configuration is read once at startup into a typed Config and validated
// eagerly. Sources are applied in order, later ones winning:
//
//  1. Built-in defaults (see Default)
//  2. A YAML file whose keys mirror the dotted names, e.g.
//     cloudflare.cache.zoneIdentifier
//  3. A .env file, loaded into the process environment
//  4. EDGETAG_* environment variables (see EnvPrefix)
//  5. Secret references in credential fields, resolved through the
//     secret package (secretref:env:NAME, secretref:file:/path)
//
// Missing Cloudflare credentials are not a load error. The dispatcher
// reports them on every invalidation so the rest of the service can run
// without them.
package config
