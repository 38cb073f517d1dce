// Package eventbus carries invalidation events over Redis pub/sub.
//
// Events are JSON objects on a single channel:
//
//	{"id":"...","tags":["product/1"],"source":"cms"}
//
// Only "tags" is meaningful to the dispatcher; it may be missing or empty.
// Publishers are typically the content backend, the CLI and the admin API.
// Each running service subscribes and fires its invalidation hooks for
// every event it receives. Delivery is at most once, as with any Redis
// pub/sub channel.
package eventbus
