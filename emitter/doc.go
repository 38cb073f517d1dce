// Package emitter writes the Cache-Tag header on rendered responses.
//
// The Emitter is a render hook: it reads the tag set the rendering pipeline
// attached to the render context and, when cache tagging is enabled,
// serializes it into the Cache-Tag response header. The output body always
// passes through untouched.
package emitter
