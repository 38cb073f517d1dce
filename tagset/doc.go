// Package tagset models the cache tags that flow from the rendering pipeline
// to the edge cache.
//
// A Set is the render-side collection of tags attached to a response. An
// AllowList decides which tags may ever be purged. Tags are opaque strings:
// the only operations applied to them are equality and literal prefix tests.
//
// Tags travel through a request on its context:
//
//	ctx = tagset.WithSet(ctx, tagset.NewSet())
//	tagset.AddToContext(ctx, "product/1", "category/5")
//
// and are serialized for the CDN with Join:
//
//	w.Header().Set(tagset.HeaderName, tagset.Join(set.Tags()))
package tagset
