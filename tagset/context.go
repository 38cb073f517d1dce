package tagset

import "context"

type setContextKey struct{}

// WithSet attaches s to ctx so handlers further down the chain can add tags.
func WithSet(ctx context.Context, s *Set) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, setContextKey{}, s)
}

// FromContext returns the Set attached to ctx, or nil.
func FromContext(ctx context.Context) *Set {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(setContextKey{}).(*Set)
	return s
}

// AddToContext adds tags to the Set attached to ctx.
// It returns false when ctx carries no Set.
func AddToContext(ctx context.Context, tags ...string) bool {
	s := FromContext(ctx)
	if s == nil {
		return false
	}
	s.Add(tags...)
	return true
}
