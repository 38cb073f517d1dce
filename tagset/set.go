package tagset

import (
	"strings"
	"sync"
)

// HeaderName is the response header the edge cache indexes tags from.
const HeaderName = "Cache-Tag"

// Separator joins tags in the HeaderName value.
const Separator = ","

// Set is an insertion-ordered set of cache tags.
//
// Contract:
//   - Concurrency: safe for concurrent use; renderers may add tags from
//     several goroutines while building one response.
//   - Ordering: Tags returns tags in first-insertion order, so repeated
//     serializations of the same Set are identical.
//   - Nil: a nil *Set behaves as an empty set for all read methods.
type Set struct {
	mu    sync.RWMutex
	order []string
	index map[string]struct{}
}

// NewSet creates a set holding tags, ignoring duplicates.
func NewSet(tags ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(tags))}
	s.Add(tags...)
	return s
}

// Add inserts tags that are not already present.
// Empty strings are ignored; any other value is kept verbatim.
func (s *Set) Add(tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		s.index = make(map[string]struct{}, len(tags))
	}
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := s.index[tag]; ok {
			continue
		}
		s.index[tag] = struct{}{}
		s.order = append(s.order, tag)
	}
}

// Has reports whether tag is in the set.
func (s *Set) Has(tag string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[tag]
	return ok
}

// Len returns the number of tags.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Tags returns a copy of the tags in insertion order.
func (s *Set) Tags() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// String returns the header form of the set.
func (s *Set) String() string {
	return Join(s.Tags())
}

// Join renders tags as a Cache-Tag header value: comma-separated, no spaces.
func Join(tags []string) string {
	return strings.Join(tags, Separator)
}

// ParseHeader splits a comma-separated tag header into tags.
// Surrounding whitespace is trimmed and empty items are dropped.
func ParseHeader(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, Separator)
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
