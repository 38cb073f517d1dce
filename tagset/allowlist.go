package tagset

import "strings"

// AllowList holds the tags and tag prefixes that may be purged.
type AllowList []string

// Allowed reports whether tag equals an allow-list entry or starts with one.
func Allowed(tag string, allow []string) bool {
	for _, entry := range allow {
		if tag == entry || strings.HasPrefix(tag, entry) {
			return true
		}
	}
	return false
}

// Allows reports whether tag passes the allow-list.
func (a AllowList) Allows(tag string) bool {
	return Allowed(tag, a)
}

// Filter returns the tags that pass the allow-list, preserving input order.
// Rejected tags are dropped silently. The result is never nil.
func (a AllowList) Filter(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if Allowed(tag, a) {
			out = append(out, tag)
		}
	}
	return out
}
