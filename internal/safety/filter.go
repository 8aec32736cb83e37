// Package safety provides channel filtering and audit logging for commands
// that reach the voice server.
package safety

import (
	"path"
	"strings"
)

// Filter decides which chat channels may issue commands. Patterns use
// path.Match glob syntax and are compared case-insensitively. A denylist
// match always wins; an empty allowlist allows everything not denied.
type Filter struct {
	allow []string
	deny  []string
}

// NewFilter constructs a Filter from allow and deny patterns. Nil slices
// are treated as empty.
func NewFilter(allowlist, denylist []string) *Filter {
	return &Filter{
		allow: lowerAll(allowlist),
		deny:  lowerAll(denylist),
	}
}

// IsAllowed reports whether resource passes the filter. A nil *Filter
// allows everything.
func (f *Filter) IsAllowed(resource string) bool {
	if f == nil {
		return true
	}
	resource = strings.ToLower(strings.TrimPrefix(resource, "#"))
	if matchAny(f.deny, resource) {
		return false
	}
	if len(f.allow) == 0 {
		return true
	}
	return matchAny(f.allow, resource)
}

func matchAny(patterns []string, s string) bool {
	for _, p := range patterns {
		if p == s {
			return true
		}
		// Malformed patterns never match.
		if ok, err := path.Match(p, s); err == nil && ok {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimPrefix(s, "#")))
	}
	return out
}
