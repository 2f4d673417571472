package event

import (
	"fmt"
	"strings"
)

// TopicTail is the IDSource value meaning "use the last topic segment".
const TopicTail = "#topic-tail"

const wildcardSuffix = "/*"

// Family describes one event family: how to recognize it and how to read
// identity and state from its messages.
type Family struct {
	Pattern       string    `json:"pattern"`
	Type          string    `json:"type"`
	IDSource      string    `json:"id_source"`
	Rule          StateRule `json:"rule"`
	ValueKey      string    `json:"value_key,omitempty"`
	RequireSource string    `json:"require_source,omitempty"`
}

// Wildcard reports whether the pattern ends in a variable tail segment.
func (f Family) Wildcard() bool {
	return strings.HasSuffix(f.Pattern, wildcardSuffix)
}

func (f Family) base() string {
	return strings.TrimSuffix(f.Pattern, wildcardSuffix)
}

func (f Family) accepts(sources Items) bool {
	return f.RequireSource == "" || sources.Has(f.RequireSource)
}

// Registry is an immutable lookup table of families. It is safe for
// concurrent use once built.
type Registry struct {
	families []Family
	exact    map[string][]*Family
	wildcard []*Family
}

// NewRegistry validates families and builds a registry. Exact patterns win
// over wildcard ones; wildcard patterns are tried in the given order.
func NewRegistry(families []Family) (*Registry, error) {
	r := &Registry{
		families: make([]Family, len(families)),
		exact:    make(map[string][]*Family),
	}
	copy(r.families, families)

	type key struct{ pattern, source string }
	seen := make(map[key]int, len(families))

	for i := range r.families {
		f := &r.families[i]
		if err := validateFamily(*f); err != nil {
			return nil, fmt.Errorf("family %d (%q): %w", i, f.Pattern, err)
		}

		k := key{f.Pattern, f.RequireSource}
		if prev, dup := seen[k]; dup {
			return nil, fmt.Errorf("family %d (%q): duplicates family %d", i, f.Pattern, prev)
		}
		seen[k] = i

		if !f.Wildcard() {
			r.exact[f.Pattern] = append(r.exact[f.Pattern], f)
			continue
		}
		for _, earlier := range r.wildcard {
			// A sourceless earlier family with the same base would swallow every match.
			if earlier.base() == f.base() && earlier.RequireSource == "" {
				return nil, fmt.Errorf("family %d (%q): unreachable behind %q", i, f.Pattern, earlier.Pattern)
			}
		}
		r.wildcard = append(r.wildcard, f)
	}

	for pattern, fs := range r.exact {
		for i, f := range fs {
			if f.RequireSource == "" && i < len(fs)-1 {
				return nil, fmt.Errorf("family %q: unreachable entries after unconstrained match", pattern)
			}
		}
	}

	return r, nil
}

// MustRegistry is like NewRegistry but panics on an invalid table.
func MustRegistry(families []Family) *Registry {
	r, err := NewRegistry(families)
	if err != nil {
		panic("event: invalid family table: " + err.Error())
	}
	return r
}

func validateFamily(f Family) error {
	switch {
	case f.Pattern == "":
		return fmt.Errorf("empty pattern")
	case f.Type == "":
		return fmt.Errorf("empty type")
	case f.IDSource == "":
		return fmt.Errorf("empty id source")
	case strings.Contains(f.base(), "*"):
		return fmt.Errorf("wildcard allowed only as the last segment")
	case strings.HasPrefix(f.Pattern, "/") || strings.HasSuffix(f.base(), "/"):
		return fmt.Errorf("malformed pattern")
	case f.IDSource == TopicTail && !f.Wildcard():
		return fmt.Errorf("topic tail id needs a wildcard pattern")
	}
	return nil
}

// Match returns the family for topic. ok is false when the topic belongs to
// no known family. sources are consulted only for families that require a
// source key.
func (r *Registry) Match(topic string, sources Items) (Family, bool) {
	if topic == "" {
		return Family{}, false
	}
	for _, f := range r.exact[topic] {
		if f.accepts(sources) {
			return *f, true
		}
	}
	base, tail, split := splitTail(topic)
	if !split || tail == "" {
		return Family{}, false
	}
	for _, f := range r.wildcard {
		if f.base() == base && f.accepts(sources) {
			return *f, true
		}
	}
	return Family{}, false
}

// Families returns a copy of the table in registration order.
func (r *Registry) Families() []Family {
	out := make([]Family, len(r.families))
	copy(out, r.families)
	return out
}

func splitTail(topic string) (string, string, bool) {
	i := strings.LastIndex(topic, "/")
	if i < 0 {
		return "", "", false
	}
	return topic[:i], topic[i+1:], true
}
