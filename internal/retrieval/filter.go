package retrieval

import "strings"

// Filter is a predicate over candidate metadata. Concrete filters form a
// small AND-tree that backends either evaluate in-process via Matches or
// translate into their native filter syntax.
type Filter interface {
	Matches(metadata map[string]string) bool
}

// Equals matches when the metadata field equals Value exactly.
type Equals struct {
	Field string
	Value string
}

// Matches implements Filter.
func (f Equals) Matches(metadata map[string]string) bool {
	return metadata[f.Field] == f.Value
}

// ContainsSubstring matches when the metadata field contains Value.
type ContainsSubstring struct {
	Field string
	Value string
}

// Matches implements Filter.
func (f ContainsSubstring) Matches(metadata map[string]string) bool {
	return strings.Contains(metadata[f.Field], f.Value)
}

// And matches when both branches match.
type And struct {
	Left  Filter
	Right Filter
}

// Matches implements Filter.
func (f And) Matches(metadata map[string]string) bool {
	return f.Left.Matches(metadata) && f.Right.Matches(metadata)
}

// AndAll folds filters into an AND-tree, skipping nil entries.
// Returns nil when nothing remains: the absence of a filter is represented
// as nil, never as an always-true predicate.
func AndAll(filters ...Filter) Filter {
	var out Filter
	for _, f := range filters {
		if f == nil {
			continue
		}
		if out == nil {
			out = f
		} else {
			out = And{Left: out, Right: f}
		}
	}
	return out
}
