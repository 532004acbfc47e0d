package item

import "strings"

// Apply returns the items matching every criterion in c, in their original
// order. Within a multi-value selection any member matches. Apply never
// mutates items.
func Apply(items []Item, c Criteria) []Item {
	out := make([]Item, 0, len(items))
	if c.IsEmpty() {
		return append(out, items...)
	}

	m := newMatcher(c)
	for _, it := range items {
		if m.match(it) {
			out = append(out, it)
		}
	}
	return out
}

// Matches reports whether a single item satisfies c.
func Matches(it Item, c Criteria) bool {
	return newMatcher(c).match(it)
}

// matcher holds values derived once per Apply call.
type matcher struct {
	c      Criteria
	needle string
	min    int
	max    int
	hasMin bool
	hasMax bool
}

func newMatcher(c Criteria) matcher {
	m := matcher{
		c:      c,
		needle: strings.ToLower(c.SearchText),
		hasMin: c.ProgressMin != "",
		hasMax: c.ProgressMax != "",
	}
	if m.hasMin {
		m.min = ProgressValue(c.ProgressMin)
	}
	if m.hasMax {
		m.max = ProgressValue(c.ProgressMax)
	}
	return m
}

func (m matcher) match(it Item) bool {
	if m.needle != "" &&
		!strings.Contains(strings.ToLower(it.Title), m.needle) &&
		!strings.Contains(strings.ToLower(it.Author), m.needle) {
		return false
	}
	if !m.c.Type.IsZero() && !m.c.Type.Contains(it.Type) {
		return false
	}
	if m.c.ExcludeType.Contains(it.Type) {
		return false
	}
	if !m.c.Status.IsZero() && !m.c.Status.Contains(it.Status) {
		return false
	}
	if m.c.ExcludeStatus.Contains(it.Status) {
		return false
	}
	if m.hasMin || m.hasMax {
		p := ProgressValue(it.Progress)
		if m.hasMin && p < m.min {
			return false
		}
		if m.hasMax && p > m.max {
			return false
		}
	}
	return true
}
