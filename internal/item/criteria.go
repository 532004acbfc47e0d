package item

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nas/track-learning/internal/errors"
)

// SelectionKind tags the shape of a Selection.
type SelectionKind int

const (
	KindNone SelectionKind = iota
	KindOne
	KindMany
)

// Selection is an enum filter that is absent, a single value, or a set of
// two or more distinct values.
type Selection[T ~string] struct {
	values []T
}

// None returns the empty selection.
func None[T ~string]() Selection[T] {
	return Selection[T]{}
}

// One returns a single-value selection.
func One[T ~string](v T) Selection[T] {
	return Selection[T]{values: []T{v}}
}

// Many returns a selection of the distinct values in vs, in order of first
// appearance. It collapses to One or None when fewer than two remain.
func Many[T ~string](vs ...T) Selection[T] {
	seen := make(map[T]bool, len(vs))
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return Selection[T]{}
	}
	return Selection[T]{values: out}
}

// Kind reports the selection's shape.
func (s Selection[T]) Kind() SelectionKind {
	switch len(s.values) {
	case 0:
		return KindNone
	case 1:
		return KindOne
	default:
		return KindMany
	}
}

// IsZero reports whether the selection is None.
func (s Selection[T]) IsZero() bool {
	return len(s.values) == 0
}

// Values returns a copy of the selected values.
func (s Selection[T]) Values() []T {
	if len(s.values) == 0 {
		return nil
	}
	out := make([]T, len(s.values))
	copy(out, s.values)
	return out
}

// Contains reports whether v is selected.
func (s Selection[T]) Contains(v T) bool {
	for _, x := range s.values {
		if x == v {
			return true
		}
	}
	return false
}

// MarshalJSON writes One as a scalar, Many as an array and None as null.
func (s Selection[T]) MarshalJSON() ([]byte, error) {
	switch s.Kind() {
	case KindNone:
		return []byte("null"), nil
	case KindOne:
		return json.Marshal(s.values[0])
	default:
		return json.Marshal(s.values)
	}
}

// Criteria describes a search over items. Zero fields are not applied.
type Criteria struct {
	SearchText    string            `json:"searchText,omitempty"`
	Type          Selection[Type]   `json:"type,omitzero"`
	ExcludeType   Selection[Type]   `json:"excludeType,omitzero"`
	Status        Selection[Status] `json:"status,omitzero"`
	ExcludeStatus Selection[Status] `json:"excludeStatus,omitzero"`
	ProgressMin   string            `json:"progressMin,omitempty"`
	ProgressMax   string            `json:"progressMax,omitempty"`
}

// IsEmpty reports whether no criterion is set.
func (c Criteria) IsEmpty() bool {
	return c.SearchText == "" &&
		c.Type.IsZero() && c.ExcludeType.IsZero() &&
		c.Status.IsZero() && c.ExcludeStatus.IsZero() &&
		c.ProgressMin == "" && c.ProgressMax == ""
}

// UnmarshalJSON decodes raw criteria and runs them through ParseCriteria,
// so criteria from any client get the same cleaning as parser output.
func (c *Criteria) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseCriteria(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCriteria preprocesses a raw decoded object into Criteria.
//
// Enum fields are intersected with their universe. An empty intersection is
// dropped, one survivor becomes a scalar, and a set equal to the whole
// universe is dropped as well since it cannot narrow the result. Blank
// strings are dropped. Text fields of the wrong JSON type fail validation.
func ParseCriteria(raw map[string]any) (Criteria, error) {
	var c Criteria

	c.Type = cleanSelection(raw["type"], Types())
	c.ExcludeType = cleanSelection(raw["excludeType"], Types())
	c.Status = cleanSelection(raw["status"], Statuses())
	c.ExcludeStatus = cleanSelection(raw["excludeStatus"], Statuses())

	var err error
	if c.SearchText, err = textField(raw, "searchText"); err != nil {
		return Criteria{}, err
	}
	if c.ProgressMin, err = textField(raw, "progressMin"); err != nil {
		return Criteria{}, err
	}
	if c.ProgressMax, err = textField(raw, "progressMax"); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// cleanSelection turns a raw scalar-or-array value into a Selection over universe.
func cleanSelection[T ~string](v any, universe []T) Selection[T] {
	member := func(x any) (T, bool) {
		s, ok := x.(string)
		if !ok {
			return "", false
		}
		for _, u := range universe {
			if string(u) == s {
				return u, true
			}
		}
		return "", false
	}

	switch val := v.(type) {
	case string:
		if m, ok := member(val); ok {
			return One(m)
		}
		return None[T]()
	case []any:
		kept := make([]T, 0, len(val))
		for _, x := range val {
			if m, ok := member(x); ok {
				kept = append(kept, m)
			}
		}
		sel := Many(kept...)
		if len(sel.values) == len(universe) {
			return None[T]()
		}
		return sel
	default:
		return None[T]()
	}
}

// textField reads an optional string field, trimming it and treating blank as absent.
// Numbers are accepted and rendered as integers.
func textField(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return "", errors.NewValidation(key, fmt.Sprintf("%s must be a string", key))
		}
		return strconv.FormatInt(int64(val), 10), nil
	default:
		return "", errors.NewValidation(key, fmt.Sprintf("%s must be a string", key))
	}
}
