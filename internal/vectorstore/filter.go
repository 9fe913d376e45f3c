package vectorstore

import (
	"fmt"
	"strconv"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

// Range is an inclusive numeric bound. Nil ends are open.
type Range struct {
	Gte *float64 `json:"gte,omitempty"`
	Lte *float64 `json:"lte,omitempty"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	if r.Gte != nil && v < *r.Gte {
		return false
	}
	if r.Lte != nil && v > *r.Lte {
		return false
	}
	return true
}

// Filter restricts search candidates by metadata. All conditions must hold.
type Filter struct {
	Equals map[string]any   `json:"equals,omitempty"`
	Ranges map[string]Range `json:"ranges,omitempty"`
}

// IsEmpty reports whether the filter has no conditions.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Equals) == 0 && len(f.Ranges) == 0)
}

// Validate rejects non-scalar equality values and inverted ranges.
func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}
	for k, v := range f.Equals {
		if _, ok := formatScalar(v); !ok {
			return fmt.Errorf("filter %q: value of type %T is not a scalar: %w", k, v, errdefs.ErrValidation)
		}
	}
	for k, r := range f.Ranges {
		if r.Gte == nil && r.Lte == nil {
			return fmt.Errorf("filter %q: range needs gte or lte: %w", k, errdefs.ErrValidation)
		}
		if r.Gte != nil && r.Lte != nil && *r.Gte > *r.Lte {
			return fmt.Errorf("filter %q: gte %v > lte %v: %w", k, *r.Gte, *r.Lte, errdefs.ErrValidation)
		}
	}
	return nil
}

// Matches evaluates the filter against document metadata. Values are
// compared in their string form for equality and parsed as floats for
// ranges, so metadata stored as strings still matches.
func (f *Filter) Matches(metadata map[string]any) bool {
	if f.IsEmpty() {
		return true
	}
	for k, want := range f.Equals {
		got, ok := metadata[k]
		if !ok {
			return false
		}
		ws, _ := formatScalar(want)
		gs, _ := formatScalar(got)
		if ws != gs {
			return false
		}
	}
	for k, r := range f.Ranges {
		got, ok := metadata[k]
		if !ok {
			return false
		}
		v, ok := toFloat(got)
		if !ok || !r.Contains(v) {
			return false
		}
	}
	return true
}

// equalityStrings renders Equals as a string map for backends that store
// metadata as strings.
func (f *Filter) equalityStrings() map[string]string {
	if f == nil || len(f.Equals) == 0 {
		return nil
	}
	out := make(map[string]string, len(f.Equals))
	for k, v := range f.Equals {
		out[k], _ = formatScalar(v)
	}
	return out
}

// FilterBuilder provides a fluent API for constructing filters.
type FilterBuilder struct {
	f Filter
}

// NewFilterBuilder creates an empty builder.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

// Equals adds an equality condition.
func (b *FilterBuilder) Equals(key string, value any) *FilterBuilder {
	if b.f.Equals == nil {
		b.f.Equals = make(map[string]any)
	}
	b.f.Equals[key] = value
	return b
}

// RangeOption sets one end of a range.
type RangeOption func(*Range)

// Gte sets the inclusive lower bound.
func Gte(v float64) RangeOption { return func(r *Range) { r.Gte = &v } }

// Lte sets the inclusive upper bound.
func Lte(v float64) RangeOption { return func(r *Range) { r.Lte = &v } }

// Range adds a numeric range condition.
func (b *FilterBuilder) Range(key string, opts ...RangeOption) *FilterBuilder {
	if b.f.Ranges == nil {
		b.f.Ranges = make(map[string]Range)
	}
	r := b.f.Ranges[key]
	for _, opt := range opts {
		opt(&r)
	}
	b.f.Ranges[key] = r
	return b
}

// Build returns the filter, or nil when no condition was added.
func (b *FilterBuilder) Build() *Filter {
	if b.f.IsEmpty() {
		return nil
	}
	f := b.f
	return &f
}

// formatScalar renders a metadata value canonically. Whole floats render
// without a fraction so 3 and 3.0 compare equal.
func formatScalar(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), true
	default:
		return fmt.Sprintf("%v", val), false
	}
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
