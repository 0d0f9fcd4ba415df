package uniform

import (
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// RangeKind distinguishes the bounds a filter may declare on one of its variables.
type RangeKind uint8

const (
	RangeNone RangeKind = iota
	RangeInt
	RangeFloat
	// RangeColor bounds every component to [0, 1].
	RangeColor
)

func (rk RangeKind) String() string {
	switch rk {
	case RangeNone:
		return "none"
	case RangeInt:
		return "int"
	case RangeFloat:
		return "float"
	case RangeColor:
		return "color"
	}
	return fmt.Sprintf("RangeKind(%d)", uint8(rk))
}

// Range describes the bounds and the editing step of a variable. Ranges are
// hints for editors and clamps for incoming values, automation output is not clamped.
type Range struct {
	Kind RangeKind
	Min  float64
	Max  float64
	Step float64
}

// NoRange returns the unbounded range.
func NoRange() Range { return Range{} }

func IntRange(min, max, step int64) Range {
	return Range{Kind: RangeInt, Min: float64(min), Max: float64(max), Step: float64(step)}
}

func FloatRange(min, max, step float64) Range {
	return Range{Kind: RangeFloat, Min: min, Max: max, Step: step}
}

func ColorRange() Range { return Range{Kind: RangeColor, Min: 0, Max: 1} }

// Validate checks the bounds are ordered and finite and the step is non-negative.
func (r Range) Validate() error {
	switch r.Kind {
	case RangeNone:
		return nil
	case RangeInt, RangeFloat, RangeColor:
	default:
		return fmt.Errorf("invalid range kind %d", r.Kind)
	}
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return errors.New("range bounds must be finite")
	} else if r.Min > r.Max {
		return fmt.Errorf("range minimum %g greater than maximum %g", r.Min, r.Max)
	} else if r.Step < 0 {
		return fmt.Errorf("negative range step %g", r.Step)
	}
	return nil
}

// Accepts reports whether values of kind k can be clamped by r.
func (r Range) Accepts(k Kind) bool {
	switch r.Kind {
	case RangeNone:
		return true
	case RangeInt:
		return k.IsInt() || k == KindIntArray
	case RangeFloat:
		return k.IsFloat() || k == KindFloatArray
	case RangeColor:
		return k == KindFloat3 || k == KindFloat4
	}
	return false
}

// Clamp returns v with every numeric component clamped to r's bounds.
// Values r does not accept are returned unchanged.
func (r Range) Clamp(v Value) Value {
	if r.Kind == RangeNone || !r.Accepts(v.kind) {
		return v
	}
	switch v.kind {
	case KindFloatArray:
		fs := v.Float32s()
		for i := range fs {
			fs[i] = r.clampf(fs[i])
		}
		return FloatArray(fs)
	case KindIntArray:
		is := v.Int32s()
		for i := range is {
			is[i] = r.clampi(is[i])
		}
		return IntArray(is)
	}
	result := v
	for i := 0; i < v.kind.Components(); i++ {
		if v.kind.IsInt() {
			result.i[i] = r.clampi(v.i[i])
		} else {
			result.f[i] = r.clampf(v.f[i])
		}
	}
	return result
}

func (r Range) clampf(f float32) float32 {
	return math32.Max(float32(r.Min), math32.Min(float32(r.Max), f))
}

func (r Range) clampi(i int32) int32 {
	return max(int32(r.Min), min(int32(r.Max), i))
}

// ApproxEqual reports whether a and b hold the same kind and every float
// component differs by at most tol. Non-float payloads are compared exactly.
func ApproxEqual(a, b Value, tol float32) bool {
	if a.kind != b.kind {
		return false
	}
	af, bf := a.Float32s(), b.Float32s()
	if af == nil {
		return Equal(a, b)
	} else if len(af) != len(bf) {
		return false
	}
	for i := range af {
		if math32.Abs(af[i]-bf[i]) > tol {
			return false
		}
	}
	return true
}
