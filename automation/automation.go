package automation

import (
	"fmt"

	"github.com/soypat/glvj/uniform"
)

// Automation holds between zero and four LFOs. The zero Automation is [None].
// Automations are comparable values and are never modified after creation.
type Automation struct {
	n    uint8
	lfos [4]LFO
}

// None returns the automation that never modulates its value.
func None() Automation { return Automation{} }

// NewLFO returns an automation driven by a single LFO. On vector values the
// LFO output is broadcast to every component.
func NewLFO(x LFO) Automation { return Automation{n: 1, lfos: [4]LFO{x}} }

// NewLFO2D returns an automation with one LFO per component of a 2 component value.
func NewLFO2D(x, y LFO) Automation { return Automation{n: 2, lfos: [4]LFO{x, y}} }

// NewLFO3D returns an automation with one LFO per component of a 3 component value.
func NewLFO3D(x, y, z LFO) Automation { return Automation{n: 3, lfos: [4]LFO{x, y, z}} }

// NewLFO4D returns an automation with one LFO per component of a 4 component value.
func NewLFO4D(x, y, z, w LFO) Automation { return Automation{n: 4, lfos: [4]LFO{x, y, z, w}} }

// New returns the automation matching the number of LFOs given. It returns
// [None] when called with no LFOs and an error for more than four.
func New(lfos ...LFO) (Automation, error) {
	if len(lfos) > 4 {
		return Automation{}, fmt.Errorf("automation supports at most 4 LFOs, got %d", len(lfos))
	}
	a := Automation{n: uint8(len(lfos))}
	copy(a.lfos[:], lfos)
	return a, nil
}

// IsNone reports whether a never modulates values.
func (a Automation) IsNone() bool { return a.n == 0 }

// Len returns the number of LFOs held by a.
func (a Automation) Len() int { return int(a.n) }

// LFOs returns a copy of the LFOs held by a, in component order.
func (a Automation) LFOs() []LFO {
	return append([]LFO(nil), a.lfos[:a.n]...)
}

// Validate validates every LFO held by a.
func (a Automation) Validate() error {
	for i, lfo := range a.lfos[:a.n] {
		if err := lfo.Validate(); err != nil {
			return fmt.Errorf("LFO %d: %w", i, err)
		}
	}
	return nil
}

// Animates reports whether Apply has a rule for values of kind k.
// Apply on any other kind is a no-op.
func (a Automation) Animates(k uniform.Kind) bool {
	return !a.IsNone() && (k.IsFloat() || k.IsInt() || k == uniform.KindBool)
}

// Apply samples the automation at beat and returns the modulated base value.
// The second result is false when there is nothing to apply: the automation is
// [None] or has no rule for base's kind. In that case base should be used as is.
//
// Offsets are added component-wise to float and int values, converted with Go
// conversion semantics (int conversion truncates toward zero). If the number of
// LFOs does not match the number of components of base the first LFO drives
// every component. Bool values are latched true while the first LFO is above 0.5
// and reset while it is not positive.
//
// Apply never modifies base, callers keep the authored value as the base for
// the next frame.
func (a Automation) Apply(base uniform.Value, beat float64) (uniform.Value, bool) {
	if !a.Animates(base.Kind()) {
		return uniform.Value{}, false
	}
	var offsets [4]float64
	for i, lfo := range a.lfos[:a.n] {
		offsets[i] = lfo.Sample(beat)
	}
	k := base.Kind()
	n := k.Components()
	perComponent := int(a.n) == n
	offset := func(i int) float64 {
		if perComponent {
			return offsets[i]
		}
		return offsets[0]
	}
	switch {
	case k == uniform.KindBool:
		o := offsets[0]
		return uniform.Bool((base.Bool() || o > 0.5) && o > 0), true

	case k.IsFloat():
		comps := base.Float32s()
		for i := range comps {
			comps[i] += float32(offset(i))
		}
		v, err := uniform.FromFloat32s(k, comps)
		if err != nil {
			panic(err) // unreachable: comps has k's length.
		}
		return v, true
	}
	comps := base.Int32s()
	for i := range comps {
		comps[i] += int32(offset(i))
	}
	v, err := uniform.FromInt32s(k, comps)
	if err != nil {
		panic(err)
	}
	return v, true
}

func (a Automation) String() string {
	if a.IsNone() {
		return "none"
	}
	return fmt.Sprintf("lfo%dd%v", a.n, a.lfos[:a.n])
}
