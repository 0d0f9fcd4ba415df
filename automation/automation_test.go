package automation_test

import (
	"math"
	"testing"

	"github.com/soypat/glvj/automation"
	"github.com/soypat/glvj/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shapes = []automation.Shape{automation.Square, automation.Triangle, automation.Saw, automation.Sine}

func TestLFOPeriodAndRange(t *testing.T) {
	const tol = 1e-9
	for _, shape := range shapes {
		for _, signed := range []bool{false, true} {
			lfo := automation.LFO{
				Shape:       shape,
				Numerator:   3,
				Denominator: 4,
				Phase:       0.1,
				Amplitude:   2.5,
				Signed:      signed,
			}
			require.NoError(t, lfo.Validate())
			period := lfo.Period()
			lo, hi := 0.0, lfo.Amplitude
			if signed {
				lo = -lfo.Amplitude
			}
			for beat := -8.0; beat < 8; beat += 0.0137 {
				v := lfo.Sample(beat)
				if v < lo-tol || v > hi+tol {
					t.Fatalf("%s signed=%v: sample(%g)=%g out of [%g,%g]", shape, signed, beat, v, lo, hi)
				}
				// Rounding may flip the step of discontinuous shapes right at their edges.
				if (shape == automation.Square || shape == automation.Saw) && nearEdge(lfo, beat) {
					continue
				}
				next := lfo.Sample(beat + period)
				if math.Abs(next-v) > 1e-6 {
					t.Fatalf("%s signed=%v: not periodic at beat %g: %g != %g", shape, signed, beat, v, next)
				}
			}
		}
	}
}

func nearEdge(lfo automation.LFO, beat float64) bool {
	x := beat*lfo.Numerator/lfo.Denominator + lfo.Phase
	f := x - math.Floor(x)
	return math.Abs(f-0.5) < 1e-6 || f < 1e-6 || f > 1-1e-6
}

func TestLFOShapes(t *testing.T) {
	base := automation.LFO{Numerator: 1, Denominator: 1, Amplitude: 1}
	var tests = []struct {
		shape automation.Shape
		beat  float64
		want  float64
	}{
		{automation.Square, 0.25, 0},
		{automation.Square, 0.5, 1},
		{automation.Square, 0.75, 1},
		{automation.Triangle, 0, 0},
		{automation.Triangle, 0.25, 0.5},
		{automation.Triangle, 0.5, 1},
		{automation.Triangle, 0.75, 0.5},
		{automation.Saw, 0.3, 0.3},
		{automation.Sine, 0, 0.5},
		{automation.Sine, 0.25, 1},
		{automation.Sine, 0.75, 0},
		{automation.Saw, -0.25, 0.75},
	}
	for _, test := range tests {
		lfo := base
		lfo.Shape = test.shape
		assert.InDelta(t, test.want, lfo.Sample(test.beat), 1e-12, "%s at %g", test.shape, test.beat)
	}

	signed := base
	signed.Shape = automation.Saw
	signed.Signed = true
	signed.Amplitude = 3
	assert.InDelta(t, -3, signed.Sample(0), 1e-12)
	assert.InDelta(t, 0, signed.Sample(0.5), 1e-12)

	quarter := automation.LFO{Shape: automation.Saw, Numerator: 1, Denominator: 4, Amplitude: 1}
	assert.Equal(t, 4.0, quarter.Period())
	assert.InDelta(t, 0.25, quarter.Sample(1), 1e-12)
}

func TestLFOContinuity(t *testing.T) {
	const h = 1e-7
	for _, shape := range []automation.Shape{automation.Sine, automation.Triangle} {
		lfo := automation.LFO{Shape: shape, Numerator: 1, Denominator: 2, Amplitude: 1}
		for beat := 0.0; beat < 4; beat += 0.01 {
			d := math.Abs(lfo.Sample(beat+h) - lfo.Sample(beat))
			assert.Less(t, d, 1e-5, "%s discontinuous at %g", shape, beat)
		}
	}
	square := automation.LFO{Shape: automation.Square, Numerator: 1, Denominator: 1, Amplitude: 1}
	assert.Equal(t, 0.0, square.Sample(0.5-h))
	assert.Equal(t, 1.0, square.Sample(0.5))
	assert.Equal(t, 0.0, square.Sample(1))
}

func TestLFOValidate(t *testing.T) {
	assert.Error(t, automation.LFO{Numerator: 1}.Validate())
	assert.Error(t, automation.LFO{Numerator: math.NaN(), Denominator: 1}.Validate())
	assert.Error(t, automation.LFO{Shape: 200, Numerator: 1, Denominator: 1}.Validate())
	assert.NoError(t, automation.LFO{Numerator: 0, Denominator: 1}.Validate())

	a := automation.NewLFO2D(automation.LFO{Denominator: 1}, automation.LFO{})
	assert.Error(t, a.Validate())
}

func TestNoneNeverApplies(t *testing.T) {
	values := []uniform.Value{
		uniform.Float(1), uniform.Float4(1, 2, 3, 4), uniform.Int(3), uniform.Bool(true),
		uniform.String("x"), uniform.Mat2([2][2]float32{}), uniform.Texture(1, 1, []byte{0, 0, 0, 0}),
	}
	none := automation.None()
	for _, v := range values {
		for _, beat := range []float64{-1, 0, 0.5, 1e6} {
			_, ok := none.Apply(v, beat)
			assert.False(t, ok, "%v at %g", v, beat)
		}
	}
	assert.True(t, none.IsNone())
	assert.Equal(t, automation.Automation{}, none)
}

func TestBroadcast(t *testing.T) {
	lfo := automation.LFO{Shape: automation.Saw, Numerator: 1, Denominator: 1, Amplitude: 1}
	a := automation.NewLFO(lfo)
	got, ok := a.Apply(uniform.Float4(1, 2, 3, 4), 0.25)
	require.True(t, ok)
	assert.Equal(t, uniform.Float4(1.25, 2.25, 3.25, 4.25), got)

	// Two LFOs on a 3 component value also broadcast the first LFO.
	b := automation.NewLFO2D(lfo, automation.LFO{Shape: automation.Square, Numerator: 1, Denominator: 1, Amplitude: 10})
	got, ok = b.Apply(uniform.Float3(0, 0, 0), 0.5)
	require.True(t, ok)
	assert.Equal(t, uniform.Float3(0.5, 0.5, 0.5), got)
}

func TestPerAxis(t *testing.T) {
	x := automation.LFO{Shape: automation.Saw, Numerator: 1, Denominator: 1, Amplitude: 1}
	y := automation.LFO{Shape: automation.Sine, Numerator: 1, Denominator: 2, Amplitude: 2, Signed: true}
	z := automation.LFO{Shape: automation.Triangle, Numerator: 2, Denominator: 1, Phase: 0.3, Amplitude: 0.5}
	a := automation.NewLFO3D(x, y, z)
	for beat := 0.0; beat < 3; beat += 0.37 {
		got, ok := a.Apply(uniform.Float3(0, 0, 0), beat)
		require.True(t, ok)
		want := []float32{float32(x.Sample(beat)), float32(y.Sample(beat)), float32(z.Sample(beat))}
		assert.Equal(t, want, got.Float32s(), "beat %g", beat)
	}
}

func TestIntTruncation(t *testing.T) {
	lfo := automation.LFO{Shape: automation.Saw, Numerator: 1, Denominator: 1, Amplitude: 4}
	a := automation.NewLFO(lfo)
	got, ok := a.Apply(uniform.Int2(10, 20), 0.7) // offset 2.8 truncates to 2.
	require.True(t, ok)
	assert.Equal(t, uniform.Int2(12, 22), got)

	neg := automation.NewLFO(automation.LFO{Shape: automation.Saw, Numerator: 1, Denominator: 1, Amplitude: 4, Signed: true})
	got, ok = neg.Apply(uniform.Int(0), 0.2) // offset -2.4 truncates toward zero to -2.
	require.True(t, ok)
	assert.Equal(t, uniform.Int(-2), got)

	per := automation.NewLFO4D(lfo, lfo, lfo, automation.LFO{Shape: automation.Square, Numerator: 1, Denominator: 1, Amplitude: 5})
	got, ok = per.Apply(uniform.Int4(0, 0, 0, 0), 0.5)
	require.True(t, ok)
	assert.Equal(t, uniform.Int4(2, 2, 2, 5), got)
}

func TestBoolLatch(t *testing.T) {
	// Saw with amplitude 1 outputs the cursor, which makes offsets easy to pick.
	saw := automation.NewLFO(automation.LFO{Shape: automation.Saw, Numerator: 1, Denominator: 1, Amplitude: 1})
	got, ok := saw.Apply(uniform.Bool(false), 0.6)
	require.True(t, ok)
	assert.True(t, got.Bool(), "false base, offset 0.6")

	got, _ = saw.Apply(uniform.Bool(true), 0.3)
	assert.True(t, got.Bool(), "true base, offset 0.3")

	got, _ = saw.Apply(uniform.Bool(false), 0.3)
	assert.False(t, got.Bool(), "false base, offset 0.3")

	signedSaw := automation.NewLFO(automation.LFO{Shape: automation.Saw, Numerator: 1, Denominator: 1, Amplitude: 1, Signed: true})
	got, _ = signedSaw.Apply(uniform.Bool(true), 0.45) // offset -0.1
	assert.False(t, got.Bool(), "true base, offset -0.1")
}

func TestUnsupportedKindsNoop(t *testing.T) {
	a := automation.NewLFO(automation.LFO{Shape: automation.Sine, Numerator: 1, Denominator: 1, Amplitude: 1})
	for _, v := range []uniform.Value{
		uniform.String("s"),
		uniform.FloatArray([]float32{1}),
		uniform.IntArray([]int32{1}),
		uniform.BoolArray([]bool{true}),
		uniform.ByteArray([]byte{1}),
		uniform.Mat4([4][4]float32{}),
		uniform.SrgbTexture(1, 1, []byte{1, 2, 3, 4}),
	} {
		_, ok := a.Apply(v, 0.25)
		assert.False(t, ok, "%v", v)
		assert.False(t, a.Animates(v.Kind()))
	}
}

func TestApplyDoesNotModifyBase(t *testing.T) {
	a := automation.NewLFO(automation.LFO{Shape: automation.Saw, Numerator: 1, Denominator: 1, Amplitude: 1})
	base := uniform.Float2(1, 1)
	_, ok := a.Apply(base, 0.5)
	require.True(t, ok)
	assert.Equal(t, uniform.Float2(1, 1), base)
}

func TestNew(t *testing.T) {
	lfo := automation.LFO{Numerator: 1, Denominator: 1}
	a, err := automation.New()
	require.NoError(t, err)
	assert.True(t, a.IsNone())

	a, err = automation.New(lfo, lfo, lfo)
	require.NoError(t, err)
	assert.Equal(t, automation.NewLFO3D(lfo, lfo, lfo), a)
	assert.Len(t, a.LFOs(), 3)

	_, err = automation.New(lfo, lfo, lfo, lfo, lfo)
	assert.Error(t, err)
}

func TestParseShape(t *testing.T) {
	for _, shape := range shapes {
		got, err := automation.ParseShape(shape.String())
		require.NoError(t, err)
		assert.Equal(t, shape, got)
	}
	_, err := automation.ParseShape("noise")
	assert.Error(t, err)
}
