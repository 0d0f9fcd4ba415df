// Package automation animates uniform values in musical time.
//
// An [LFO] maps a beat position to a periodic amplitude. An [Automation]
// groups up to four LFOs, one per vector component, and applies their output
// on top of a base [uniform.Value] every frame.
package automation

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Shape is the waveform of an [LFO].
type Shape uint8

const (
	Square Shape = iota
	Triangle
	Saw
	Sine
	numShapes
)

var shapeNames = [numShapes]string{
	Square:   "square",
	Triangle: "triangle",
	Saw:      "saw",
	Sine:     "sine",
}

func (s Shape) String() string {
	if s >= numShapes {
		return fmt.Sprintf("Shape(%d)", uint8(s))
	}
	return shapeNames[s]
}

// ParseShape parses a shape name, case insensitive.
func ParseShape(s string) (Shape, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range shapeNames {
		if name == s {
			return Shape(i), nil
		}
	}
	return 0, fmt.Errorf("unknown LFO shape %q", s)
}

// LFO is a low frequency oscillator clocked by beats instead of wall time.
// The zero LFO is invalid, see [LFO.Validate].
type LFO struct {
	Shape Shape
	// Numerator and Denominator set the oscillator frequency in cycles per beat
	// as Numerator/Denominator, so one period lasts Denominator/Numerator beats.
	Numerator   float64
	Denominator float64
	// Phase offsets the cycle, in cycles.
	Phase     float64
	Amplitude float64
	// Signed LFOs output in [-Amplitude, Amplitude] instead of [0, Amplitude].
	Signed bool
}

var errZeroDenominator = errors.New("LFO denominator must not be zero")

// Validate returns an error if the LFO can not be sampled. It should be called
// when the configuration is loaded so Sample never runs on a bad LFO.
func (lfo LFO) Validate() error {
	if lfo.Shape >= numShapes {
		return fmt.Errorf("invalid LFO shape %d", lfo.Shape)
	} else if lfo.Denominator == 0 {
		return errZeroDenominator
	}
	for _, v := range [...]float64{lfo.Numerator, lfo.Denominator, lfo.Phase, lfo.Amplitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite LFO parameter in %+v", lfo)
		}
	}
	return nil
}

// Period returns the duration of one cycle in beats.
func (lfo LFO) Period() float64 {
	return lfo.Denominator / lfo.Numerator
}

// Sample returns the oscillator output at the given beat.
func (lfo LFO) Sample(beat float64) float64 {
	cursor := fract(beat*lfo.Numerator/lfo.Denominator + lfo.Phase)
	var v float64
	switch lfo.Shape {
	case Square:
		if cursor >= 0.5 {
			v = 1
		}
	case Triangle:
		v = 1 - math.Abs(cursor*2-1)
	case Saw:
		v = cursor
	case Sine:
		v = math.Sin(cursor*2*math.Pi)*0.5 + 0.5
	}
	if lfo.Signed {
		v = v*2 - 1
	}
	return v * lfo.Amplitude
}

// fract returns the fractional part of x in [0, 1), also for negative x.
func fract(x float64) float64 {
	f := x - math.Floor(x)
	if f >= 1 {
		// x-floor(x) rounds up to 1 for tiny negative x.
		return 0
	}
	return f
}
