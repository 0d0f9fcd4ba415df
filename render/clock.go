package render

import (
	"fmt"
	"math"
	"time"
)

// Clock tracks wall time and musical time. Beats accumulate at the current
// tempo so changing the BPM never makes the beat jump.
type Clock struct {
	bpm    float64
	time   float64 // Seconds.
	beat   float64
	paused bool
}

// NewClock returns a running clock at beat 0. It panics if bpm is not positive.
func NewClock(bpm float64) *Clock {
	c := &Clock{}
	c.SetBPM(bpm, false)
	return c
}

// Advance moves the clock forward by dt. Paused clocks do not advance.
func (c *Clock) Advance(dt time.Duration) {
	if c.paused || dt <= 0 {
		return
	}
	secs := dt.Seconds()
	c.time += secs
	c.beat += secs * c.bpm / 60
}

// SetBPM changes the tempo from the current beat onwards. If sync is true the
// beat is also rounded to the nearest whole beat so the next downbeat lands now.
func (c *Clock) SetBPM(bpm float64, sync bool) {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		panic(fmt.Sprintf("render: invalid bpm %g", bpm))
	}
	c.bpm = bpm
	if sync {
		c.beat = math.Round(c.beat)
	}
}

// SetTime sets the elapsed time and the beat it corresponds to at the current tempo.
func (c *Clock) SetTime(secs float64) {
	c.time = secs
	c.beat = secs * c.bpm / 60
}

func (c *Clock) BPM() float64  { return c.bpm }
func (c *Clock) Time() float64 { return c.time }
func (c *Clock) Beat() float64 { return c.beat }
func (c *Clock) Paused() bool  { return c.paused }
func (c *Clock) Play()         { c.paused = false }
func (c *Clock) Pause()        { c.paused = true }
func (c *Clock) TogglePause()  { c.paused = !c.paused }
