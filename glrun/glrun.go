// Package glrun renders a [render.Pipeline] with OpenGL in a GLFW window.
// Every stage but the final one renders into its own texture, the final stage
// renders to the window. Rendering requires cgo.
package glrun

import (
	"context"
	"log/slog"
	"time"

	"github.com/soypat/glvj/config"
	"github.com/soypat/glvj/render"
)

type Config struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	// Resizable windows resize the stage render targets with them.
	Resizable bool
	VSync     bool
	// TargetFPS limits the frame rate when positive.
	TargetFPS float64
	// LockedSpeed advances the pipeline clock by exactly 1/TargetFPS per frame.
	LockedSpeed bool
	// ScreenshotPath enables saving the first ScreenshotFrames frames as PNG.
	// See [ScreenshotName] for how frames are named.
	ScreenshotPath   string
	ScreenshotFrames int
	Log              *slog.Logger
}

// ConfigFromView returns the window configuration of a project view.
func ConfigFromView(v config.View) Config {
	cfg := Config{
		Title:       "glvj",
		Width:       v.Width,
		Height:      v.Height,
		Fullscreen:  v.Fullscreen,
		Resizable:   v.Dynamic,
		VSync:       v.VSync,
		TargetFPS:   v.TargetFPS,
		LockedSpeed: v.LockedSpeed,
	}
	if v.Screenshot {
		cfg.ScreenshotPath = v.ScreenshotPath
		cfg.ScreenshotFrames = max(v.ScreenshotFrameCount, 1)
	}
	return cfg
}

// Run opens a window and renders pl until the window is closed or ctx is done.
// It must be called from the main thread.
func Run(ctx context.Context, pl *render.Pipeline, cfg Config) error {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return run(ctx, pl, cfg)
}

// frameDuration returns the frame period of the target frame rate, zero if unlimited.
func (cfg *Config) frameDuration() time.Duration {
	if cfg.TargetFPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / cfg.TargetFPS)
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// frameTimer produces the clock delta of each frame and paces the loop.
type frameTimer struct {
	period time.Duration
	locked bool
	lap    func() time.Duration
}

func newFrameTimer(cfg *Config) *frameTimer {
	return &frameTimer{period: cfg.frameDuration(), locked: cfg.LockedSpeed && cfg.TargetFPS > 0, lap: stopwatch()}
}

// next sleeps out the rest of the frame period if a target rate is set and
// returns the time to advance the clock by.
func (ft *frameTimer) next() time.Duration {
	elapsed := ft.lap()
	if ft.period > elapsed {
		time.Sleep(ft.period - elapsed)
		elapsed = ft.lap()
	}
	ft.lap = stopwatch()
	if ft.locked {
		return ft.period
	}
	return elapsed
}
