// Package render drives a glvj project frame by frame: it advances the beat
// clock, evaluates stage variables under automation, polls shader sources for
// changes and exposes input provider values. It holds no GL state, a backend
// such as glrun turns its stages into programs and render targets.
package render

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/soypat/glvj/config"
	"github.com/soypat/glvj/shader"
	"github.com/soypat/glvj/uniform"
)

// DefaultPollEvery is the default number of frames between shader change checks.
const DefaultPollEvery = 15

type PipelineConfig struct {
	// PollEvery is the number of frames between shader change checks.
	PollEvery int
	// Watch enables filesystem notifications so unchanged shader files are not stat'ed.
	Watch bool
	Log   *slog.Logger
}

// Pipeline is the runtime form of a project. Stages that fail to build are
// disabled and logged, the rest of the pipeline keeps running.
type Pipeline struct {
	clock     *Clock
	stages    []*Stage
	disabled  map[string]error
	providers []InputProvider
	byInput   map[string]InputProvider
	watcher   *shader.Watcher
	pollEvery int
	frame     int
	log       *slog.Logger
}

// NewPipeline builds the stages and input providers of a project checked by
// [config.Project.Validate]. Stages failing [config.Project.ValidateStage] or
// failing to build are disabled, the others run.
func NewPipeline(p *config.Project, cfg PipelineConfig) (*Pipeline, error) {
	pl := &Pipeline{
		clock:     NewClock(p.BPM),
		disabled:  make(map[string]error),
		byInput:   make(map[string]InputProvider),
		pollEvery: cfg.PollEvery,
		log:       cfg.Log,
	}
	if pl.pollEvery <= 0 {
		pl.pollEvery = DefaultPollEvery
	}
	if pl.log == nil {
		pl.log = slog.Default()
	}
	if cfg.Watch {
		var err error
		pl.watcher, err = shader.NewWatcher(pl.log)
		if err != nil {
			return nil, err
		}
	}
	pl.openInputs(p)

	var libDirs []string
	if libs, err := config.LibsDir(); err == nil {
		libDirs = append(libDirs, libs)
	}
	stages := p.Stages()
	for i, st := range stages {
		final := i == len(stages)-1
		label := st.Name
		if final && label == "" {
			label = "final_stage"
		}
		err := p.ValidateStage(i)
		if err != nil {
			pl.disable(label, err)
			continue
		}
		stage, err := NewStage(StageConfig{
			Stage:   st,
			Filter:  p.Filters[st.Filter],
			Final:   final,
			Globals: p.Variables,
			Watcher: pl.watcher,
			LibDirs: libDirs,
		})
		if err != nil {
			pl.disable(label, err)
			continue
		}
		pl.stages = append(pl.stages, stage)
	}
	if len(pl.stages) == 0 {
		pl.Close()
		return nil, errors.New("render: no stage could be built")
	}
	return pl, nil
}

func (pl *Pipeline) openInputs(p *config.Project) {
	for _, name := range slices.Sorted(maps.Keys(p.Inputs)) {
		in := p.Inputs[name]
		var provider InputProvider
		switch in.Type {
		case config.InputPicture:
			path, err := config.ResolvePath(p.Dir, in.Path)
			if err == nil {
				provider, err = NewPicture(name, path, in.Width, in.Height)
			}
			if err != nil {
				pl.log.Error("input disabled", slog.String("input", name), slog.Any("err", err))
				continue
			}
		default:
			pl.log.Warn("input type not supported, skipping", slog.String("input", name), slog.String("type", in.Type.String()))
			continue
		}
		pl.providers = append(pl.providers, provider)
		for _, provided := range provider.Provides() {
			pl.byInput[provided] = provider
		}
	}
}

func (pl *Pipeline) disable(label string, err error) {
	pl.disabled[label] = err
	pl.log.Error("stage disabled", slog.String("stage", label), slog.Any("err", err))
}

// Disable removes a stage from the pipeline, for instance after its program
// failed to compile with no previous program to fall back to.
func (pl *Pipeline) Disable(s *Stage, err error) {
	for i, stage := range pl.stages {
		if stage == s {
			pl.stages = append(pl.stages[:i], pl.stages[i+1:]...)
			pl.disable(s.Label(), err)
			return
		}
	}
}

// Disabled returns the error that disabled the stage with the given label, nil if enabled.
func (pl *Pipeline) Disabled(label string) error { return pl.disabled[label] }

// Stages returns the enabled stages in render order.
// The slice must not be modified.
func (pl *Pipeline) Stages() []*Stage { return pl.stages }

// Stage returns the enabled stage with the given name or nil.
func (pl *Pipeline) Stage(name string) *Stage {
	for _, s := range pl.stages {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func (pl *Pipeline) Clock() *Clock { return pl.clock }

// Frame advances the clock by dt and every PollEvery frames checks the
// shader sources of all stages. It returns the stages whose shader text
// changed and need recompiling. Errors are logged and the stage keeps the
// last text that loaded.
func (pl *Pipeline) Frame(dt time.Duration) (changed []*Stage) {
	pl.clock.Advance(dt)
	for _, p := range pl.providers {
		p.SetTime(pl.clock.Time(), false)
	}
	pl.frame++
	if pl.frame%pl.pollEvery != 0 {
		return nil
	}
	return pl.CheckChanges()
}

// CheckChanges checks the shader sources of every stage immediately.
func (pl *Pipeline) CheckChanges() (changed []*Stage) {
	for _, s := range pl.stages {
		ok, err := s.CheckChanges()
		if err != nil {
			pl.log.Warn("shader reload failed", slog.String("stage", s.Label()), slog.Any("err", err))
			continue
		}
		if ok {
			pl.log.Info("shader changed", slog.String("stage", s.Label()))
			changed = append(changed, s)
		}
	}
	return changed
}

// Input returns the value of a project input if it changed since the last call.
func (pl *Pipeline) Input(name string) (uniform.Value, bool) {
	p := pl.byInput[name]
	if p == nil {
		return uniform.Value{}, false
	}
	return p.Get(name, true)
}

// SetBPM changes the tempo of the clock and of every input provider.
func (pl *Pipeline) SetBPM(bpm float64, sync bool) {
	pl.clock.SetBPM(bpm, sync)
	for _, p := range pl.providers {
		p.SetBeat(bpm, sync)
	}
}

// Play resumes the clock and every input provider.
func (pl *Pipeline) Play() error {
	pl.clock.Play()
	return pl.each(InputProvider.Play)
}

// Pause stops the clock and every input provider.
func (pl *Pipeline) Pause() error {
	pl.clock.Pause()
	return pl.each(InputProvider.Pause)
}

// Close stops the input providers and the shader watcher.
func (pl *Pipeline) Close() error {
	err := pl.each(InputProvider.Stop)
	if pl.watcher != nil {
		err = errors.Join(err, pl.watcher.Close())
	}
	return err
}

func (pl *Pipeline) each(fn func(InputProvider) error) error {
	var errs []error
	for _, p := range pl.providers {
		if err := fn(p); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", p.Provides(), err))
		}
	}
	return errors.Join(errs...)
}
