package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/soypat/glvj/automation"
	"github.com/soypat/glvj/uniform"
)

// Build converts the configured LFO.
func (l LFO) Build() (automation.LFO, error) {
	shape, err := automation.ParseShape(l.Shape)
	if err != nil {
		return automation.LFO{}, err
	}
	lfo := automation.LFO{
		Shape:       shape,
		Numerator:   l.Numerator,
		Denominator: l.Denominator,
		Phase:       l.Phase,
		Amplitude:   l.Amplitude,
		Signed:      l.Signed,
	}
	return lfo, lfo.Validate()
}

// Build parses the variable's base value and automation.
func (v Variable) Build() (uniform.Value, automation.Automation, error) {
	kind, err := uniform.ParseKind(v.Kind)
	if err != nil {
		return uniform.Value{}, automation.None(), err
	}
	val, err := uniform.Parse(kind, v.Value)
	if err != nil {
		return uniform.Value{}, automation.None(), err
	}
	lfos := make([]automation.LFO, len(v.Automation))
	for i, cfg := range v.Automation {
		lfos[i], err = cfg.Build()
		if err != nil {
			return uniform.Value{}, automation.None(), fmt.Errorf("automation %d: %w", i, err)
		}
	}
	a, err := automation.New(lfos...)
	if err != nil {
		return uniform.Value{}, automation.None(), err
	}
	if v.Const && !a.IsNone() {
		return uniform.Value{}, automation.None(), errors.New("constant variables can not be automated")
	}
	return val, a, nil
}

// Build parses the variable's default value and range.
func (fv FilterVariable) Build() (uniform.Value, uniform.Range, error) {
	kind, err := uniform.ParseKind(fv.Kind)
	if err != nil {
		return uniform.Value{}, uniform.NoRange(), err
	}
	val, err := uniform.Parse(kind, fv.Default)
	if err != nil {
		return uniform.Value{}, uniform.NoRange(), err
	}
	rng := uniform.NoRange()
	if fv.Range != nil {
		rng, err = fv.Range.Build()
		if err != nil {
			return uniform.Value{}, uniform.NoRange(), err
		} else if !rng.Accepts(kind) {
			return uniform.Value{}, uniform.NoRange(), fmt.Errorf("%s range does not apply to %s values", rng.Kind, kind)
		}
	}
	return val, rng, nil
}

// Build converts the configured range.
func (r RangeConfig) Build() (uniform.Range, error) {
	var rng uniform.Range
	switch strings.ToLower(r.Kind) {
	case "int":
		rng = uniform.IntRange(int64(r.Min), int64(r.Max), int64(r.Step))
	case "float":
		rng = uniform.FloatRange(r.Min, r.Max, r.Step)
	case "color":
		rng = uniform.ColorRange()
	case "", "none":
		return uniform.NoRange(), nil
	default:
		return uniform.Range{}, fmt.Errorf("unknown range kind %q", r.Kind)
	}
	return rng, rng.Validate()
}

// Validate checks the project wide settings, the filters and the naming of
// stages, returning every problem found joined. Stage contents are checked
// by [Project.ValidateStage].
func (p *Project) Validate() error {
	var errs []error
	add := func(err error, format string, args ...any) {
		if err != nil {
			errs = append(errs, fmt.Errorf(format+": %w", append(args, err)...))
		}
	}
	if !(p.BPM > 0) || math.IsInf(p.BPM, 0) {
		errs = append(errs, fmt.Errorf("bpm must be positive, got %g", p.BPM))
	}
	add(p.View.validate(), "view")
	add(p.Server.validate(), "server")
	for _, name := range sortedKeys(p.Inputs) {
		add(p.Inputs[name].validate(), "input %q", name)
	}
	for _, name := range sortedKeys(p.Variables) {
		_, _, err := p.Variables[name].Build()
		add(err, "variable %q", name)
	}
	for _, name := range sortedKeys(p.Filters) {
		add(p.Filters[name].validate(), "filter %q", name)
	}

	seen := make(map[string]bool, len(p.Inputs)+len(p.RenderChain))
	for name := range p.Inputs {
		seen[name] = true
	}
	stages := p.Stages()
	for i, stage := range stages {
		final := i == len(stages)-1
		switch {
		case stage.Name == "" && !final:
			errs = append(errs, fmt.Errorf("render chain stage %d has no name", i))
		case stage.Name != "" && seen[stage.Name]:
			errs = append(errs, fmt.Errorf("stage %q: name already used by an input or stage", stage.Name))
		}
		seen[stage.Name] = true
	}
	return errors.Join(errs...)
}

// ValidateStage checks the i'th stage of [Project.Stages]: its filter, the
// sources of its inputs and the variables it sets or inherits from the
// project. An invalid stage can be skipped while the rest of the project runs.
func (p *Project) ValidateStage(i int) error {
	stages := p.Stages()
	stage := &stages[i]
	filter := p.Filters[stage.Filter]
	if stage.Filter == "" {
		return errors.New("missing filter")
	} else if filter == nil {
		return fmt.Errorf("unknown filter %q", stage.Filter)
	}
	var errs []error
	sources := make(map[string]bool, len(p.Inputs)+i)
	for name := range p.Inputs {
		sources[name] = true
	}
	for _, earlier := range stages[:i] {
		if earlier.Name != "" {
			sources[earlier.Name] = true
		}
	}
	for _, uniformName := range sortedKeys(stage.Inputs) {
		in := stage.Inputs[uniformName]
		if !sources[in.Source] {
			errs = append(errs, fmt.Errorf("input %q: unknown source %q, must be a project input or an earlier stage", uniformName, in.Source))
		}
	}
	checkKind := func(name, setter string, v Variable) {
		val, _, err := v.Build()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s variable %q: %w", setter, name, err))
			return
		}
		decl, ok := filter.Variables[name]
		if !ok {
			return
		}
		def, _, err := decl.Build()
		if err != nil {
			return // Reported by the filter.
		}
		if val.Kind() != def.Kind() {
			errs = append(errs, fmt.Errorf("%s variable %q: filter declares %s, %s sets %s", setter, name, def.Kind(), setter, val.Kind()))
		}
	}
	for _, name := range sortedKeys(p.Variables) {
		_, declared := filter.Variables[name]
		_, overridden := stage.Variables[name]
		if declared && !overridden {
			checkKind(name, "project", p.Variables[name])
		}
	}
	for _, name := range sortedKeys(stage.Variables) {
		checkKind(name, "stage", stage.Variables[name])
	}
	return errors.Join(errs...)
}

func (f *Filter) validate() error {
	if f == nil {
		return errors.New("empty filter")
	}
	var errs []error
	if len(f.FragmentShader) == 0 {
		errs = append(errs, errors.New("no fragment shader"))
	}
	for _, name := range sortedKeys(f.Variables) {
		_, _, err := f.Variables[name].Build()
		if err != nil {
			errs = append(errs, fmt.Errorf("variable %q: %w", name, err))
		}
	}
	seen := make(map[string]bool, len(f.Inputs))
	for _, in := range f.Inputs {
		if seen[in] {
			errs = append(errs, fmt.Errorf("duplicate input %q", in))
		} else if _, ok := f.Variables[in]; ok {
			errs = append(errs, fmt.Errorf("input %q shadows a variable", in))
		}
		seen[in] = true
	}
	return errors.Join(errs...)
}

func (v View) validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("size must be positive, got %dx%d", v.Width, v.Height)
	} else if v.TargetFPS < 0 || math.IsNaN(v.TargetFPS) {
		return fmt.Errorf("negative target fps %g", v.TargetFPS)
	} else if v.LockedSpeed && v.TargetFPS == 0 {
		return errors.New("locked speed requires a target fps")
	} else if v.Screenshot && v.ScreenshotPath == "" {
		return errors.New("screenshot enabled without screenshot_path")
	}
	return nil
}

func (s Server) validate() error {
	if !s.Enable {
		return nil
	} else if s.Port <= 0 || s.Port > math.MaxUint16 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	return nil
}

func (in Input) validate() error {
	switch in.Type {
	case InputPicture, InputCam:
		if in.Path == "" {
			return fmt.Errorf("%s input requires a path", in.Type)
		}
	case InputVideo:
		if in.Path == "" {
			return errors.New("video input requires a path")
		} else if (in.Speed.FPS > 0) == (in.Speed.FPB > 0) {
			return errors.New("video input requires exactly one of speed.fps or speed.fpb")
		}
	case InputMidi:
		if in.Name == "" {
			return errors.New("midi input requires a name")
		}
	default:
		return errors.New("missing input type")
	}
	if in.Width < 0 || in.Height < 0 {
		return fmt.Errorf("negative size %dx%d", in.Width, in.Height)
	}
	return nil
}

// sortedKeys returns the keys of m sorted so errors are reported in a stable order.
func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
