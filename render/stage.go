package render

import (
	"errors"
	"fmt"
	"sort"

	"github.com/soypat/glvj/automation"
	"github.com/soypat/glvj/config"
	"github.com/soypat/glvj/glbuild"
	"github.com/soypat/glvj/glbuild/glsllib"
	"github.com/soypat/glvj/shader"
	"github.com/soypat/glvj/uniform"
)

// Built-in uniforms declared in every fragment shader.
const (
	UniformTime       = "iTime"
	UniformBeat       = "iBeat"
	UniformResolution = "iResolution"
)

// DefineFinalStage is defined to 1 in the fragment shader of the final stage.
const DefineFinalStage = "GLVJ_FINAL_STAGE"

// StageConfig configures a [Stage].
type StageConfig struct {
	Stage  config.Stage
	Filter *config.Filter
	// Final marks the stage that renders to the screen.
	Final bool
	// Globals are project variables. They override the defaults of the
	// filter variables of the same name and are overridden by stage variables.
	Globals map[string]config.Variable
	Watcher *shader.Watcher
	// LibDirs are searched for #include names not found next to the including file.
	// The embedded glsllib snippets are searched last.
	LibDirs []string
}

// Variable is a stage variable. Base is the authored value, automation is
// applied on top of it every frame and never modifies it.
type Variable struct {
	Name       string
	Base       uniform.Value
	Automation automation.Automation
	Range      uniform.Range
	// Const variables are compiled into the shader as constants.
	Const bool
}

// Input binds a sampler uniform to a project input or an earlier stage.
type Input struct {
	Uniform string
	// Source is empty for filter inputs the stage leaves unbound.
	Source  string
	Sampler config.Sampler
}

// Binding is a uniform value ready to upload.
type Binding struct {
	Name  string
	Value uniform.Value
}

// Stage is a render pass: a filter's shaders composed behind a generated
// declaration header, plus the variables feeding its uniforms.
type Stage struct {
	name      string
	final     bool
	precision config.Precision
	inputs    []Input
	vars      []*Variable
	byName    map[string]*Variable

	header   *declSource
	fragment *shader.Composer
	vertex   shader.Source
}

// NewStage builds the stage variables and opens the filter's shader files.
func NewStage(cfg StageConfig) (*Stage, error) {
	if cfg.Filter == nil {
		return nil, errors.New("render: nil filter")
	}
	s := &Stage{
		name:      cfg.Stage.Name,
		final:     cfg.Final,
		precision: cfg.Stage.Precision,
		byName:    make(map[string]*Variable),
	}
	err := s.buildVariables(cfg)
	if err != nil {
		return nil, err
	}
	s.buildInputs(cfg)
	s.header = &declSource{}
	err = s.updateHeader()
	if err != nil {
		return nil, err
	}

	vertPaths, fragPaths, err := cfg.Filter.ShaderPaths()
	if err != nil {
		return nil, err
	}
	if len(fragPaths) == 0 {
		return nil, errors.New("render: filter has no fragment shader")
	}
	files := func(paths []string) (*shader.Composer, error) {
		c := shader.NewComposer()
		for _, path := range paths {
			f, err := shader.NewFile(shader.FileConfig{
				Path:           path,
				LiveReload:     cfg.Filter.LiveReloadEnabled(),
				Watcher:        cfg.Watcher,
				ExpandIncludes: true,
				IncludeDirs:    cfg.LibDirs,
				IncludeFS:      glsllib.FS(),
			})
			if err != nil {
				return nil, err
			}
			c.Push(f)
		}
		return c, nil
	}
	frag, err := files(fragPaths)
	if err != nil {
		return nil, err
	}
	frag.Insert(0, s.header)
	s.header.changed = false // Already composed.
	s.fragment = frag
	if len(vertPaths) == 0 {
		s.vertex = shader.NewStatic(glbuild.DefaultVertexShader)
	} else {
		s.vertex, err = files(vertPaths)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Stage) buildVariables(cfg StageConfig) error {
	var errs []error
	for name, fv := range cfg.Filter.Variables {
		def, rng, err := fv.Build()
		if err != nil {
			errs = append(errs, fmt.Errorf("filter variable %q: %w", name, err))
			continue
		}
		s.byName[name] = &Variable{Name: name, Base: def, Range: rng}
	}
	set := func(name string, cv config.Variable, declaredOnly bool) {
		v := s.byName[name]
		if v == nil && declaredOnly {
			return
		}
		base, a, err := cv.Build()
		if err != nil {
			errs = append(errs, fmt.Errorf("variable %q: %w", name, err))
			return
		}
		if v == nil {
			v = &Variable{Name: name, Range: uniform.NoRange()}
			s.byName[name] = v
		} else if v.Base.Kind() != base.Kind() {
			errs = append(errs, fmt.Errorf("variable %q: filter declares %s, got %s", name, v.Base.Kind(), base.Kind()))
			return
		}
		v.Base = v.Range.Clamp(base)
		v.Automation = a
		v.Const = cv.Const
	}
	for name, cv := range cfg.Globals {
		set(name, cv, true)
	}
	for name, cv := range cfg.Stage.Variables {
		set(name, cv, false)
	}
	for _, v := range s.byName {
		s.vars = append(s.vars, v)
	}
	sort.Slice(s.vars, func(i, j int) bool { return s.vars[i].Name < s.vars[j].Name })
	return errors.Join(errs...)
}

func (s *Stage) buildInputs(cfg StageConfig) {
	for name, in := range cfg.Stage.Inputs {
		s.inputs = append(s.inputs, Input{Uniform: name, Source: in.Source, Sampler: in.Sampler})
	}
	for _, name := range cfg.Filter.Inputs {
		if _, ok := cfg.Stage.Inputs[name]; !ok {
			s.inputs = append(s.inputs, Input{Uniform: name})
		}
	}
	sort.Slice(s.inputs, func(i, j int) bool { return s.inputs[i].Uniform < s.inputs[j].Uniform })
}

// updateHeader regenerates the declarations placed in front of the fragment shader.
func (s *Stage) updateHeader() error {
	h := glbuild.Header{
		Prelude: glbuild.FragmentPrelude,
		Decls: []glbuild.Decl{
			{Name: UniformTime, Value: uniform.Float(0)},
			{Name: UniformBeat, Value: uniform.Float(0)},
			{Name: UniformResolution, Value: uniform.Float2(0, 0)},
		},
	}
	if s.final {
		h.Defines = append(h.Defines, [2]string{DefineFinalStage, "1"})
	}
	for _, in := range s.inputs {
		h.Decls = append(h.Decls, glbuild.Decl{Name: in.Uniform, Value: uniform.Texture(0, 0, nil)})
	}
	for _, v := range s.vars {
		h.Decls = append(h.Decls, glbuild.Decl{Name: v.Name, Value: v.Base, Const: v.Const})
	}
	b, err := h.AppendTo(nil)
	if err != nil {
		return err
	}
	s.header.SetText(string(b))
	return nil
}

// Name returns the configured stage name, empty for an unnamed final stage.
func (s *Stage) Name() string { return s.name }

// Label returns a name for the stage suitable for logs.
func (s *Stage) Label() string {
	if s.name == "" && s.final {
		return "final_stage"
	}
	return s.name
}

func (s *Stage) Final() bool                 { return s.final }
func (s *Stage) Precision() config.Precision { return s.precision }

// Inputs returns the stage's sampler bindings sorted by uniform name.
// The slice must not be modified.
func (s *Stage) Inputs() []Input { return s.inputs }

// Variable returns the named variable or nil.
func (s *Stage) Variable(name string) *Variable { return s.byName[name] }

// SetVariable replaces the base value of a variable. The value must have the
// variable's kind and is clamped to its range. Changing a constant variable
// regenerates the shader header, the next CheckChanges reports the change.
func (s *Stage) SetVariable(name string, val uniform.Value) error {
	v := s.byName[name]
	if v == nil {
		return fmt.Errorf("stage %s: unknown variable %q", s.Label(), name)
	} else if v.Base.Kind() != val.Kind() {
		return fmt.Errorf("stage %s: variable %q is %s, got %s", s.Label(), name, v.Base.Kind(), val.Kind())
	}
	prev := v.Base
	v.Base = v.Range.Clamp(val)
	if !v.Const {
		return nil
	}
	err := s.updateHeader()
	if err != nil {
		v.Base = prev
		return err
	}
	return nil
}

// SetAutomation replaces the automation of a non constant variable.
func (s *Stage) SetAutomation(name string, a automation.Automation) error {
	v := s.byName[name]
	if v == nil {
		return fmt.Errorf("stage %s: unknown variable %q", s.Label(), name)
	} else if v.Const && !a.IsNone() {
		return fmt.Errorf("stage %s: constant %q can not be automated", s.Label(), name)
	}
	err := a.Validate()
	if err != nil {
		return err
	}
	v.Automation = a
	return nil
}

// AppendUniforms appends the built-in uniforms and the current value of every
// non constant variable, with automation applied at the clock's beat.
func (s *Stage) AppendUniforms(dst []Binding, clk *Clock, width, height int) []Binding {
	dst = append(dst,
		Binding{Name: UniformTime, Value: uniform.Float(float32(clk.Time()))},
		Binding{Name: UniformBeat, Value: uniform.Float(float32(clk.Beat()))},
		Binding{Name: UniformResolution, Value: uniform.Float2(float32(width), float32(height))},
	)
	beat := clk.Beat()
	for _, v := range s.vars {
		if v.Const {
			continue
		}
		val := v.Base
		if animated, ok := v.Automation.Apply(v.Base, beat); ok {
			val = animated
		}
		dst = append(dst, Binding{Name: v.Name, Value: val})
	}
	return dst
}

// CheckChanges polls the stage's shader sources. On error the sources keep
// their last good text and the error is returned.
func (s *Stage) CheckChanges() (bool, error) {
	fragChanged, err := s.fragment.CheckChanges()
	if err != nil {
		return false, err
	}
	vertChanged, err := s.vertex.CheckChanges()
	if err != nil {
		return false, err
	}
	return fragChanged || vertChanged, nil
}

// FragmentSource returns the composed fragment shader text.
func (s *Stage) FragmentSource() string { return s.fragment.Text() }

// VertexSource returns the vertex shader text.
func (s *Stage) VertexSource() string { return s.vertex.Text() }

// declSource is the generated header of a stage. It reports a change once
// after each SetText so the fragment composer rebuilds.
type declSource struct {
	text    string
	changed bool
}

func (d *declSource) Text() string { return d.text }

func (d *declSource) SetText(text string) {
	d.changed = d.changed || text != d.text
	d.text = text
}

func (d *declSource) CheckChanges() (bool, error) {
	changed := d.changed
	d.changed = false
	return changed, nil
}

func (d *declSource) Update() {}
