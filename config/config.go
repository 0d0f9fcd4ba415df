// Package config loads glvj project files.
//
// A project lists the inputs, filters and render stages of a performance and
// is written in TOML or YAML, chosen by file extension. Filters are either
// declared inline in the project or loaded from a filter.toml/filter.yaml
// file in the project's filters directory or the user's [FiltersDir].
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file syntax.
type Format uint8

const (
	TOML Format = iota
	YAML
)

// FormatOf returns the format for the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return 0, fmt.Errorf("unsupported configuration file extension %q, want .toml, .yaml or .yml", filepath.Ext(path))
}

// Project is the root of a project file.
type Project struct {
	BPM    float64          `toml:"bpm" yaml:"bpm"`
	View   View             `toml:"view" yaml:"view"`
	Server Server           `toml:"server" yaml:"server"`
	Inputs map[string]Input `toml:"inputs" yaml:"inputs"`
	// Variables are set on every stage that does not set them itself.
	Variables   map[string]Variable `toml:"variables" yaml:"variables"`
	Filters     map[string]*Filter  `toml:"filters" yaml:"filters"`
	RenderChain []Stage             `toml:"render_chain" yaml:"render_chain"`
	FinalStage  Stage               `toml:"final_stage" yaml:"final_stage"`

	// Dir is the directory of the project file. Relative paths resolve against it.
	Dir string `toml:"-" yaml:"-"`
}

type View struct {
	Width      int     `toml:"width" yaml:"width"`
	Height     int     `toml:"height" yaml:"height"`
	Fullscreen bool    `toml:"fullscreen" yaml:"fullscreen"`
	TargetFPS  float64 `toml:"target_fps" yaml:"target_fps"`
	// Dynamic lets the view be resized, render targets follow the window size.
	Dynamic              bool   `toml:"dynamic" yaml:"dynamic"`
	VSync                bool   `toml:"vsync" yaml:"vsync"`
	Screenshot           bool   `toml:"screenshot" yaml:"screenshot"`
	ScreenshotPath       string `toml:"screenshot_path" yaml:"screenshot_path"`
	ScreenshotFrameCount int    `toml:"screenshot_frame_count" yaml:"screenshot_frame_count"`
	// LockedSpeed advances time by exactly 1/TargetFPS per frame instead of wall time.
	LockedSpeed bool `toml:"locked_speed" yaml:"locked_speed"`
}

// Server configures the remote control server. It is parsed and validated
// but glvj does not run a server yet.
type Server struct {
	IP     string `toml:"ip" yaml:"ip"`
	Port   int    `toml:"port" yaml:"port"`
	Enable bool   `toml:"enable" yaml:"enable"`
}

// Input is a source of textures or values shared by stages.
type Input struct {
	Type InputType `toml:"type" yaml:"type"`
	// Path of picture, video and cam inputs.
	Path string `toml:"path" yaml:"path"`
	// Name of midi inputs.
	Name   string `toml:"name" yaml:"name"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	Speed  Speed  `toml:"speed" yaml:"speed"`
}

// Speed is the playback speed of video inputs, either in frames per second
// or frames per beat. Exactly one must be set.
type Speed struct {
	FPS float64 `toml:"fps" yaml:"fps"`
	FPB float64 `toml:"fpb" yaml:"fpb"`
}

// Stage is a render pass running a filter.
type Stage struct {
	Name   string `toml:"name" yaml:"name"`
	Filter string `toml:"filter" yaml:"filter"`
	// Inputs maps the filter's sampler uniform names to project inputs or earlier stages.
	Inputs    map[string]SampledInput `toml:"inputs" yaml:"inputs"`
	Variables map[string]Variable     `toml:"variables" yaml:"variables"`
	Precision Precision               `toml:"precision" yaml:"precision"`
}

type SampledInput struct {
	// Source is the name of a project input or of an earlier stage.
	Source  string  `toml:"source" yaml:"source"`
	Sampler Sampler `toml:"sampler" yaml:"sampler"`
}

// Filter is a reusable shader program with declared inputs and variables.
type Filter struct {
	// Inputs are the sampler uniform names the filter reads.
	Inputs []string `toml:"inputs" yaml:"inputs"`
	// VertexShader is optional, a full screen quad shader is used if empty.
	VertexShader   []string                  `toml:"vertex_shader" yaml:"vertex_shader"`
	FragmentShader []string                  `toml:"fragment_shader" yaml:"fragment_shader"`
	Variables      map[string]FilterVariable `toml:"variables" yaml:"variables"`
	// LiveReload defaults to true.
	LiveReload *bool `toml:"live_reload" yaml:"live_reload"`

	// Dir is the directory shader paths resolve against.
	Dir string `toml:"-" yaml:"-"`
}

// LiveReloadEnabled reports whether the filter's shader files are reloaded on change.
func (f *Filter) LiveReloadEnabled() bool { return f.LiveReload == nil || *f.LiveReload }

// FilterVariable declares a variable of a filter with its default value.
type FilterVariable struct {
	Kind    string       `toml:"kind" yaml:"kind"`
	Default any          `toml:"default" yaml:"default"`
	Range   *RangeConfig `toml:"range" yaml:"range"`
}

type RangeConfig struct {
	// Kind is int, float or color.
	Kind string  `toml:"kind" yaml:"kind"`
	Min  float64 `toml:"min" yaml:"min"`
	Max  float64 `toml:"max" yaml:"max"`
	Step float64 `toml:"step" yaml:"step"`
}

// Variable is a value bound to a stage uniform, optionally animated.
type Variable struct {
	Kind  string `toml:"kind" yaml:"kind"`
	Value any    `toml:"value" yaml:"value"`
	// Automation holds zero to four LFOs.
	Automation []LFO `toml:"automation" yaml:"automation"`
	// Const declares the variable as a shader constant. Constants can not be
	// animated and changing them recompiles the stage.
	Const bool `toml:"const" yaml:"const"`
}

type LFO struct {
	Shape       string  `toml:"shape" yaml:"shape"`
	Numerator   float64 `toml:"numerator" yaml:"numerator"`
	Denominator float64 `toml:"denominator" yaml:"denominator"`
	Phase       float64 `toml:"phase" yaml:"phase"`
	Amplitude   float64 `toml:"amplitude" yaml:"amplitude"`
	Signed      bool    `toml:"signed" yaml:"signed"`
}

// Default returns the project with the default settings applied before decoding.
func Default() Project {
	return Project{
		BPM: 120,
		View: View{
			Width:     1280,
			Height:    720,
			TargetFPS: 60,
			VSync:     true,
		},
		Server: Server{IP: "127.0.0.1", Port: 8910},
	}
}

// Load reads the project at path, loads the filters its stages reference
// and validates the result. A leading ~ in path is expanded.
func Load(path string) (*Project, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	for _, f := range p.Filters {
		if f != nil && f.Dir == "" {
			f.Dir = p.Dir
		}
	}
	err = p.loadFilters()
	if err != nil {
		return nil, err
	}
	err = p.Validate()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode decodes a project without validating it or loading external filters.
func Decode(data []byte, format Format) (*Project, error) {
	p := Default()
	err := decode(data, format, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFilter reads a filter file. Its shader paths resolve against the file's directory.
func LoadFilter(path string) (*Filter, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Filter
	err = decode(data, format, &f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func decode(data []byte, format Format, v any) error {
	switch format {
	case TOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err := dec.Decode(v)
		if errors.Is(err, io.EOF) {
			return nil // Empty document.
		}
		return err
	}
	return fmt.Errorf("unknown format %d", format)
}

var filterFileNames = [...]string{"filter.toml", "filter.yaml", "filter.yml"}

// loadFilters loads the filters referenced by stages that are not declared
// inline. A filter named x is searched for in <project dir>/filters/x and
// then in FiltersDir()/x.
func (p *Project) loadFilters() error {
	if p.Filters == nil {
		p.Filters = make(map[string]*Filter)
	}
	dirs := []string{filepath.Join(p.Dir, "filters")}
	if userFilters, err := FiltersDir(); err == nil {
		dirs = append(dirs, userFilters)
	}
	var errs []error
	for _, stage := range p.Stages() {
		if stage.Filter == "" || p.Filters[stage.Filter] != nil {
			continue
		}
		path, ok := findFilter(dirs, stage.Filter)
		if !ok {
			continue // Reported by ValidateStage.
		}
		f, err := LoadFilter(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.Filters[stage.Filter] = f
	}
	return errors.Join(errs...)
}

func findFilter(dirs []string, name string) (string, bool) {
	for _, dir := range dirs {
		for _, fname := range filterFileNames {
			path := filepath.Join(dir, name, fname)
			if _, err := os.Stat(path); err == nil {
				return path, true
			}
		}
	}
	return "", false
}

// Stages returns the render chain stages followed by the final stage.
func (p *Project) Stages() []Stage {
	stages := make([]Stage, 0, len(p.RenderChain)+1)
	stages = append(stages, p.RenderChain...)
	return append(stages, p.FinalStage)
}
