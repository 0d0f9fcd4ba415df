package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/glvj/automation"
	"github.com/soypat/glvj/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectTOML = `
bpm = 128.0

[view]
width = 640
height = 360

[inputs.logo]
type = "picture"
path = "logo.png"

[variables.gain]
kind = "float"
value = 0.5

[[render_chain]]
name = "blur"
filter = "blur"
precision = "f16"
[render_chain.inputs.tex]
source = "logo"
sampler = "nearest"

[final_stage]
filter = "mix"
[final_stage.inputs.a]
source = "blur"
[final_stage.variables.tint]
kind = "float3"
value = [1.0, 0.5, 0.25]
[[final_stage.variables.tint.automation]]
shape = "sine"
numerator = 1.0
denominator = 4.0
amplitude = 0.5

[filters.mix]
inputs = ["a"]
fragment_shader = ["mix.frag"]
[filters.mix.variables.tint]
kind = "float3"
default = [1, 1, 1]
range = {kind = "color"}
`

const blurFilterYAML = `
inputs: [tex]
fragment_shader: ["lib:blur.glsl", blur.frag]
live_reload: false
variables:
  radius:
    kind: int
    default: 3
    range: {kind: int, min: 0, max: 16, step: 1}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadTOML(t *testing.T) {
	home := t.TempDir()
	t.Setenv(DataDirEnv, home)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "project.toml"), projectTOML)
	writeFile(t, filepath.Join(dir, "filters", "blur", "filter.yaml"), blurFilterYAML)

	p, err := Load(filepath.Join(dir, "project.toml"))
	require.NoError(t, err)
	assert.Equal(t, 128.0, p.BPM)
	assert.Equal(t, 640, p.View.Width)
	assert.Equal(t, 60.0, p.View.TargetFPS, "defaults kept for fields not set")
	assert.Equal(t, InputPicture, p.Inputs["logo"].Type)

	stages := p.Stages()
	require.Len(t, stages, 2)
	assert.Equal(t, F16, stages[0].Precision)
	assert.Equal(t, Nearest, stages[0].Inputs["tex"].Sampler)
	assert.Equal(t, Linear, stages[1].Inputs["a"].Sampler)

	blur := p.Filters["blur"]
	require.NotNil(t, blur)
	assert.False(t, blur.LiveReloadEnabled())
	assert.Equal(t, filepath.Join(dir, "filters", "blur"), blur.Dir)
	_, frag, err := blur.ShaderPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(home, "libs", "blur.glsl"),
		filepath.Join(dir, "filters", "blur", "blur.frag"),
	}, frag)

	mix := p.Filters["mix"]
	require.NotNil(t, mix)
	assert.True(t, mix.LiveReloadEnabled())
	assert.Equal(t, p.Dir, mix.Dir)

	val, a, err := p.FinalStage.Variables["tint"].Build()
	require.NoError(t, err)
	assert.Equal(t, uniform.Float3(1, 0.5, 0.25), val)
	require.Equal(t, 1, a.Len())
	assert.Equal(t, automation.Sine, a.LFOs()[0].Shape)

	def, rng, err := blur.Variables["radius"].Build()
	require.NoError(t, err)
	assert.Equal(t, uniform.Int(3), def)
	assert.Equal(t, uniform.IntRange(0, 16, 1), rng)
}

func TestLoadYAMLUserFilter(t *testing.T) {
	home := t.TempDir()
	t.Setenv(DataDirEnv, home)
	writeFile(t, filepath.Join(home, "filters", "solid", "filter.toml"), `fragment_shader = ["solid.frag"]`)
	dir := t.TempDir()
	path := filepath.Join(dir, "show.yml")
	writeFile(t, path, `
bpm: 90
final_stage:
  filter: solid
  variables:
    enabled: {kind: bool, value: true, const: true}
`)
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90.0, p.BPM)
	require.Contains(t, p.Filters, "solid")
	assert.Equal(t, filepath.Join(home, "filters", "solid"), p.Filters["solid"].Dir)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte("bpm = 120.0\ncolour = 3\n"), TOML)
	assert.Error(t, err)
	_, err = Decode([]byte("bpm: 120\ncolour: 3\n"), YAML)
	assert.Error(t, err)

	p, err := Decode(nil, YAML)
	require.NoError(t, err)
	assert.Equal(t, Default(), *p)
}

func TestValidateErrors(t *testing.T) {
	t.Setenv(DataDirEnv, t.TempDir())
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "bpm",
			doc:  "bpm = -1.0\n[final_stage]\nfilter = \"f\"\n[filters.f]\nfragment_shader = [\"a\"]",
			want: "bpm must be positive",
		},
		{
			name: "no fragment shader",
			doc:  "[final_stage]\nfilter = \"f\"\n[filters.f]\ninputs = [\"a\"]",
			want: "no fragment shader",
		},
		{
			name: "duplicate stage",
			doc: `[[render_chain]]
name = "a"
filter = "f"
[[render_chain]]
name = "a"
filter = "f"
[final_stage]
filter = "f"
[filters.f]
fragment_shader = ["x"]`,
			want: "name already used",
		},
		{
			name: "video speed",
			doc:  "[inputs.v]\ntype = \"video\"\npath = \"v.mp4\"\n[final_stage]\nfilter = \"f\"\n[filters.f]\nfragment_shader = [\"x\"]",
			want: "exactly one of speed.fps or speed.fpb",
		},
		{
			name: "automated constant",
			doc: `[variables.c]
kind = "float"
value = 1
const = true
[[variables.c.automation]]
shape = "saw"
numerator = 1.0
denominator = 1.0
amplitude = 1.0
[final_stage]
filter = "f"
[filters.f]
fragment_shader = ["x"]`,
			want: "constant variables can not be automated",
		},
		{
			name: "color range on float",
			doc: `[final_stage]
filter = "f"
[filters.f]
fragment_shader = ["x"]
[filters.f.variables.g]
kind = "float"
default = 1
range = {kind = "color"}`,
			want: "color range does not apply to float values",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "p.toml")
			writeFile(t, path, test.doc)
			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorContains(t, err, test.want)
		})
	}
}

func TestValidateStageErrors(t *testing.T) {
	t.Setenv(DataDirEnv, t.TempDir())
	tests := []struct {
		name  string
		doc   string
		stage int
		want  string
	}{
		{
			name: "unknown filter",
			doc:  "[final_stage]\nfilter = \"nope\"",
			want: `unknown filter "nope"`,
		},
		{
			name: "forward stage reference",
			doc: `[[render_chain]]
name = "a"
filter = "f"
[render_chain.inputs.tex]
source = "b"
[[render_chain]]
name = "b"
filter = "f"
[final_stage]
filter = "f"
[filters.f]
fragment_shader = ["x"]`,
			want:  `unknown source "b"`,
			stage: 0,
		},
		{
			name: "kind mismatch",
			doc: `[final_stage]
filter = "f"
[final_stage.variables.gain]
kind = "int"
value = 1
[filters.f]
fragment_shader = ["x"]
[filters.f.variables.gain]
kind = "float"
default = 1.0`,
			want: "filter declares float, stage sets int",
		},
		{
			name: "zero denominator",
			doc: `[[render_chain]]
name = "bad"
filter = "f"
[render_chain.variables.x]
kind = "float"
value = 1.0
[[render_chain.variables.x.automation]]
shape = "sine"
denominator = 0.0
[final_stage]
filter = "f"
[filters.f]
fragment_shader = ["x"]`,
			want: "denominator",
		},
		{
			name: "project variable kind",
			doc: `[variables.gain]
kind = "int"
value = 2
[final_stage]
filter = "f"
[filters.f]
fragment_shader = ["x"]
[filters.f.variables.gain]
kind = "float"
default = 1.0`,
			want: "project variable \"gain\": filter declares float, project sets int",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "p.toml")
			writeFile(t, path, test.doc)
			p, err := Load(path)
			require.NoError(t, err, "stage errors do not reject the project")
			err = p.ValidateStage(test.stage)
			assert.ErrorContains(t, err, test.want)
			for i := range p.Stages() {
				if i != test.stage {
					assert.NoError(t, p.ValidateStage(i))
				}
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv(DataDirEnv, home)
	got, err := ResolvePath("/proj", "shaders/a.frag")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/proj", "shaders", "a.frag"), got)

	got, err = ResolvePath("/proj", "lib:noise.glsl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "libs", "noise.glsl"), got)

	got, err = ResolvePath("/proj", "/abs/../b.frag")
	require.NoError(t, err)
	assert.Equal(t, "/b.frag", got)
}

func TestEnumText(t *testing.T) {
	var p Precision
	require.NoError(t, p.UnmarshalText([]byte("F32")))
	assert.Equal(t, F32, p)
	assert.Error(t, p.UnmarshalText([]byte("f64")))

	var in InputType
	require.NoError(t, in.UnmarshalText([]byte("Midi")))
	assert.Equal(t, InputMidi, in)
	text, err := in.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "midi", string(text))
}
