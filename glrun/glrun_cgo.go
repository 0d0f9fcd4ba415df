//go:build !tinygo && cgo

package glrun

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/glvj/config"
	"github.com/soypat/glvj/render"
	"github.com/soypat/glvj/uniform"
)

func run(ctx context.Context, pl *render.Pipeline, cfg Config) error {
	window, term, err := startGLFW(&cfg)
	if err != nil {
		return err
	}
	defer term()
	log := cfg.Log

	r := &renderer{
		pl:       pl,
		log:      log,
		programs: make(map[*render.Stage]*program),
		targets:  make(map[string]*target),
		inputs:   make(map[string]*texture),
		quad:     newQuad(),
	}
	defer r.release()
	for _, s := range append([]*render.Stage(nil), pl.Stages()...) {
		r.compile(s)
	}
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		r.handleKey(w, key)
	})

	shots := 0
	timer := newFrameTimer(&cfg)
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		for _, s := range pl.Frame(timer.next()) {
			r.compile(s)
		}
		if len(pl.Stages()) == 0 {
			return fmt.Errorf("glrun: every stage is disabled")
		}
		width, height := window.GetFramebufferSize()
		targetW, targetH := cfg.Width, cfg.Height
		if cfg.Resizable {
			targetW, targetH = width, height
		}
		r.draw(width, height, targetW, targetH)

		if cfg.ScreenshotPath != "" && shots < cfg.ScreenshotFrames {
			pix := make([]byte, 4*width*height)
			gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
			name := ScreenshotName(cfg.ScreenshotPath, shots)
			err = writePNG(name, width, height, pix)
			if err != nil {
				log.Error("screenshot failed", slog.String("file", name), slog.Any("err", err))
			}
			shots++
		}
		window.SwapBuffers()
		glfw.PollEvents()
	}
	return nil
}

func (r *renderer) handleKey(w *glfw.Window, key glfw.Key) {
	pl := r.pl
	clk := pl.Clock()
	var err error
	switch key {
	case glfw.KeyEscape:
		w.SetShouldClose(true)
	case glfw.KeySpace:
		if clk.Paused() {
			err = pl.Play()
		} else {
			err = pl.Pause()
		}
	case glfw.KeyUp:
		pl.SetBPM(clk.BPM()+1, false)
	case glfw.KeyDown:
		pl.SetBPM(max(clk.BPM()-1, 1), false)
	case glfw.KeyS:
		pl.SetBPM(clk.BPM(), true)
	case glfw.KeyR:
		for _, s := range pl.CheckChanges() {
			r.compile(s)
		}
	default:
		return
	}
	if err != nil {
		r.log.Error("input provider", slog.Any("err", err))
	}
	r.log.Debug("key", slog.String("key", glfw.GetKeyName(key, 0)), slog.Float64("bpm", clk.BPM()), slog.Bool("paused", clk.Paused()))
}

type renderer struct {
	pl       *render.Pipeline
	log      *slog.Logger
	programs map[*render.Stage]*program
	targets  map[string]*target // Render targets by stage name.
	inputs   map[string]*texture
	quad     quad
	bindings []render.Binding
}

type program struct {
	prog      glgl.Program
	locations map[string]int32
	pos       uint32
}

// location returns the location of the named uniform, -1 if the program
// does not use it.
func (p *program) location(name string) int32 {
	loc, ok := p.locations[name]
	if !ok {
		var err error
		loc, err = p.prog.UniformLocation(name + "\x00")
		if err != nil {
			loc = -1
		}
		p.locations[name] = loc
	}
	return loc
}

// compile builds the stage's program. On failure the previous program is kept,
// a stage without a previous program is disabled.
func (r *renderer) compile(s *render.Stage) {
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   s.VertexSource() + "\x00",
		Fragment: s.FragmentSource() + "\x00",
	})
	var pos uint32
	if err == nil {
		pos, err = prog.AttribLocation("aPos\x00")
		if err != nil {
			prog.Delete()
		}
	}
	if err != nil {
		if r.programs[s] == nil {
			r.pl.Disable(s, err)
			return
		}
		r.log.Error("shader compile failed, keeping previous program", slog.String("stage", s.Label()), slog.Any("err", err))
		return
	}
	if old := r.programs[s]; old != nil {
		old.prog.Delete()
	}
	r.programs[s] = &program{prog: prog, locations: make(map[string]int32), pos: pos}
}

func (r *renderer) draw(width, height, targetW, targetH int) {
	for name, provided := range r.inputs {
		if v, ok := r.pl.Input(name); ok {
			provided.upload(v)
		}
	}
	clk := r.pl.Clock()
	var failed []*render.Stage
	var failures []error
	for _, s := range r.pl.Stages() {
		p := r.programs[s]
		if p == nil {
			continue
		}
		w, h := width, height
		if s.Final() {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		} else {
			w, h = targetW, targetH
			t := r.targets[s.Name()]
			if t == nil {
				t = &target{}
				r.targets[s.Name()] = t
			}
			err := t.bind(w, h, s.Precision())
			if err != nil {
				failed = append(failed, s)
				failures = append(failures, err)
				continue
			}
		}
		gl.Viewport(0, 0, int32(w), int32(h))
		gl.ClearColor(0, 0, 0, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		p.prog.Bind()

		r.bindings = s.AppendUniforms(r.bindings[:0], clk, w, h)
		for _, b := range r.bindings {
			setUniform(p.location(b.Name), b.Value)
		}
		for unit, in := range s.Inputs() {
			tex := r.source(in.Source)
			gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
			if tex == nil {
				gl.BindTexture(gl.TEXTURE_2D, 0)
			} else {
				tex.bind(in.Sampler)
			}
			gl.Uniform1i(p.location(in.Uniform), int32(unit))
		}
		r.quad.draw(p.pos)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	for i, s := range failed {
		r.pl.Disable(s, failures[i])
	}
	if err := glgl.Err(); err != nil {
		r.log.Error("gl error", slog.Any("err", err))
	}
}

// source returns the texture of a project input or of an earlier stage.
func (r *renderer) source(name string) *texture {
	if name == "" {
		return nil
	}
	if t := r.targets[name]; t != nil {
		return &t.tex
	}
	tex := r.inputs[name]
	if tex == nil {
		// Later changes are uploaded at the start of each frame by draw.
		v, ok := r.pl.Input(name)
		if !ok {
			return nil
		}
		tex = &texture{}
		tex.upload(v)
		r.inputs[name] = tex
	}
	return tex
}

func (r *renderer) release() {
	for _, p := range r.programs {
		p.prog.Delete()
	}
	for _, t := range r.targets {
		t.delete()
	}
	for _, t := range r.inputs {
		t.delete()
	}
	r.quad.delete()
}

type texture struct {
	id     uint32
	width  int
	height int
}

func (t *texture) ensure() {
	if t.id == 0 {
		gl.GenTextures(1, &t.id)
	}
}

// upload replaces the texture contents with a texture value.
func (t *texture) upload(v uniform.Value) {
	if !v.Kind().IsTexture() {
		return
	}
	w, h := v.Dims()
	data := v.Bytes()
	if len(data) == 0 {
		return
	}
	internal := int32(gl.RGBA8)
	if v.Kind() == uniform.KindSrgbTexture {
		internal = gl.SRGB8_ALPHA8
	}
	t.ensure()
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(data))
	t.width, t.height = int(w), int(h)
}

func (t *texture) bind(s config.Sampler) {
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	minFilter, magFilter := int32(gl.LINEAR), int32(gl.LINEAR)
	switch s {
	case config.Nearest:
		minFilter, magFilter = gl.NEAREST, gl.NEAREST
	case config.Mipmaps:
		gl.GenerateMipmap(gl.TEXTURE_2D)
		minFilter = gl.LINEAR_MIPMAP_LINEAR
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
}

func (t *texture) delete() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}

// target is a framebuffer with a texture color attachment.
type target struct {
	fbo       uint32
	tex       texture
	precision config.Precision
}

// bind binds the framebuffer, reallocating its texture when the size or precision changed.
func (t *target) bind(width, height int, precision config.Precision) error {
	if t.fbo != 0 && t.tex.width == width && t.tex.height == height && t.precision == precision {
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
		return nil
	}
	if t.fbo == 0 {
		gl.GenFramebuffers(1, &t.fbo)
	}
	t.tex.ensure()
	internal, xtype := textureFormat(precision)
	gl.BindTexture(gl.TEXTURE_2D, t.tex.id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, gl.RGBA, xtype, nil)
	t.tex.width, t.tex.height = width, height
	t.precision = precision
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.tex.id, 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return fmt.Errorf("glrun: incomplete framebuffer, status 0x%x", status)
	}
	return nil
}

func (t *target) delete() {
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
		t.fbo = 0
	}
	t.tex.delete()
}

// textureFormat returns the internal format and pixel type of a render target.
func textureFormat(p config.Precision) (internal int32, xtype uint32) {
	switch p {
	case config.F16:
		return gl.RGBA16F, gl.HALF_FLOAT
	case config.F32:
		return gl.RGBA32F, gl.FLOAT
	}
	return gl.RGBA8, gl.UNSIGNED_BYTE
}

// quad is a full screen quad made of two triangles.
type quad struct {
	vao, vbo uint32
}

func newQuad() quad {
	var q quad
	gl.GenVertexArrays(1, &q.vao)
	gl.BindVertexArray(q.vao)
	gl.GenBuffers(1, &q.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, q.vbo)
	vertices := []float32{
		-1.0, -1.0,
		1.0, -1.0,
		-1.0, 1.0,
		-1.0, 1.0,
		1.0, -1.0,
		1.0, 1.0,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	return q
}

func (q quad) draw(posAttrib uint32) {
	gl.BindVertexArray(q.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, q.vbo)
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
}

func (q quad) delete() {
	gl.DeleteBuffers(1, &q.vbo)
	gl.DeleteVertexArrays(1, &q.vao)
}

// setUniform uploads v to the bound program. Kinds without a uniform
// representation and unused locations are ignored.
func setUniform(loc int32, v uniform.Value) {
	if loc < 0 {
		return
	}
	k := v.Kind()
	switch {
	case k.IsFloat():
		f := v.Float32s()
		switch k {
		case uniform.KindFloat:
			gl.Uniform1f(loc, f[0])
		case uniform.KindFloat2:
			gl.Uniform2f(loc, f[0], f[1])
		case uniform.KindFloat3:
			gl.Uniform3f(loc, f[0], f[1], f[2])
		case uniform.KindFloat4:
			gl.Uniform4f(loc, f[0], f[1], f[2], f[3])
		}
	case k.IsInt():
		i := v.Int32s()
		switch k {
		case uniform.KindInt:
			gl.Uniform1i(loc, i[0])
		case uniform.KindInt2:
			gl.Uniform2i(loc, i[0], i[1])
		case uniform.KindInt3:
			gl.Uniform3i(loc, i[0], i[1], i[2])
		case uniform.KindInt4:
			gl.Uniform4i(loc, i[0], i[1], i[2], i[3])
		}
	case k.IsMatrix():
		// Values are row-major, GL expects column-major unless transposed.
		f := v.Float32s()
		switch k {
		case uniform.KindMat2:
			gl.UniformMatrix2fv(loc, 1, true, &f[0])
		case uniform.KindMat3:
			gl.UniformMatrix3fv(loc, 1, true, &f[0])
		case uniform.KindMat4:
			gl.UniformMatrix4fv(loc, 1, true, &f[0])
		}
	case k == uniform.KindBool:
		gl.Uniform1i(loc, b2i(v.Bool()))
	case k == uniform.KindFloatArray:
		if f := v.Float32s(); len(f) > 0 {
			gl.Uniform1fv(loc, int32(len(f)), &f[0])
		}
	case k == uniform.KindIntArray:
		if i := v.Int32s(); len(i) > 0 {
			gl.Uniform1iv(loc, int32(len(i)), &i[0])
		}
	case k == uniform.KindBoolArray:
		bs := v.Bools()
		if len(bs) == 0 {
			return
		}
		i := make([]int32, len(bs))
		for j, b := range bs {
			i[j] = b2i(b)
		}
		gl.Uniform1iv(loc, int32(len(i)), &i[0])
	}
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func startGLFW(cfg *Config) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	resizable := glfw.False
	if cfg.Resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	var monitor *glfw.Monitor
	width, height := cfg.Width, cfg.Height
	if cfg.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
		if mode := monitor.GetVideoMode(); mode != nil {
			width, height = mode.Width, mode.Height
		}
	}
	window, err = glfw.CreateWindow(width, height, cfg.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating window: %w", err)
	}
	window.MakeContextCurrent()
	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
