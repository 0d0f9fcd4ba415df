package shader_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/soypat/glvj/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// writeFile writes content to path and forces its modification time so tests
// do not depend on file system timestamp resolution.
func writeFile(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestComposerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.glsl")
	pathB := filepath.Join(dir, "b.glsl")
	writeFile(t, pathA, "A", epoch)
	writeFile(t, pathB, "B", epoch)
	a, err := shader.OpenFile(pathA, true)
	require.NoError(t, err)
	b, err := shader.OpenFile(pathB, true)
	require.NoError(t, err)

	var c shader.Composer
	c.Push(a)
	c.Push(b)
	assert.Equal(t, "A\nB\n", c.Text())

	changed, err := c.CheckChanges()
	require.NoError(t, err)
	assert.False(t, changed)

	writeFile(t, pathB, "B2", epoch.Add(time.Second))
	changed, err = c.CheckChanges()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "A\nB2\n", c.Text())
	assert.Equal(t, "A", a.Text())

	changed, err = c.CheckChanges()
	require.NoError(t, err)
	assert.False(t, changed, "second check with no modification")
}

func TestInsertClamped(t *testing.T) {
	c := shader.NewComposer(shader.NewStatic("b"))
	c.Insert(100, shader.NewStatic("c"))
	c.Insert(0, shader.NewStatic("a"))
	c.Insert(-5, shader.NewStatic("0"))
	c.Insert(2, shader.NewStatic("x"))
	assert.Equal(t, "0\na\nx\nb\nc\n", c.Text())
	assert.Equal(t, 5, c.Len())
}

func TestComposerNilSource(t *testing.T) {
	assert.PanicsWithValue(t, "shader: nil Source", func() { shader.NewComposer(shader.NewStatic("a"), nil) })
	c := shader.NewComposer()
	assert.PanicsWithValue(t, "shader: nil Source", func() { c.Push(nil) })
	assert.PanicsWithValue(t, "shader: nil Source", func() { c.Insert(0, nil) })
	assert.Zero(t, c.Len())
}

func TestNestedComposer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inner.glsl")
	writeFile(t, path, "inner", epoch)
	f, err := shader.OpenFile(path, true)
	require.NoError(t, err)

	inner := shader.NewComposer(shader.NewStatic("#define X 1"), f)
	outer := shader.NewComposer(shader.NewStatic("#version 430"), inner, shader.NewStatic("void main(){}"))
	assert.Equal(t, "#version 430\n#define X 1\ninner\n\nvoid main(){}\n", outer.Text())

	writeFile(t, path, "inner2", epoch.Add(time.Minute))
	changed, err := outer.CheckChanges()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "#version 430\n#define X 1\ninner2\n\nvoid main(){}\n", outer.Text())

	assert.ErrorIs(t, outer.Compile(), shader.ErrCompileUnsupported)
	outer.Update()
}

func TestComposerSetText(t *testing.T) {
	c := shader.NewComposer(shader.NewStatic("a"), shader.NewStatic("b"))
	c.SetText("z")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "z\n", c.Text())
}

func TestFileLiveReloadDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.glsl")
	writeFile(t, path, "one", epoch)
	f, err := shader.OpenFile(path, false)
	require.NoError(t, err)
	assert.Equal(t, "one", f.Text())

	writeFile(t, path, "two", epoch.Add(time.Second))
	for range 3 {
		changed, err := f.CheckChanges()
		require.NoError(t, err)
		assert.False(t, changed)
	}
	require.NoError(t, os.Remove(path))
	changed, err := f.CheckChanges()
	assert.NoError(t, err, "disabled reload must not touch the file system")
	assert.False(t, changed)
	assert.Equal(t, "one", f.Text())
}

func TestFileEnableLiveReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.glsl")
	writeFile(t, path, "one", epoch)
	f, err := shader.OpenFile(path, false)
	require.NoError(t, err)
	writeFile(t, path, "two", epoch.Add(time.Second))

	f.SetLiveReload(true)
	changed, err := f.CheckChanges()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "two", f.Text())
}

func TestFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := shader.OpenFile(filepath.Join(dir, "missing.glsl"), true)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	path := filepath.Join(dir, "s.glsl")
	writeFile(t, path, "keep", epoch)
	f, err := shader.OpenFile(path, true)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))
	changed, err := f.CheckChanges()
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.False(t, changed)
	assert.Equal(t, "keep", f.Text(), "last good text is kept")

	writeFile(t, path, "back", epoch.Add(time.Hour))
	changed, err = f.CheckChanges()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "back", f.Text())
}

// A failing child aborts the sweep. Children checked before it keep their
// reloaded text while the composer text is only rebuilt by the next
// successful sweep, even if that sweep sees no new changes.
func TestComposerAbortKeepsPartialReload(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.glsl")
	pathB := filepath.Join(dir, "b.glsl")
	writeFile(t, pathA, "A", epoch)
	writeFile(t, pathB, "B", epoch)
	a, err := shader.OpenFile(pathA, true)
	require.NoError(t, err)
	b, err := shader.OpenFile(pathB, true)
	require.NoError(t, err)
	c := shader.NewComposer(a, b)

	writeFile(t, pathA, "A2", epoch.Add(time.Second))
	require.NoError(t, os.Remove(pathB))
	changed, err := c.CheckChanges()
	require.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, "A\nB\n", c.Text(), "aborted sweep does not rebuild")
	assert.Equal(t, "A2", a.Text(), "earlier child keeps its reload")

	// Restore b exactly as it was so the next sweep sees no child change.
	writeFile(t, pathB, "B", epoch)
	changed, err = c.CheckChanges()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "A2\nB\n", c.Text())

	changed, err = c.CheckChanges()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestExpandIncludes(t *testing.T) {
	fsys := fstest.MapFS{
		"lib/noise.glsl": {Data: []byte("float noise(vec2 p);\n#include \"hash.glsl\"\n")},
		"lib/hash.glsl":  {Data: []byte("float hash(float x);")},
		"common.glsl":    {Data: []byte("#define PI 3.14159")},
	}
	code := "#version 430\n#include \"common.glsl\"\n  #include \"lib/noise.glsl\"\nvoid main(){}"
	got, err := shader.ExpandIncludes(fsys, ".", code)
	require.NoError(t, err)
	want := "#version 430\n// #include \"common.glsl\"\n#define PI 3.14159\n// #include \"lib/noise.glsl\"\nfloat noise(vec2 p);\n// #include \"hash.glsl\"\nfloat hash(float x);\nvoid main(){}"
	assert.Equal(t, want, got)

	_, err = shader.ExpandIncludes(fsys, ".", "#include \"nope.glsl\"")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = shader.ExpandIncludes(fsys, ".", "#include \"common.glsl")
	assert.Error(t, err)

	cyclic := fstest.MapFS{"a.glsl": {Data: []byte("#include \"a.glsl\"")}}
	_, err = shader.ExpandIncludes(cyclic, ".", "#include \"a.glsl\"")
	assert.Error(t, err)
}

func TestFileIncludes(t *testing.T) {
	dir := t.TempDir()
	libs := filepath.Join(dir, "libs")
	require.NoError(t, os.Mkdir(libs, 0o755))
	main := filepath.Join(dir, "main.frag")
	lib := filepath.Join(libs, "palette.glsl")
	writeFile(t, lib, "vec3 palette(float t);", epoch)
	writeFile(t, main, "#include \"palette.glsl\"\nvoid main(){}", epoch)

	f, err := shader.NewFile(shader.FileConfig{
		Path:           main,
		LiveReload:     true,
		ExpandIncludes: true,
		IncludeDirs:    []string{libs},
	})
	require.NoError(t, err)
	assert.Equal(t, "// #include \"palette.glsl\"\nvec3 palette(float t);\nvoid main(){}", f.Text())

	writeFile(t, lib, "vec3 palette(float t, vec3 a);", epoch.Add(time.Second))
	changed, err := f.CheckChanges()
	require.NoError(t, err)
	assert.True(t, changed, "change of an included file")
	assert.Contains(t, f.Text(), "vec3 a")
}

func TestFileWatcher(t *testing.T) {
	w, err := shader.NewWatcher(nil)
	require.NoError(t, err)
	defer w.Close()
	dir := t.TempDir()
	path := filepath.Join(dir, "w.glsl")
	writeFile(t, path, "one", epoch)
	f, err := shader.NewFile(shader.FileConfig{Path: path, LiveReload: true, Watcher: w})
	require.NoError(t, err)

	changed, err := f.CheckChanges()
	require.NoError(t, err)
	assert.False(t, changed)

	writeFile(t, path, "two", epoch.Add(time.Second))
	// The watcher may fire before the write completes, poll until the final text lands.
	require.Eventually(t, func() bool {
		_, err := f.CheckChanges()
		return err == nil && f.Text() == "two"
	}, 5*time.Second, 10*time.Millisecond)
	assert.NoError(t, w.Close())
}

func TestStatic(t *testing.T) {
	s := shader.NewStatic("x")
	changed, err := s.CheckChanges()
	require.NoError(t, err)
	assert.False(t, changed)
	s.SetText("y")
	assert.Equal(t, "y", s.Text())
}
