package shader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// FileConfig configures a [File] source.
type FileConfig struct {
	Path string
	// LiveReload enables reloading the file when its modification time changes.
	// Files with live reload disabled never report changes.
	LiveReload bool
	// Watcher is optional. When set, the file is only stat'ed after the watcher
	// received an event for it or one of its includes.
	Watcher *Watcher
	// ExpandIncludes enables #include "name" expansion. Names are looked up
	// next to the including file and then in IncludeDirs, in order.
	ExpandIncludes bool
	IncludeDirs    []string
	// IncludeFS is searched after IncludeDirs. Files read from it are not watched.
	IncludeFS fs.FS
}

// File is a [Source] backed by a file on disk.
type File struct {
	path       string
	liveReload bool
	watcher    *Watcher
	includes   bool
	libDirs    []string
	libFS      fs.FS

	text    string
	modTime time.Time
	deps    []fileStamp
	gens    []uint64 // Watcher generations for path followed by deps.
}

type fileStamp struct {
	path    string
	modTime time.Time
}

// OpenFile reads the shader file at path.
func OpenFile(path string, liveReload bool) (*File, error) {
	return NewFile(FileConfig{Path: path, LiveReload: liveReload})
}

// NewFile reads the file described by cfg.
func NewFile(cfg FileConfig) (*File, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("shader: empty file path")
	}
	f := &File{
		path:       cfg.Path,
		liveReload: cfg.LiveReload,
		watcher:    cfg.Watcher,
		includes:   cfg.ExpandIncludes,
		libDirs:    cfg.IncludeDirs,
		libFS:      cfg.IncludeFS,
	}
	var gens []uint64
	if f.watcher != nil {
		gens = f.watcherGens()
	}
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, err
	}
	err = f.reload(info.ModTime(), gens)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the path the file was opened with.
func (f *File) Path() string { return f.path }

// LiveReload reports whether the file is reloaded on change.
func (f *File) LiveReload() bool { return f.liveReload }

// SetLiveReload enables or disables reloading. Changes made to the file while
// reloading was disabled are reported by the first CheckChanges after enabling it.
func (f *File) SetLiveReload(enable bool) { f.liveReload = enable }

func (f *File) Text() string { return f.text }

// SetText replaces the in-memory text. The text is overwritten on the next reload.
func (f *File) SetText(text string) { f.text = text }

// CheckChanges re-reads the file if its modification time, or that of any
// file it includes, differs from the one seen on the last read. It reports
// whether the file was reloaded. On error the previous text is kept and the
// same change is reported again on the next successful call.
func (f *File) CheckChanges() (bool, error) {
	if !f.liveReload {
		return false, nil
	}
	var gens []uint64
	if f.watcher != nil {
		gens = f.watcherGens()
		if slices.Equal(gens, f.gens) {
			return false, nil
		}
	}
	info, err := os.Stat(f.path)
	if err != nil {
		return false, err
	}
	changed := !info.ModTime().Equal(f.modTime)
	for i := 0; i < len(f.deps) && !changed; i++ {
		dep, err := os.Stat(f.deps[i].path)
		if err != nil {
			return false, err
		}
		changed = !dep.ModTime().Equal(f.deps[i].modTime)
	}
	if !changed {
		if gens != nil {
			f.gens = gens
		}
		return false, nil
	}
	err = f.reload(info.ModTime(), gens)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *File) Update() {}

// reload reads the file. gens are the watcher generations of the watched
// paths taken before modTime was read, events after them are not marked as seen.
func (f *File) reload(modTime time.Time, gens []uint64) error {
	seen := make(map[string]uint64, len(gens))
	for i, p := range f.watchedPaths() {
		if i < len(gens) {
			seen[p] = gens[i]
		}
	}
	b, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	text := string(b)
	var depPaths []string
	if f.includes {
		text, depPaths, err = expandIncludesOS(text, filepath.Dir(f.path), f.libDirs, f.libFS)
		if err != nil {
			return fmt.Errorf("%s: %w", f.path, err)
		}
	}
	deps := make([]fileStamp, len(depPaths))
	for i, p := range depPaths {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		deps[i] = fileStamp{path: p, modTime: info.ModTime()}
	}
	if f.watcher != nil {
		if err := f.watch(depPaths, seen); err != nil {
			return err
		}
	}
	f.text = text
	f.modTime = modTime
	f.deps = deps
	return nil
}

// watch adds the file and its includes to the watcher. Includes missing from
// seen start at generation zero so the next check stats them.
func (f *File) watch(depPaths []string, seen map[string]uint64) error {
	gens := make([]uint64, 0, 1+len(depPaths))
	for _, p := range append([]string{f.path}, depPaths...) {
		err := f.watcher.Add(p)
		if err != nil {
			return err
		}
		gens = append(gens, seen[p])
	}
	f.gens = gens
	return nil
}

// watcherGens returns the current watcher generations of the file and its
// includes, in the order of f.gens.
func (f *File) watcherGens() []uint64 {
	paths := f.watchedPaths()
	gens := make([]uint64, len(paths))
	for i, p := range paths {
		gens[i], _ = f.watcher.Generation(p)
	}
	return gens
}

func (f *File) watchedPaths() []string {
	paths := make([]string, 0, 1+len(f.deps))
	paths = append(paths, f.path)
	for _, d := range f.deps {
		paths = append(paths, d.path)
	}
	return paths
}
