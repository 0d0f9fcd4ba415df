package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// maxIncludeDepth bounds nested #include expansion.
const maxIncludeDepth = 16

// ExpandIncludes replaces every line of the form
//
//	#include "name"
//
// with the contents of name, read from fsys. name is looked up relative to dir
// first and then from the root of fsys. The directive line is kept as a
// comment so compiler line numbers still point near the right place.
// Included files are expanded recursively.
func ExpandIncludes(fsys fs.FS, dir, code string) (string, error) {
	read := func(from, name string) ([]byte, string, bool, error) {
		for _, try := range []string{path.Join(from, name), path.Clean(name)} {
			b, err := fs.ReadFile(fsys, try)
			if err == nil {
				return b, try, false, nil
			} else if !errors.Is(err, fs.ErrNotExist) {
				return nil, "", false, err
			}
		}
		return nil, "", false, fmt.Errorf("include %q: %w", name, fs.ErrNotExist)
	}
	out, _, err := expandIncludes(code, dir, read, path.Dir, nil, 0)
	return out, err
}

// fsDirPrefix marks the directory of files read from the fallback fs.FS of expandIncludesOS.
const fsDirPrefix = "fs:"

// expandIncludesOS is ExpandIncludes over the operating system file system.
// name is looked up next to the including file, then in each of libDirs and
// finally in fsys if not nil. It also returns the paths of every included
// operating system file, files read from fsys never change.
func expandIncludesOS(code, dir string, libDirs []string, fsys fs.FS) (string, []string, error) {
	read := func(from, name string) ([]byte, string, bool, error) {
		var candidates []string
		if !strings.HasPrefix(from, fsDirPrefix) {
			candidates = append(candidates, filepath.Join(from, name))
		}
		for _, lib := range libDirs {
			candidates = append(candidates, filepath.Join(lib, name))
		}
		for _, try := range candidates {
			b, err := os.ReadFile(try)
			if err == nil {
				return b, try, true, nil
			} else if !errors.Is(err, fs.ErrNotExist) {
				return nil, "", false, err
			}
		}
		if fsys != nil {
			tries := []string{path.Clean(name)}
			if rest, ok := strings.CutPrefix(from, fsDirPrefix); ok {
				tries = append([]string{path.Join(rest, name)}, tries...)
			}
			for _, try := range tries {
				b, err := fs.ReadFile(fsys, try)
				if err == nil {
					return b, fsDirPrefix + try, false, nil
				} else if !errors.Is(err, fs.ErrNotExist) {
					return nil, "", false, err
				}
			}
		}
		return nil, "", false, fmt.Errorf("include %q: %w", name, fs.ErrNotExist)
	}
	dirOf := func(p string) string {
		if rest, ok := strings.CutPrefix(p, fsDirPrefix); ok {
			return fsDirPrefix + path.Dir(rest)
		}
		return filepath.Dir(p)
	}
	return expandIncludes(code, dir, read, dirOf, nil, 0)
}

// readIncludeFunc reads the included file name from the directory of the including
// file. isFile reports whether resolved is an operating system path.
type readIncludeFunc func(dir, name string) (data []byte, resolved string, isFile bool, err error)

func expandIncludes(code, dir string, read readIncludeFunc, dirOf func(string) string, deps []string, depth int) (string, []string, error) {
	if !strings.Contains(code, "#include") {
		return code, deps, nil
	} else if depth >= maxIncludeDepth {
		return "", deps, fmt.Errorf("#include nested deeper than %d, possible include cycle", maxIncludeDepth)
	}
	lines := strings.Split(code, "\n")
	for li := len(lines) - 1; li >= 0; li-- {
		ln := strings.TrimSpace(lines[li])
		if !strings.HasPrefix(ln, `#include "`) {
			continue
		}
		name := ln[len(`#include "`):]
		qi := strings.IndexByte(name, '"')
		if qi < 0 {
			return "", deps, fmt.Errorf("line %d: malformed #include, no closing quote", li+1)
		}
		name = name[:qi]
		b, resolved, isFile, err := read(dir, name)
		if err != nil {
			return "", deps, fmt.Errorf("line %d: %w", li+1, err)
		} else if isFile {
			deps = append(deps, resolved)
		}
		var sub string
		sub, deps, err = expandIncludes(string(b), dirOf(resolved), read, dirOf, deps, depth+1)
		if err != nil {
			return "", deps, fmt.Errorf("%s: %w", name, err)
		}
		lines[li] = "// " + ln
		lines = slices.Insert(lines, li+1, strings.Split(strings.TrimSuffix(sub, "\n"), "\n")...)
	}
	return strings.Join(lines, "\n"), deps, nil
}
