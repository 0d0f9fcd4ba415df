package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// DataDirEnv overrides the data directory returned by [DataDir].
const DataDirEnv = "GLVJ_HOME"

// LibPrefix marks shader paths that resolve in [LibsDir].
const LibPrefix = "lib:"

// DataDir returns the directory holding the user's filters and shader
// libraries: $GLVJ_HOME if set, otherwise glvj under the user configuration directory.
func DataDir() (string, error) {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return homedir.Expand(dir)
	}
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "glvj"), nil
}

// LibsDir returns the directory of shared shader libraries.
func LibsDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "libs"), nil
}

// FiltersDir returns the directory of user filters, one directory per filter.
func FiltersDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "filters"), nil
}

// ResolvePath resolves a path found in a configuration file. Paths prefixed
// with [LibPrefix] resolve in LibsDir, a leading ~ expands to the home
// directory and other relative paths are joined to dir.
func ResolvePath(dir, path string) (string, error) {
	if rest, ok := strings.CutPrefix(path, LibPrefix); ok {
		libs, err := LibsDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(libs, rest), nil
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Join(dir, path), nil
}

// ShaderPaths returns the resolved vertex and fragment shader paths of f.
func (f *Filter) ShaderPaths() (vertex, fragment []string, err error) {
	resolve := func(paths []string) ([]string, error) {
		resolved := make([]string, len(paths))
		for i, p := range paths {
			resolved[i], err = ResolvePath(f.Dir, p)
			if err != nil {
				return nil, err
			}
		}
		return resolved, nil
	}
	vertex, err = resolve(f.VertexShader)
	if err != nil {
		return nil, nil, err
	}
	fragment, err = resolve(f.FragmentShader)
	if err != nil {
		return nil, nil, err
	}
	return vertex, fragment, nil
}
