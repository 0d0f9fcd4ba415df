// Package glsllib holds GLSL helper functions shared by stage shaders. Files
// are included from user shaders with #include "name.glsl" and are resolved
// after the shader's own directory and the user library directory.
package glsllib

import (
	"embed"
	"io/fs"
)

//go:embed *.glsl
var files embed.FS

// FS returns the library files.
func FS() fs.FS { return files }

// Names returns the names of the library files.
func Names() []string {
	entries, _ := files.ReadDir(".")
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}
