package glbuild

import (
	"errors"
	"fmt"

	"github.com/soypat/glvj/uniform"
)

// Decl is a named value declared in a [Header].
type Decl struct {
	Name  string
	Value uniform.Value
	// Const declares a constant initialized to Value instead of a uniform.
	Const bool
}

// Header is the declaration block generated in front of a stage's user shader code.
type Header struct {
	// Version is the version directive. VersionStr is used if empty.
	Version string
	// Defines are written as #define Name Value in order.
	Defines [][2]string
	// Prelude is written verbatim after the defines.
	Prelude string
	Decls   []Decl
}

// AppendTo appends the header to dst. Declarations are written in order and
// every declaration error is returned joined.
func (h *Header) AppendTo(dst []byte) ([]byte, error) {
	version := h.Version
	if version == "" {
		version = VersionStr
	}
	dst = append(dst, version...)
	if version[len(version)-1] != '\n' {
		dst = append(dst, '\n')
	}
	for _, def := range h.Defines {
		dst = AppendDefineDecl(dst, def[0], def[1])
	}
	dst = append(dst, h.Prelude...)
	var errs []error
	seen := make(map[string]bool, len(h.Decls))
	for _, decl := range h.Decls {
		if seen[decl.Name] {
			errs = append(errs, fmt.Errorf("duplicate declaration %q", decl.Name))
			continue
		}
		seen[decl.Name] = true
		var err error
		if decl.Const {
			dst, err = AppendConstDecl(dst, decl.Name, decl.Value)
		} else {
			dst, err = AppendUniformDecl(dst, decl.Name, decl.Value)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return dst, errors.Join(errs...)
}

// String returns the header text, ignoring declaration errors.
func (h *Header) String() string {
	b, _ := h.AppendTo(nil)
	return string(b)
}
