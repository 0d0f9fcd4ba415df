// Package shader manages shader source text that is edited while a program
// renders. Sources report whether their text changed since the last check so
// the caller can recompile only when needed, and a [Composer] joins several
// sources into a single compilation unit in a fixed order.
package shader

import "errors"

// Source is a unit of shader text.
type Source interface {
	// Text returns the current text of the source.
	Text() string
	// SetText replaces the current text of the source.
	SetText(text string)
	// CheckChanges reloads the source if its backing storage changed and
	// reports whether the text changed since the last call.
	CheckChanges() (bool, error)
	// Update advances time based state of the source. It is called once per frame.
	Update()
}

// ErrCompileUnsupported is returned when compilation is requested from a
// source. Sources only produce text, compiling is done by the GL backend.
var ErrCompileUnsupported = errors.New("shader: sources can not be compiled, pass their text to the GL backend")

var _ Source = (*Static)(nil) // Interface implementation compile-time checks.
var _ Source = (*File)(nil)
var _ Source = (*Composer)(nil)

// Static is an in-memory [Source] whose text only changes through SetText.
type Static struct {
	text string
}

// NewStatic returns a Static source holding text.
func NewStatic(text string) *Static { return &Static{text: text} }

func (s *Static) Text() string { return s.text }

func (s *Static) SetText(text string) { s.text = text }

// CheckChanges always returns false. Changes made through SetText are
// seen by the parent [Composer] on the next change of a sibling or on Push.
func (s *Static) CheckChanges() (bool, error) { return false, nil }

func (s *Static) Update() {}
