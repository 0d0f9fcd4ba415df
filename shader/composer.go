package shader

import "strings"

// Composer is a [Source] made of child sources joined in order into a single
// text. A Composer may contain other composers.
//
// The joined text is cached and rebuilt when children are added or when
// CheckChanges sees a child change.
type Composer struct {
	children []Source
	text     string
	// stale is set when a child reloaded during a CheckChanges call that then
	// failed, so its new text is not yet in the cached text.
	stale bool
}

// NewComposer returns a composer holding the given children in order.
// It panics if a child is nil.
func NewComposer(children ...Source) *Composer {
	for _, child := range children {
		if child == nil {
			panic("shader: nil Source")
		}
	}
	c := &Composer{children: append([]Source(nil), children...)}
	c.rebuild()
	return c
}

// Push appends a child source.
func (c *Composer) Push(s Source) {
	if s == nil {
		panic("shader: nil Source")
	}
	c.children = append(c.children, s)
	c.rebuild()
}

// Insert inserts a child source so it ends up at index i. Indices past the
// end append, negative indices insert at the front.
func (c *Composer) Insert(i int, s Source) {
	if s == nil {
		panic("shader: nil Source")
	}
	i = max(0, min(i, len(c.children)))
	c.children = append(c.children, nil)
	copy(c.children[i+1:], c.children[i:])
	c.children[i] = s
	c.rebuild()
}

// Len returns the number of direct children.
func (c *Composer) Len() int { return len(c.children) }

// Child returns the i'th direct child.
func (c *Composer) Child(i int) Source { return c.children[i] }

// Text returns the text of all children as of the last rebuild, each
// followed by a newline.
func (c *Composer) Text() string { return c.text }

// SetText replaces all children with a single [Static] source holding text.
func (c *Composer) SetText(text string) {
	c.children = []Source{NewStatic(text)}
	c.rebuild()
}

// CheckChanges checks every child in order and rebuilds the cached text if
// any of them changed. The first child error aborts the sweep and is returned
// with the cached text untouched. Children that reloaded before the error keep
// their new text, which is picked up by the next successful call.
func (c *Composer) CheckChanges() (changed bool, err error) {
	for _, child := range c.children {
		childChanged, err := child.CheckChanges()
		if err != nil {
			c.stale = c.stale || changed
			return false, err
		}
		changed = changed || childChanged
	}
	changed = changed || c.stale
	if changed {
		c.rebuild()
	}
	return changed, nil
}

// Update calls Update on every child.
func (c *Composer) Update() {
	for _, child := range c.children {
		child.Update()
	}
}

// Compile always returns [ErrCompileUnsupported].
func (c *Composer) Compile() error { return ErrCompileUnsupported }

func (c *Composer) rebuild() {
	n := 0
	for _, child := range c.children {
		n += len(child.Text()) + 1
	}
	var b strings.Builder
	b.Grow(n)
	for _, child := range c.children {
		b.WriteString(child.Text())
		b.WriteByte('\n')
	}
	c.text = b.String()
	c.stale = false
}
