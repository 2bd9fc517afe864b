package template

import (
	"fmt"
	"strings"
)

// Frame maps names to values: scalars (string, int, net.IP, net.IPNet),
// records (nested Frame) or sequences of records ([]Frame).
type Frame map[string]any

// Context is an immutable stack of lexically nested frames. Lookup
// walks innermost-to-outermost, so loop frames shadow outer names.
type Context struct {
	frame  Frame
	parent *Context
}

func NewContext(frame Frame) *Context {
	return &Context{frame: frame}
}

func (c *Context) Push(frame Frame) *Context {
	return &Context{frame: frame, parent: c}
}

func (c *Context) Pop() *Context {
	return c.parent
}

// Resolve looks up a dotted name: the first segment walks the frame
// stack, the remaining segments index into record values. A missing
// name or a non-record intermediate value is ErrUnresolvedName.
func (c *Context) Resolve(name string) (any, error) {
	segments := strings.Split(name, ".")

	value, ok := c.lookup(segments[0])
	if !ok {
		return nil, fmt.Errorf("name %q is not bound in any scope: %w", name, ErrUnresolvedName)
	}

	for _, segment := range segments[1:] {
		record, ok := value.(Frame)
		if !ok {
			return nil, fmt.Errorf("name %q: %q is not a record: %w", name, segment, ErrUnresolvedName)
		}

		value, ok = record[segment]
		if !ok {
			return nil, fmt.Errorf("name %q: record has no field %q: %w", name, segment, ErrUnresolvedName)
		}
	}

	return value, nil
}

func (c *Context) lookup(name string) (any, bool) {
	for scope := c; scope != nil; scope = scope.parent {
		if value, ok := scope.frame[name]; ok {
			return value, true
		}
	}

	return nil, false
}
