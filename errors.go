package pug

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFilename is returned when a template uses include or extends
	// with a relative path, but was compiled from a string without the
	// Filename option set, so there's nothing to resolve the path against.
	ErrNoFilename = errors.New("the Filename option is required to resolve relative includes")

	// ErrNoBasedir is returned when a template uses include or extends
	// with an absolute path, but the Basedir option isn't set.
	ErrNoBasedir = errors.New("the Basedir option is required to resolve absolute includes")

	// ErrDependencyCycle is returned when the files a template depends on
	// can't be ordered because they depend on each other. Include cycles
	// are rejected with a CyclicIncludeError while resolving, so this
	// always indicates a bug in dependency tracking.
	ErrDependencyCycle = errors.New("dependency cycle detected")
)

// Pos is a location in a template's source. Lines and columns start at 1.
type Pos struct {
	File   string
	Line   int
	Column int
}

// Position returns the Pos. It lets any struct embedding a Pos fulfill the
// Node interface.
func (p Pos) Position() Pos {
	return p
}

func (p Pos) String() string {
	file := p.File
	if file == "" {
		file = "<string>"
	}
	if p.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", file, p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d", file, p.Line)
}

// SyntaxError is returned when a template's source is malformed.
type SyntaxError struct {
	Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax error: %s", e.Pos, e.Msg)
}

func syntaxErrorf(pos Pos, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// FileNotFoundError is returned when a file named by include or extends, or
// the file being rendered, can't be read.
type FileNotFoundError struct {
	// Path is the path that was attempted, after resolving it against
	// the referencing file's directory or the Basedir.
	Path string

	// From is the position of the include or extends directive. It's
	// the zero value for the top-level file.
	From Pos

	// Err is the underlying error from the file system.
	Err error
}

func (e *FileNotFoundError) Error() string {
	if e.From.Line == 0 {
		return fmt.Sprintf("file %q not found: %s", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: file %q not found: %s", e.From, e.Path, e.Err)
}

func (e *FileNotFoundError) Unwrap() error {
	return e.Err
}

// CyclicIncludeError is returned when a file includes or extends, directly
// or indirectly, a file that is already being resolved.
type CyclicIncludeError struct {
	// Chain lists the files involved, starting and ending with the
	// repeated file.
	Chain []string

	// From is the position of the directive that closed the cycle.
	From Pos
}

func (e *CyclicIncludeError) Error() string {
	return fmt.Sprintf("%s: cyclic include: %s", e.From, strings.Join(e.Chain, " -> "))
}

// UndefinedLocalError is returned when an expression refers to a local that
// wasn't passed to the render call and the StrictUndefined option is set.
type UndefinedLocalError struct {
	Pos
	Name string
}

func (e *UndefinedLocalError) Error() string {
	return fmt.Sprintf("%s: %q is not defined", e.Pos, e.Name)
}

// RenderError is returned when rendering fails for a reason other than an
// undefined local, like an expression that can't be evaluated against the
// values it was given, or a call to a mixin that was never declared.
type RenderError struct {
	Pos
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
