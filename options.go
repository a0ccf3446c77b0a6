package pug

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Locals are the values available to a template's expressions during a
// single render call.
type Locals map[string]any

// Options control how a template is compiled and rendered.
type Options struct {
	// Pretty adds newlines and indentation between block-level elements.
	// By default, nothing is added to the output that isn't in the
	// template's text.
	Pretty bool

	// Filename is the name of the template. It's used in error messages,
	// and relative includes are resolved against its directory. When
	// rendering a file, it's the file's path and is set automatically.
	Filename string

	// Basedir is the directory includes with absolute paths, like
	// `include /partials/footer`, are resolved against.
	Basedir string

	// StrictUndefined makes referring to a local that wasn't passed to
	// the render call an error. By default, undefined locals render as
	// empty strings.
	StrictUndefined bool

	// FS, if set, is where included and rendered files are read from, and
	// Filename and Basedir are paths within it. Basedir defaults to the
	// root of FS. If FS isn't set, Filename and Basedir are paths on the
	// local file system.
	FS fs.FS
}

// source maps template names to files. Names are slash-separated; for the
// local file system they're absolute paths, within an fs.FS they're paths
// valid for that fs.FS.
type source struct {
	fsys fs.FS

	// prefix is stripped from names to get paths in fsys.
	prefix string

	// filename and basedir are the Options' values, converted to names.
	filename string
	basedir  string
}

func (o Options) source() (*source, error) {
	if o.FS != nil {
		src := &source{fsys: o.FS, basedir: "."}
		if o.Filename != "" {
			src.filename = path.Clean(filepath.ToSlash(o.Filename))
		}
		if o.Basedir != "" {
			src.basedir = path.Clean(filepath.ToSlash(o.Basedir))
		}
		return src, nil
	}
	src := &source{}
	if o.Filename != "" {
		abs, err := filepath.Abs(o.Filename)
		if err != nil {
			return nil, fmt.Errorf("error resolving %q: %w", o.Filename, err)
		}
		src.filename = filepath.ToSlash(abs)
		src.prefix = filepath.ToSlash(filepath.VolumeName(abs)) + "/"
	}
	if o.Basedir != "" {
		abs, err := filepath.Abs(o.Basedir)
		if err != nil {
			return nil, fmt.Errorf("error resolving %q: %w", o.Basedir, err)
		}
		src.basedir = filepath.ToSlash(abs)
		if src.prefix == "" {
			src.prefix = filepath.ToSlash(filepath.VolumeName(abs)) + "/"
		}
	}
	if src.prefix == "" {
		src.prefix = "/"
	}
	src.fsys = os.DirFS(src.prefix)
	return src, nil
}

// resolve turns a path written in an include or extends directive in the
// file named from into a name.
func (s *source) resolve(from, ref string, at Pos) (string, error) {
	var name string
	if strings.HasPrefix(ref, "/") {
		if s.basedir == "" {
			return "", fmt.Errorf("%s: error resolving %q: %w", at, ref, ErrNoBasedir)
		}
		name = path.Join(s.basedir, ref[1:])
	} else {
		if from == "" {
			return "", fmt.Errorf("%s: error resolving %q: %w", at, ref, ErrNoFilename)
		}
		name = path.Join(path.Dir(from), ref)
	}
	if path.Ext(name) == "" {
		name += ".pug"
	}
	return name, nil
}

// read returns the contents of the file with the passed name.
func (s *source) read(name string, from Pos) ([]byte, error) {
	fsPath := strings.TrimPrefix(name, s.prefix)
	if fsPath == "" {
		fsPath = "."
	}
	if !fs.ValidPath(fsPath) {
		return nil, &FileNotFoundError{Path: name, From: from, Err: fs.ErrInvalid}
	}
	contents, err := fs.ReadFile(s.fsys, fsPath)
	if err != nil {
		return nil, &FileNotFoundError{Path: name, From: from, Err: err}
	}
	return contents, nil
}
