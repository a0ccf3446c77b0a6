package pug

import (
	"context"
)

// loader reads and parses the files a single Compile call depends on. It
// caches each parsed Document by name, so a file included many times is
// only parsed once, but the cache lives only as long as the loader: nothing
// is shared between calls.
type loader struct {
	src *source

	docs  map[string]*Document
	texts map[string]string

	deps *depGraph
}

func newLoader(src *source) *loader {
	return &loader{
		src:   src,
		docs:  map[string]*Document{},
		texts: map[string]string{},
		deps:  newDepGraph(),
	}
}

// document returns the parsed Document for the named file, referenced from
// the directive at from.
func (l *loader) document(ctx context.Context, name string, from Pos) (*Document, error) {
	if doc, ok := l.docs[name]; ok {
		return doc, nil
	}
	contents, err := l.src.read(name, from)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(name, string(contents))
	if err != nil {
		return nil, err
	}
	logger(ctx).DebugContext(ctx, "parsed template", "file", name, "nodes", len(doc.Nodes))
	l.docs[name] = doc
	return doc, nil
}

// text returns the contents of a file included without being parsed.
func (l *loader) text(ctx context.Context, name string, from Pos) (string, error) {
	if text, ok := l.texts[name]; ok {
		return text, nil
	}
	contents, err := l.src.read(name, from)
	if err != nil {
		return "", err
	}
	logger(ctx).DebugContext(ctx, "read raw include", "file", name, "bytes", len(contents))
	l.texts[name] = string(contents)
	return l.texts[name], nil
}
