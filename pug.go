package pug

import (
	"context"
	"fmt"
	"io"
	"slices"

	"go.opentelemetry.io/otel/attribute"
)

// Template is a compiled template: parsed, with every include spliced in
// and any extends applied. A Template is never modified after it's
// compiled, and can be rendered by multiple goroutines at once.
type Template struct {
	doc  *Document
	opts Options
	deps []string
}

// Compile parses src and resolves its includes and extends. opts.Filename
// names the template in errors, and relative includes are resolved against
// its directory.
func Compile(ctx context.Context, src string, opts Options) (*Template, error) {
	ctx, span := startSpan(ctx, "pug.Compile", attribute.String("pug.filename", opts.Filename))
	tmpl, err := compile(ctx, opts, func(s *source, _ *loader) (*Document, error) {
		return Parse(s.filename, src)
	})
	endSpan(span, err)
	return tmpl, err
}

// CompileFile reads, parses, and resolves the template in filename. If
// opts.FS is set, filename is a path within it; otherwise it's a path on
// the local file system. opts.Filename is ignored.
func CompileFile(ctx context.Context, filename string, opts Options) (*Template, error) {
	opts.Filename = filename
	ctx, span := startSpan(ctx, "pug.Compile", attribute.String("pug.filename", filename))
	tmpl, err := compile(ctx, opts, func(s *source, l *loader) (*Document, error) {
		return l.document(ctx, s.filename, Pos{})
	})
	endSpan(span, err)
	return tmpl, err
}

func compile(ctx context.Context, opts Options, parse func(*source, *loader) (*Document, error)) (*Template, error) {
	src, err := opts.source()
	if err != nil {
		return nil, err
	}
	load := newLoader(src)
	doc, err := parse(src, load)
	if err != nil {
		return nil, err
	}

	resolveCtx, span := startSpan(ctx, "pug.resolve", attribute.String("pug.filename", doc.Filename))
	resolved, err := resolve(resolveCtx, load, doc)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	deps, err := load.deps.walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("error ordering dependencies of %q: %w", doc.Filename, err)
	}
	logger(ctx).DebugContext(ctx, "compiled template", "file", doc.Filename, "dependencies", len(deps))
	return &Template{doc: resolved, opts: opts, deps: deps}, nil
}

// Document returns the resolved Document the Template renders. It must not
// be modified.
func (t *Template) Document() *Document {
	return t.doc
}

// Dependencies returns the names of every file the Template was compiled
// from, including the template's own file, with files listed before the
// files that include or extend them.
func (t *Template) Dependencies() []string {
	return slices.Clone(t.deps)
}

// Execute renders the Template with locals and writes the result to out.
// Nothing is written unless rendering succeeds.
func (t *Template) Execute(ctx context.Context, out io.Writer, locals Locals) error {
	html, err := t.Render(ctx, locals)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, html); err != nil {
		return fmt.Errorf("error writing %q: %w", t.doc.Filename, err)
	}
	return nil
}

// Render renders the Template with locals and returns the HTML.
func (t *Template) Render(ctx context.Context, locals Locals) (string, error) {
	ctx, span := startSpan(ctx, "pug.Execute", attribute.String("pug.filename", t.doc.Filename), attribute.Bool("pug.pretty", t.opts.Pretty))
	html, err := t.render(ctx, locals)
	endSpan(span, err)
	return html, err
}

func (t *Template) render(ctx context.Context, locals Locals) (string, error) {
	if locals == nil {
		locals = Locals{}
	}
	r := &renderer{
		pretty: t.opts.Pretty,
		strict: t.opts.StrictUndefined,
		locals: locals,
		mixins: map[string]*MixinDecl{},
	}
	if err := r.nodes(t.doc.Nodes, locals); err != nil {
		logger(ctx).DebugContext(ctx, "error rendering template", "file", t.doc.Filename, "error", err)
		return "", err
	}
	logger(ctx).DebugContext(ctx, "rendered template", "file", t.doc.Filename, "bytes", r.out.Len())
	return r.out.String(), nil
}

// Render compiles src and renders it with locals.
func Render(ctx context.Context, src string, opts Options, locals Locals) (string, error) {
	tmpl, err := Compile(ctx, src, opts)
	if err != nil {
		return "", err
	}
	return tmpl.Render(ctx, locals)
}

// RenderFile compiles the template in filename and renders it with locals.
func RenderFile(ctx context.Context, filename string, opts Options, locals Locals) (string, error) {
	tmpl, err := CompileFile(ctx, filename, opts)
	if err != nil {
		return "", err
	}
	return tmpl.Render(ctx, locals)
}
