// Package pug renders indentation-sensitive Pug templates to HTML.
//
// A template is parsed into a Document, a tree of Nodes whose nesting is
// defined by indentation. Documents can include other documents, or extend a
// layout document and fill in its named blocks; include and extends paths are
// resolved relative to the file that references them, or relative to the
// Basedir option when they start with a slash. Once every include has been
// spliced into the tree, the Document is rendered against a set of Locals.
//
// To render a file in one step, use RenderFile:
//
//	html, err := pug.RenderFile(ctx, "views/index.pug", pug.Options{}, pug.Locals{
//		"title": "My Site",
//	})
//
// To render the same template many times, Compile or CompileFile it once and
// call Render or Execute on the resulting Template. A Template never changes
// after it's compiled, so it can be rendered from multiple goroutines.
//
// Expressions (attribute values, interpolation, conditions, loops, mixin
// arguments) are evaluated by a sandboxed expression language that can only
// see the Locals passed to the render call. Property access, indexing,
// comparisons, and boolean and arithmetic operators are supported; arbitrary
// code is not, and lines of unbuffered code ("- code") are rejected.
//
// Loggers are passed through the context.Context using LoggingContext. Spans
// are recorded using the global OpenTelemetry tracer provider.
package pug
