package pug

import (
	"fmt"
	"maps"
	"strings"
)

const maxMixinDepth = 100

var (
	voidElements = map[string]struct{}{
		"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {}, "img": {},
		"input": {}, "link": {}, "meta": {}, "param": {}, "source": {}, "track": {}, "wbr": {},
	}

	// inlineElements are never put on their own line in pretty output.
	inlineElements = map[string]struct{}{
		"a": {}, "abbr": {}, "acronym": {}, "b": {}, "br": {}, "code": {}, "em": {},
		"font": {}, "i": {}, "img": {}, "ins": {}, "kbd": {}, "map": {}, "samp": {},
		"small": {}, "span": {}, "strong": {}, "sub": {}, "sup": {},
	}

	// whitespaceElements have their contents written exactly, even in
	// pretty output.
	whitespaceElements = map[string]struct{}{
		"pre": {}, "textarea": {},
	}

	// rawTextElements hold text that isn't HTML, so literal text inside
	// them isn't escaped.
	rawTextElements = map[string]struct{}{
		"script": {}, "style": {},
	}

	doctypes = map[string]string{
		"html":         "<!DOCTYPE html>",
		"xml":          `<?xml version="1.0" encoding="utf-8" ?>`,
		"transitional": `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">`,
		"strict":       `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">`,
		"frameset":     `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Frameset//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-frameset.dtd">`,
		"1.1":          `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">`,
		"basic":        `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML Basic 1.1//EN" "http://www.w3.org/TR/xhtml-basic/xhtml-basic11.dtd">`,
		"mobile":       `<!DOCTYPE html PUBLIC "-//WAPFORUM//DTD XHTML Mobile 1.2//EN" "http://www.openmobilealliance.org/tech/DTD/xhtml-mobile12.dtd">`,
		"plist":        `<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">`,
	}
)

// mixinContent is the content a mixin was called with, rendered wherever
// the mixin's body has a bare block.
type mixinContent struct {
	nodes []Node
	scope Locals
}

// renderer writes a resolved Document as HTML. A renderer is used for a
// single render call.
type renderer struct {
	out    strings.Builder
	pretty bool
	strict bool

	// locals are the values passed to the render call. Mixin bodies see
	// these, plus their parameters.
	locals Locals

	// terse is set by `doctype html`: boolean attributes and void
	// elements are written in their short HTML5 forms.
	terse bool

	// depth is the indentation level of pretty output.
	depth int

	// verbatim counts the whitespace-sensitive elements we're inside.
	verbatim int

	// rawText counts the script and style elements we're inside.
	rawText int

	// sawBlock records whether a block-level element was written since
	// it was last reset, to decide whether a closing tag goes on its
	// own line.
	sawBlock bool

	mixins  map[string]*MixinDecl
	content []mixinContent
}

func (r *renderer) nodes(nodes []Node, scope Locals) error {
	for _, node := range nodes {
		if err := r.node(node, scope); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) node(node Node, scope Locals) error {
	switch n := node.(type) {
	case *Element:
		return r.element(n, scope)
	case *Text:
		return r.text(n, scope)
	case *Code:
		value, err := n.Expr.eval(scope, r.strict, n.Pos)
		if err != nil {
			return err
		}
		r.write(stringify(value), n.Raw)
	case *Comment:
		if !n.Buffered {
			return nil
		}
		r.newline()
		r.sawBlock = true
		r.out.WriteString("<!--" + n.Text + "-->")
	case *Doctype:
		r.newline()
		doctype, ok := doctypes[strings.ToLower(n.Value)]
		if !ok {
			doctype = "<!DOCTYPE " + n.Value + ">"
		}
		r.terse = strings.ToLower(n.Value) == "html"
		r.out.WriteString(doctype)
	case *NamedBlock:
		return r.nodes(n.Children, scope)
	case *Conditional:
		value, err := n.Test.eval(scope, r.strict, n.Pos)
		if err != nil {
			return err
		}
		if truthy(value) != n.Negate {
			return r.nodes(n.Then, scope)
		}
		return r.nodes(n.Else, scope)
	case *Loop:
		return r.loop(n, scope)
	case *MixinDecl:
		r.mixins[n.Name] = n
	case *MixinCall:
		return r.mixinCall(n, scope)
	case *MixinBlock:
		if len(r.content) < 1 {
			return nil
		}
		content := r.content[len(r.content)-1]
		r.content = r.content[:len(r.content)-1]
		err := r.nodes(content.nodes, content.scope)
		r.content = append(r.content, content)
		return err
	case *Include, *Extends:
		return &RenderError{Pos: node.Position(), Err: fmt.Errorf("unresolved %T; templates must be compiled before rendering", node)}
	default:
		return &RenderError{Pos: node.Position(), Err: fmt.Errorf("unexpected node type %T", node)}
	}
	return nil
}

// newline starts a new, indented line in pretty output. Nothing is written
// at the very start of the output.
func (r *renderer) newline() {
	if !r.pretty || r.verbatim > 0 || r.out.Len() == 0 {
		return
	}
	r.out.WriteString("\n")
	r.out.WriteString(strings.Repeat("  ", r.depth))
}

func (r *renderer) write(s string, raw bool) {
	if !raw {
		s = escape(s)
	}
	r.out.WriteString(s)
}

func (r *renderer) element(el *Element, scope Locals) error {
	_, inline := inlineElements[el.Name]
	if !inline {
		r.newline()
	}
	r.out.WriteString("<" + el.Name)
	if err := r.attrs(el.Attrs, scope); err != nil {
		return err
	}
	if _, void := voidElements[el.Name]; void || el.SelfClosing {
		if r.terse {
			r.out.WriteString(">")
		} else {
			r.out.WriteString("/>")
		}
		r.sawBlock = r.sawBlock || !inline
		return nil
	}
	r.out.WriteString(">")

	_, verbatim := whitespaceElements[el.Name]
	_, rawText := rawTextElements[el.Name]
	if verbatim {
		r.verbatim++
	}
	if rawText {
		r.rawText++
	}
	saved := r.sawBlock
	r.sawBlock = false
	r.depth++
	err := r.nodes(el.Children, scope)
	r.depth--
	if err != nil {
		return err
	}
	if r.sawBlock {
		r.newline()
	}
	if verbatim {
		r.verbatim--
	}
	if rawText {
		r.rawText--
	}
	r.sawBlock = saved || !inline
	r.out.WriteString("</" + el.Name + ">")
	return nil
}

func (r *renderer) attrs(attrs []Attr, scope Locals) error {
	for _, attr := range attrs {
		var value any = true
		if attr.Value != nil {
			var err error
			value, err = attr.Value.eval(scope, r.strict, attr.Pos)
			if err != nil {
				return err
			}
		}
		switch attr.Name {
		case "class":
			value = classValue(value)
			if value == "" {
				continue
			}
		case "style":
			if value != nil && value != false && value != true {
				value = styleValue(value)
			}
		}
		switch value {
		case nil, false:
			continue
		case true:
			if r.terse {
				r.out.WriteString(" " + attr.Name)
			} else {
				r.out.WriteString(" " + attr.Name + `="` + attr.Name + `"`)
			}
			continue
		}
		r.out.WriteString(" " + attr.Name + `="`)
		r.write(stringify(value), attr.Unescaped)
		r.out.WriteString(`"`)
	}
	return nil
}

func (r *renderer) text(text *Text, scope Locals) error {
	for _, segment := range text.Segments {
		if segment.Expr == nil {
			r.write(segment.Literal, segment.Raw || r.rawText > 0)
			continue
		}
		value, err := segment.Expr.eval(scope, r.strict, text.Pos)
		if err != nil {
			return err
		}
		r.write(stringify(value), segment.Raw)
	}
	return nil
}

func (r *renderer) loop(loop *Loop, scope Locals) error {
	collection, err := loop.Collection.eval(scope, r.strict, loop.Pos)
	if err != nil {
		return err
	}
	items, err := entries(collection)
	if err != nil {
		return &RenderError{Pos: loop.Pos, Err: err}
	}
	if len(items) < 1 {
		return r.nodes(loop.Else, scope)
	}
	for _, item := range items {
		inner := maps.Clone(scope)
		inner[loop.Value] = item.value
		if loop.Key != "" {
			inner[loop.Key] = item.key
		}
		if err := r.nodes(loop.Body, inner); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) mixinCall(call *MixinCall, scope Locals) error {
	decl, ok := r.mixins[call.Name]
	if !ok {
		return &RenderError{Pos: call.Pos, Err: fmt.Errorf("mixin %q is not declared", call.Name)}
	}
	if len(r.content) >= maxMixinDepth {
		return &RenderError{Pos: call.Pos, Err: fmt.Errorf("mixin %q nested more than %d deep", call.Name, maxMixinDepth)}
	}
	inner := maps.Clone(r.locals)
	if inner == nil {
		inner = Locals{}
	}
	for pos, param := range decl.Params {
		var value any
		if pos < len(call.Args) {
			var err error
			value, err = call.Args[pos].eval(scope, r.strict, call.Pos)
			if err != nil {
				return err
			}
		}
		inner[param] = value
	}
	attributes := map[string]any{}
	for _, attr := range call.Attrs {
		var value any = true
		if attr.Value != nil {
			var err error
			value, err = attr.Value.eval(scope, r.strict, attr.Pos)
			if err != nil {
				return err
			}
		}
		attributes[attr.Name] = value
	}
	inner["attributes"] = attributes

	r.content = append(r.content, mixinContent{nodes: call.Children, scope: scope})
	err := r.nodes(decl.Body, inner)
	r.content = r.content[:len(r.content)-1]
	return err
}
