package pug

import (
	"errors"
	"regexp"
	"strings"
)

var (
	eachPattern  = regexp.MustCompile(`^([A-Za-z_$][\w$]*)(?:\s*,\s*([A-Za-z_$][\w$]*))?\s+in\s+(.+)$`)
	mixinPattern = regexp.MustCompile(`^([A-Za-z_][\w-]*)\s*(?:\((.*)\))?$`)
	identPattern = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)

	unsupportedKeywords = map[string]string{
		"case":  "case statements are not supported",
		"when":  "case statements are not supported",
		"while": "while loops are not supported",
	}

	// directives can be followed directly by a parenthesized expression,
	// as in if(x).
	directives = map[string]struct{}{
		"if":     {},
		"unless": {},
		"each":   {},
		"for":    {},
		"case":   {},
		"when":   {},
		"while":  {},
	}
)

// frame is one level of the indent stack: the list nodes at depth are
// appended to.
type frame struct {
	depth int
	nodes *[]Node
}

type parser struct {
	lex *lexer
	doc *Document

	stack []frame

	// children is the list a line nested under the last parsed line will
	// be appended to, or nil if the last line can't have children.
	children *[]Node
	// childless names the last line, for errors about nesting under it.
	childless string

	// piped is the text node consecutive piped lines are appended to.
	piped *Text

	// closed holds the conditionals that already have a final else.
	closed map[*Conditional]struct{}
}

// Parse parses src into a Document. The name is used in error messages
// and to resolve relative includes; it can be empty if the template doesn't
// use relative includes. The returned Document still contains Include and
// Extends nodes; use Compile to get a fully resolved Template.
func Parse(name, src string) (*Document, error) {
	p := &parser{
		lex:    newLexer(name, src),
		doc:    &Document{Filename: name},
		closed: map[*Conditional]struct{}{},
	}
	p.stack = []frame{{depth: 0, nodes: &p.doc.Nodes}}
	if err := p.parse(); err != nil {
		return nil, err
	}
	if err := p.checkExtends(); err != nil {
		return nil, err
	}
	return p.doc, nil
}

func (p *parser) parse() error {
	for {
		ln, ok := p.lex.advance()
		if !ok {
			return nil
		}
		if ln.blank() {
			continue
		}
		depth, err := p.lex.depth(ln)
		if err != nil {
			return err
		}
		top := p.stack[len(p.stack)-1]
		switch {
		case depth > top.depth+1:
			return syntaxErrorf(p.lex.pos(ln, 0), "unexpected indentation: expected at most %d levels, got %d", top.depth+1, depth)
		case depth == top.depth+1:
			if p.children == nil && p.childless == "" {
				return syntaxErrorf(p.lex.pos(ln, 0), "unexpected indentation")
			}
			if p.children == nil {
				return syntaxErrorf(p.lex.pos(ln, 0), "%s can't have nested content", p.childless)
			}
			p.stack = append(p.stack, frame{depth: depth, nodes: p.children})
		default:
			for depth < p.stack[len(p.stack)-1].depth {
				p.stack = p.stack[:len(p.stack)-1]
			}
			if depth != top.depth {
				// dedenting ends any run of piped text
				p.piped = nil
			}
		}
		if err := p.parseLine(ln, depth, p.stack[len(p.stack)-1].nodes); err != nil {
			return err
		}
	}
}

func (p *parser) nest(children *[]Node, what string) {
	p.children = children
	p.childless = what
}

// parseLine parses a single line, appending the result to list.
func (p *parser) parseLine(ln line, depth int, list *[]Node) error {
	body := ln.body
	pos := p.lex.pos(ln, 0)
	p.nest(nil, "this line")
	if !strings.HasPrefix(body, "|") && !strings.HasPrefix(body, "<") {
		p.piped = nil
	}

	switch {
	case strings.HasPrefix(body, "//"):
		return p.parseComment(ln, depth, list)
	case strings.HasPrefix(body, "|"):
		text := strings.TrimPrefix(body[1:], " ")
		return p.appendPiped(list, text, offset(pos, len(body)-len(text)), false)
	case strings.HasPrefix(body, "<"):
		return p.appendPiped(list, body, pos, true)
	case strings.HasPrefix(body, "!="), strings.HasPrefix(body, "="):
		code, err := p.parseCode(body, pos)
		if err != nil {
			return err
		}
		*list = append(*list, code)
		p.nest(nil, "buffered code")
		return nil
	case strings.HasPrefix(body, "-"):
		return syntaxErrorf(pos, "unbuffered code is not supported")
	case strings.HasPrefix(body, "+"):
		return p.parseMixinCall(ln, depth, list, body, pos)
	case strings.HasPrefix(body, "include:"):
		return syntaxErrorf(pos, "filters are not supported")
	}

	keyword, rest := splitKeyword(body)
	if msg, ok := unsupportedKeywords[keyword]; ok {
		return syntaxErrorf(pos, "%s", msg)
	}
	restPos := offset(pos, len(body)-len(rest))
	switch keyword {
	case "doctype":
		value := rest
		if value == "" {
			value = "html"
		}
		*list = append(*list, &Doctype{Pos: pos, Value: value})
		p.nest(nil, "doctype")
		return nil
	case "include":
		if rest == "" {
			return syntaxErrorf(pos, "include needs a path")
		}
		*list = append(*list, &Include{Pos: pos, Path: rest})
		p.nest(nil, "include")
		return nil
	case "extends", "extend":
		return p.parseExtends(depth, list, rest, pos)
	case "block":
		return p.parseBlock(list, rest, pos)
	case "append", "prepend":
		if rest == "" {
			return syntaxErrorf(pos, "%s needs a block name", keyword)
		}
		return p.parseBlock(list, keyword+" "+rest, pos)
	case "if", "unless":
		if rest == "" {
			return syntaxErrorf(pos, "%s needs a condition", keyword)
		}
		test, err := compileAt(rest, restPos)
		if err != nil {
			return err
		}
		cond := &Conditional{Pos: pos, Test: test, Negate: keyword == "unless"}
		*list = append(*list, cond)
		p.nest(&cond.Then, keyword)
		return nil
	case "else":
		return p.parseElse(list, rest, pos, restPos)
	case "each", "for":
		return p.parseLoop(list, keyword, rest, pos, restPos)
	case "mixin":
		return p.parseMixinDecl(list, rest, pos)
	}
	return p.parseTag(ln, depth, list, body, pos)
}

// splitKeyword returns the first word of body and the rest of the line.
// The word only counts as a keyword if it's followed by a space or ends
// the line, or if it's a directive followed by a parenthesis. Anything else
// (like `block.` or `a#id`) is a tag.
func splitKeyword(body string) (string, string) {
	if open := strings.IndexByte(body, '('); open > 0 {
		if _, ok := directives[body[:open]]; ok {
			return body[:open], body[open:]
		}
	}
	end := strings.IndexByte(body, ' ')
	if end < 0 {
		if identPattern.MatchString(body) {
			return body, ""
		}
		return "", body
	}
	return body[:end], strings.TrimSpace(body[end+1:])
}

func compileAt(src string, pos Pos) (*Expr, error) {
	compiled, err := compileExpr(src)
	if err != nil {
		return nil, syntaxErrorf(pos, "invalid expression %q: %s", src, err)
	}
	return compiled, nil
}

func (p *parser) parseComment(ln line, depth int, list *[]Node) error {
	body := ln.body
	comment := &Comment{Pos: p.lex.pos(ln, 0), Buffered: !strings.HasPrefix(body, "//-")}
	if comment.Buffered {
		comment.Text = body[2:]
	} else {
		comment.Text = body[3:]
	}
	lines, err := p.lex.block(depth)
	if err != nil {
		return err
	}
	if len(lines) > 0 {
		comment.Text += "\n" + strings.Join(lines, "\n") + "\n"
	}
	*list = append(*list, comment)
	p.nest(nil, "a comment")
	return nil
}

// appendPiped adds a line of text, joining it to the text of the previous
// line with a newline if that was text too.
func (p *parser) appendPiped(list *[]Node, text string, pos Pos, raw bool) error {
	var segments []Segment
	if raw {
		segments = []Segment{{Literal: text, Raw: true}}
	} else {
		var err error
		segments, err = parseText(text, pos)
		if err != nil {
			return err
		}
	}
	if p.piped != nil {
		p.piped.Segments = append(p.piped.Segments, Segment{Literal: "\n"})
		p.piped.Segments = append(p.piped.Segments, segments...)
	} else {
		p.piped = &Text{Pos: pos, Segments: segments}
		*list = append(*list, p.piped)
	}
	p.nest(nil, "text")
	return nil
}

func (p *parser) parseCode(body string, pos Pos) (*Code, error) {
	raw := strings.HasPrefix(body, "!=")
	src := strings.TrimPrefix(strings.TrimPrefix(body, "!"), "=")
	exprPos := offset(pos, len(body)-len(strings.TrimLeft(src, " ")))
	compiled, err := compileAt(src, exprPos)
	if err != nil {
		return nil, err
	}
	return &Code{Pos: pos, Expr: compiled, Raw: raw}, nil
}

func (p *parser) parseExtends(depth int, list *[]Node, rest string, pos Pos) error {
	if rest == "" {
		return syntaxErrorf(pos, "extends needs a path")
	}
	if depth != 0 {
		return syntaxErrorf(pos, "extends must be at the top level")
	}
	if p.doc.Extends != nil {
		return syntaxErrorf(pos, "a template can only extend one other template")
	}
	for _, node := range *list {
		if _, ok := node.(*Comment); !ok {
			return syntaxErrorf(pos, "extends must be the first statement in a template")
		}
	}
	p.doc.Extends = &Extends{Pos: pos, Path: rest}
	p.nest(nil, "extends")
	return nil
}

func (p *parser) parseBlock(list *[]Node, rest string, pos Pos) error {
	if rest == "" {
		block := &MixinBlock{Pos: pos}
		*list = append(*list, block)
		p.nest(nil, "a mixin block")
		return nil
	}
	mode := BlockReplace
	if word, name, ok := strings.Cut(rest, " "); ok {
		switch word {
		case "append":
			mode, rest = BlockAppend, strings.TrimSpace(name)
		case "prepend":
			mode, rest = BlockPrepend, strings.TrimSpace(name)
		}
	}
	if !identPattern.MatchString(strings.ReplaceAll(rest, "-", "_")) {
		return syntaxErrorf(pos, "invalid block name %q", rest)
	}
	block := &NamedBlock{Pos: pos, Name: rest, Mode: mode}
	*list = append(*list, block)
	p.nest(&block.Children, "block")
	return nil
}

func (p *parser) parseElse(list *[]Node, rest string, pos, restPos Pos) error {
	var prev Node
	if len(*list) > 0 {
		prev = (*list)[len(*list)-1]
	}
	switch prev := prev.(type) {
	case *Loop:
		if rest != "" {
			return syntaxErrorf(pos, "unexpected %q after else", rest)
		}
		if prev.Else != nil {
			return syntaxErrorf(pos, "each can only have one else")
		}
		prev.Else = []Node{}
		p.nest(&prev.Else, "else")
		return nil
	case *Conditional:
		tail := prev
		for {
			if _, ok := p.closed[tail]; ok {
				return syntaxErrorf(pos, "unexpected else after a final else")
			}
			if len(tail.Else) != 1 {
				break
			}
			next, ok := tail.Else[0].(*Conditional)
			if !ok {
				break
			}
			tail = next
		}
		if rest == "" {
			tail.Else = []Node{}
			p.closed[tail] = struct{}{}
			p.nest(&tail.Else, "else")
			return nil
		}
		word, cond := splitKeyword(rest)
		if word != "if" || cond == "" {
			return syntaxErrorf(pos, "expected else or else if, got else %s", rest)
		}
		condPos := offset(restPos, len(rest)-len(cond))
		test, err := compileAt(cond, condPos)
		if err != nil {
			return err
		}
		next := &Conditional{Pos: pos, Test: test}
		tail.Else = []Node{next}
		p.nest(&next.Then, "else if")
		return nil
	}
	return syntaxErrorf(pos, "else must follow an if, unless, or each")
}

func (p *parser) parseLoop(list *[]Node, keyword, rest string, pos, restPos Pos) error {
	if strings.HasPrefix(rest, "(") {
		if end, ok := matchClose(rest, 0); ok && end == len(rest)-1 {
			rest = strings.TrimSpace(rest[1:end])
			restPos = offset(restPos, 1)
		}
	}
	match := eachPattern.FindStringSubmatch(rest)
	if match == nil {
		return syntaxErrorf(pos, "malformed %s: expected `%s value[, key] in collection`", keyword, keyword)
	}
	collection, err := compileAt(match[3], offset(restPos, len(rest)-len(match[3])))
	if err != nil {
		return err
	}
	loop := &Loop{Pos: pos, Value: match[1], Key: match[2], Collection: collection}
	*list = append(*list, loop)
	p.nest(&loop.Body, keyword)
	return nil
}

func (p *parser) parseMixinDecl(list *[]Node, rest string, pos Pos) error {
	match := mixinPattern.FindStringSubmatch(rest)
	if match == nil {
		return syntaxErrorf(pos, "malformed mixin declaration %q", rest)
	}
	decl := &MixinDecl{Pos: pos, Name: match[1]}
	if strings.TrimSpace(match[2]) != "" {
		for _, param := range strings.Split(match[2], ",") {
			param = strings.TrimSpace(param)
			if !identPattern.MatchString(param) {
				return syntaxErrorf(pos, "invalid mixin parameter %q", param)
			}
			decl.Params = append(decl.Params, param)
		}
	}
	*list = append(*list, decl)
	p.nest(&decl.Body, "mixin")
	return nil
}

func (p *parser) parseMixinCall(ln line, depth int, list *[]Node, body string, pos Pos) error {
	i := 1
	for i < len(body) && isIdentChar(body[i]) {
		i++
	}
	call := &MixinCall{Pos: pos, Name: body[1:i]}
	if call.Name == "" {
		return syntaxErrorf(pos, "mixin call needs a name")
	}
	var err error
	if i < len(body) && body[i] == '(' {
		var args string
		args, body, err = p.parenthesized(ln, body, i)
		if err != nil {
			return err
		}
		i = 0
		if strings.TrimSpace(args) != "" {
			for _, arg := range splitTopLevel(args, ',') {
				compiled, err := compileAt(arg, pos)
				if err != nil {
					return err
				}
				call.Args = append(call.Args, compiled)
			}
		}
	}
	if i < len(body) && body[i] == '(' {
		var attrs attrSet
		body, err = p.parseAttrList(ln, body, i, pos, &attrs)
		if err != nil {
			return err
		}
		i = 0
		call.Attrs, err = attrs.build()
		if err != nil {
			return err
		}
	}
	*list = append(*list, call)
	p.nest(&call.Children, "mixin call")
	return p.parseTagRest(ln, depth, call.Name, &call.Children, body[i:], pos)
}

// parenthesized returns the text between the parenthesis at body[open] and
// the one that closes it, and the remainder of the line after the closing
// parenthesis. If the parenthesis isn't closed on this line, the following
// lines are consumed until it is.
func (p *parser) parenthesized(ln line, body string, open int) (string, string, error) {
	text := body[open:]
	for {
		end, ok := matchClose(text, 0)
		if ok {
			return text[1:end], text[end+1:], nil
		}
		next, more := p.lex.advance()
		if !more {
			return "", "", syntaxErrorf(p.lex.pos(ln, open), "unclosed parenthesis")
		}
		text += "\n" + next.body
	}
}

func (p *parser) parseAttrList(ln line, body string, open int, pos Pos, attrs *attrSet) (string, error) {
	listPos := offset(pos, open+1)
	inner, rest, err := p.parenthesized(ln, body, open)
	if err != nil {
		return "", err
	}
	raw, err := scanAttrs(inner)
	if err != nil {
		var attrErr *attrError
		if errors.As(err, &attrErr) {
			return "", syntaxErrorf(offset(listPos, attrErr.offset), "%s", attrErr.msg)
		}
		return "", err
	}
	for _, attr := range raw {
		attrPos := offset(listPos, attr.offset)
		if attr.name == "class" && attr.hasValue {
			attrs.addClass(attr.value, attrPos, attr.unescaped)
			continue
		}
		result := Attr{Pos: attrPos, Name: attr.name, Unescaped: attr.unescaped}
		if attr.hasValue {
			result.Value, err = compileAt(attr.value, attrPos)
			if err != nil {
				return "", err
			}
		}
		attrs.set(result)
	}
	return rest, nil
}

func (p *parser) parseTag(ln line, depth int, list *[]Node, body string, pos Pos) error {
	el, rest, err := p.parseTagHead(ln, body, pos)
	if err != nil {
		return err
	}
	*list = append(*list, el)
	p.nest(&el.Children, "<"+el.Name+">")
	if el.SelfClosing {
		p.nest(nil, "self-closing <"+el.Name+">")
	}
	return p.parseTagRest(ln, depth, el.Name, &el.Children, rest, offset(pos, len(body)-len(rest)))
}

// parseTagHead parses the tag name, id and class shorthands, attributes,
// and self-closing slash at the start of body.
func (p *parser) parseTagHead(ln line, body string, pos Pos) (*Element, string, error) {
	el := &Element{Pos: pos, Name: "div"}
	i := 0
	for i < len(body) && (isIdentChar(body[i]) || body[i] == ':' && i+1 < len(body) && isIdentChar(body[i+1])) {
		i++
	}
	if i > 0 {
		el.Name = body[:i]
	} else if body[0] != '#' && body[0] != '.' {
		return nil, "", syntaxErrorf(pos, "unexpected %q", string(body[0]))
	}
	var attrs attrSet
shorthand:
	for i < len(body) {
		c := body[i]
		switch {
		case c == '#' || c == '.':
			j := i + 1
			for j < len(body) && isIdentChar(body[j]) {
				j++
			}
			if j == i+1 {
				if c == '.' {
					// a trailing dot starts block text
					break shorthand
				}
				return nil, "", syntaxErrorf(offset(pos, i), "expected an id after #")
			}
			name := body[i+1 : j]
			if c == '#' {
				value, err := compileExpr(literalSource(name))
				if err != nil {
					return nil, "", syntaxErrorf(offset(pos, i), "invalid id %q: %s", name, err)
				}
				attrs.set(Attr{Pos: offset(pos, i), Name: "id", Value: value})
			} else {
				attrs.addClass(literalSource(name), offset(pos, i), false)
			}
			i = j
		case c == '(':
			rest, err := p.parseAttrList(ln, body, i, pos, &attrs)
			if err != nil {
				return nil, "", err
			}
			body, i = rest, 0
		case strings.HasPrefix(body[i:], "&attributes"):
			return nil, "", syntaxErrorf(offset(pos, i), "&attributes is not supported")
		default:
			break shorthand
		}
	}
	var err error
	el.Attrs, err = attrs.build()
	if err != nil {
		return nil, "", err
	}
	if i < len(body) && body[i] == '/' {
		el.SelfClosing = true
		i++
		if strings.TrimSpace(body[i:]) != "" {
			return nil, "", syntaxErrorf(offset(pos, i), "self-closing tags can't have content")
		}
	}
	return el, body[i:], nil
}

// parseTagRest parses whatever follows a tag or mixin call on its line:
// block expansion, block text, buffered code, or inline text.
func (p *parser) parseTagRest(ln line, depth int, name string, children *[]Node, rest string, pos Pos) error {
	switch {
	case rest == "":
		return nil
	case rest == ".":
		lines, err := p.lex.block(depth)
		if err != nil {
			return err
		}
		if len(lines) > 0 {
			segments, err := parseText(strings.Join(lines, "\n"), Pos{File: pos.File, Line: ln.num + 1, Column: 1})
			if err != nil {
				return err
			}
			*children = append(*children, &Text{Pos: pos, Segments: segments})
		}
		p.nest(nil, "block text")
		return nil
	case strings.HasPrefix(rest, ": "):
		inner := strings.TrimLeft(rest[1:], " ")
		innerPos := offset(pos, len(rest)-len(inner))
		if strings.HasPrefix(inner, "+") {
			return p.parseMixinCall(ln, depth, children, inner, innerPos)
		}
		return p.parseTag(ln, depth, children, inner, innerPos)
	case strings.HasPrefix(rest, "="), strings.HasPrefix(rest, "!="):
		code, err := p.parseCode(rest, pos)
		if err != nil {
			return err
		}
		*children = append(*children, code)
		return nil
	case rest[0] == ' ':
		text := rest[1:]
		segments, err := parseText(text, offset(pos, 1))
		if err != nil {
			return err
		}
		if len(segments) > 0 {
			*children = append(*children, &Text{Pos: offset(pos, 1), Segments: segments})
		}
		return nil
	}
	return syntaxErrorf(pos, "unexpected %q after %s", rest, name)
}

// checkExtends makes sure a template that extends another only contains
// what extending templates can: blocks, mixin declarations, and comments.
func (p *parser) checkExtends() error {
	if p.doc.Extends == nil {
		return nil
	}
	for _, node := range p.doc.Nodes {
		switch node.(type) {
		case *NamedBlock, *MixinDecl, *Comment, *Include:
			continue
		}
		return syntaxErrorf(node.Position(), "only named blocks and mixins can appear at the top level of an extending template")
	}
	return nil
}
