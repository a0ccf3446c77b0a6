package pug

import (
	"fmt"
	"strconv"
	"strings"
)

// rawAttr is an attribute as written, before its value is compiled.
type rawAttr struct {
	name      string
	value     string
	hasValue  bool
	unescaped bool
	offset    int
}

// operatorWords can continue an attribute value past whitespace.
var operatorWords = []string{"and", "or", "not", "in", "matches", "contains", "startsWith", "endsWith"}

// scanAttrs splits the contents of an attribute list (the text between the
// parentheses) into attributes. Attributes are separated by commas or by
// whitespace; whitespace only ends a value when neither side of it is an
// operator, so `a + b` stays one value.
func scanAttrs(s string) ([]rawAttr, error) {
	var attrs []rawAttr
	i := 0
	for {
		for i < len(s) && (isSpace(s[i]) || s[i] == ',') {
			i++
		}
		if i >= len(s) {
			return attrs, nil
		}
		attr := rawAttr{offset: i}
		if s[i] == '"' || s[i] == '\'' {
			end, ok := skipString(s, i)
			if !ok {
				return nil, errorAt(i, "unterminated attribute name")
			}
			attr.name = s[i+1 : end]
			i = end + 1
		} else {
			start := i
			for i < len(s) && !isSpace(s[i]) && !strings.ContainsRune("=!,()", rune(s[i])) {
				i++
			}
			attr.name = s[start:i]
		}
		if attr.name == "" {
			return nil, errorAt(i, "expected attribute name, got %q", string(s[i]))
		}
		j := i
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		switch {
		case strings.HasPrefix(s[j:], "!="):
			attr.unescaped = true
			j += 2
		case strings.HasPrefix(s[j:], "=") && !strings.HasPrefix(s[j:], "=="):
			j++
		default:
			attrs = append(attrs, attr)
			continue
		}
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		end, err := scanValue(s, j)
		if err != nil {
			return nil, err
		}
		attr.value = strings.TrimSpace(s[j:end])
		attr.hasValue = true
		if attr.value == "" {
			return nil, errorAt(j, "attribute %q has no value", attr.name)
		}
		attrs = append(attrs, attr)
		i = end
	}
}

// scanValue returns the index just past the attribute value starting at
// s[start].
func scanValue(s string, start int) (int, error) {
	depth := 0
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			end, ok := skipString(s, i)
			if !ok {
				return 0, errorAt(i, "unterminated string")
			}
			i = end
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth < 0 {
				return 0, errorAt(i, "unexpected %q", string(c))
			}
		case depth > 0:
		case c == ',':
			return i, nil
		case isSpace(c):
			before := strings.TrimRight(s[start:i], " \t\r\n")
			after := strings.TrimLeft(s[i:], " \t\r\n")
			if after == "" {
				return len(s), nil
			}
			if endsWithOperator(before) || startsWithOperator(after) {
				continue
			}
			return i, nil
		}
	}
	return len(s), nil
}

func endsWithOperator(s string) bool {
	if s == "" {
		return true
	}
	if strings.ContainsRune("+-*/%<>=!&|?:.([{", rune(s[len(s)-1])) {
		return true
	}
	for _, word := range operatorWords {
		if strings.HasSuffix(s, " "+word) {
			return true
		}
	}
	return false
}

func startsWithOperator(s string) bool {
	if strings.ContainsRune("+-*/%<>=!&|?:.)]}", rune(s[0])) {
		return true
	}
	for _, word := range operatorWords {
		if strings.HasPrefix(s, word) && (len(s) == len(word) || !isIdentChar(s[len(word)])) {
			return true
		}
	}
	return false
}

// attrSet accumulates an element's attributes, keeping names unique.
type attrSet struct {
	attrs   []Attr
	classes []string
	classAt Pos
	rawCls  bool
}

func (a *attrSet) set(attr Attr) {
	for pos, existing := range a.attrs {
		if existing.Name == attr.Name {
			attr.Pos = existing.Pos
			a.attrs[pos] = attr
			return
		}
	}
	a.attrs = append(a.attrs, attr)
}

func (a *attrSet) addClass(source string, pos Pos, unescaped bool) {
	if len(a.classes) == 0 {
		a.classAt = pos
	}
	a.classes = append(a.classes, source)
	a.rawCls = a.rawCls || unescaped
}

// build returns the attributes, with every class source merged into a
// single class attribute in the position of the first one.
func (a *attrSet) build() ([]Attr, error) {
	if len(a.classes) == 0 {
		return a.attrs, nil
	}
	source := a.classes[0]
	if len(a.classes) > 1 {
		source = "[" + strings.Join(a.classes, ", ") + "]"
	}
	value, err := compileExpr(source)
	if err != nil {
		return nil, syntaxErrorf(a.classAt, "invalid class value %q: %s", source, err)
	}
	class := Attr{Pos: a.classAt, Name: "class", Value: value, Unescaped: a.rawCls}
	result := make([]Attr, 0, len(a.attrs)+1)
	inserted := false
	for _, attr := range a.attrs {
		if !inserted && comesBefore(a.classAt, attr.Pos) {
			result = append(result, class)
			inserted = true
		}
		result = append(result, attr)
	}
	if !inserted {
		result = append(result, class)
	}
	return result, nil
}

func comesBefore(a, b Pos) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}

func literalSource(s string) string {
	return strconv.Quote(s)
}

type attrError struct {
	offset int
	msg    string
}

func (e *attrError) Error() string {
	return e.msg
}

func errorAt(offset int, format string, args ...any) error {
	return &attrError{offset: offset, msg: fmt.Sprintf(format, args...)}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
