package pug

import (
	"fmt"
	"strings"
)

// line is a single line of template source, split into its indentation
// and its content.
type line struct {
	num    int
	indent string
	body   string
}

func (l line) blank() bool {
	return l.body == ""
}

// lexer hands out the lines of a template and measures their indentation.
// The indent unit is inferred from the first indented line; every indented
// line after that must be a whole number of units deep.
type lexer struct {
	file  string
	lines []line
	next  int
	unit  string
}

func newLexer(file, src string) *lexer {
	src = strings.TrimPrefix(src, "\ufeff")
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	raw := strings.Split(src, "\n")
	lines := make([]line, 0, len(raw))
	for pos, text := range raw {
		text = strings.TrimRight(text, " \t")
		body := strings.TrimLeft(text, " \t")
		lines = append(lines, line{
			num:    pos + 1,
			indent: text[:len(text)-len(body)],
			body:   body,
		})
	}
	return &lexer{file: file, lines: lines}
}

func (l *lexer) pos(ln line, offset int) Pos {
	return Pos{File: l.file, Line: ln.num, Column: len(ln.indent) + offset + 1}
}

// peek returns the next line without consuming it.
func (l *lexer) peek() (line, bool) {
	if l.next >= len(l.lines) {
		return line{}, false
	}
	return l.lines[l.next], true
}

// advance consumes and returns the next line.
func (l *lexer) advance() (line, bool) {
	ln, ok := l.peek()
	if ok {
		l.next++
	}
	return ln, ok
}

// depth returns how many indent units deep ln is.
func (l *lexer) depth(ln line) (int, error) {
	if ln.indent == "" {
		return 0, nil
	}
	if strings.Contains(ln.indent, " ") && strings.Contains(ln.indent, "\t") {
		return 0, syntaxErrorf(Pos{File: l.file, Line: ln.num, Column: 1}, "indentation mixes tabs and spaces")
	}
	if l.unit == "" {
		l.unit = ln.indent
		return 1, nil
	}
	if ln.indent[0] != l.unit[0] {
		return 0, syntaxErrorf(Pos{File: l.file, Line: ln.num, Column: 1}, "inconsistent indentation: expected %s, got %s", describeIndent(l.unit), describeIndent(ln.indent))
	}
	if len(ln.indent)%len(l.unit) != 0 {
		return 0, syntaxErrorf(Pos{File: l.file, Line: ln.num, Column: len(ln.indent) + 1}, "inconsistent indentation: expected a multiple of %s, got %s", describeIndent(l.unit), describeIndent(ln.indent))
	}
	return len(ln.indent) / len(l.unit), nil
}

// block consumes the lines nested deeper than depth and returns their text
// with the indentation of the first nesting level removed. Deeper
// indentation is kept as part of the text. Blank lines in the middle of the
// block are kept; trailing blank lines are left for the parser.
func (l *lexer) block(depth int) ([]string, error) {
	var texts []string
	var blanks int
	for {
		ln, ok := l.peek()
		if !ok {
			break
		}
		if ln.blank() {
			l.next++
			blanks++
			continue
		}
		if l.unit == "" {
			if ln.indent == "" {
				break
			}
			if _, err := l.depth(ln); err != nil {
				return nil, err
			}
		}
		strip := (depth + 1) * len(l.unit)
		if len(ln.indent) < strip {
			break
		}
		if strings.Trim(ln.indent[:strip], string(l.unit[0])) != "" {
			return nil, syntaxErrorf(Pos{File: l.file, Line: ln.num, Column: 1}, "inconsistent indentation: expected %s", describeIndent(l.unit))
		}
		for ; blanks > 0; blanks-- {
			texts = append(texts, "")
		}
		l.next++
		texts = append(texts, ln.indent[strip:]+ln.body)
	}
	// give the trailing blank lines back; they don't belong to the block
	l.next -= blanks
	return texts, nil
}

func describeIndent(indent string) string {
	noun := "space"
	if indent[0] == '\t' {
		noun = "tab"
	}
	if len(indent) != 1 {
		noun += "s"
	}
	return fmt.Sprintf("%d %s", len(indent), noun)
}
