package pug

import (
	"strings"
)

// parseText splits s into literal and interpolated segments. #{expr} is
// escaped when rendered, !{expr} is not, and a backslash before either
// keeps it literal. Tag interpolation (#[tag text]) is an error unless it's
// escaped the same way. pos is the position of the first byte of s.
func parseText(s string, pos Pos) ([]Segment, error) {
	var segments []Segment
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, Segment{Literal: literal.String()})
			literal.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+2 < len(s) && (s[i+1] == '#' || s[i+1] == '!') && (s[i+2] == '{' || s[i+1:i+3] == "#[") {
			literal.WriteString(s[i+1 : i+3])
			i += 2
			continue
		}
		if c == '#' && i+1 < len(s) && s[i+1] == '[' {
			return nil, syntaxErrorf(offset(pos, i), "tag interpolation is not supported")
		}
		if (c != '#' && c != '!') || i+1 >= len(s) || s[i+1] != '{' {
			literal.WriteByte(c)
			continue
		}
		end, ok := matchClose(s, i+1)
		if !ok {
			return nil, syntaxErrorf(offset(pos, i), "unterminated interpolation")
		}
		compiled, err := compileExpr(s[i+2 : end])
		if err != nil {
			return nil, syntaxErrorf(offset(pos, i+2), "invalid interpolation %q: %s", s[i+2:end], err)
		}
		flush()
		segments = append(segments, Segment{Expr: compiled, Raw: c == '!'})
		i = end
	}
	flush()
	return segments, nil
}

func offset(pos Pos, n int) Pos {
	pos.Column += n
	return pos
}

// matchClose returns the index of the bracket closing the one at s[open],
// skipping over nested brackets and quoted strings.
func matchClose(s string, open int) (int, bool) {
	var stack []byte
	for i := open; i < len(s); i++ {
		switch c := s[i]; c {
		case '(':
			stack = append(stack, ')')
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ')', ']', '}':
			if len(stack) < 1 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		case '"', '\'', '`':
			end, ok := skipString(s, i)
			if !ok {
				return 0, false
			}
			i = end
		}
	}
	return 0, false
}

// skipString returns the index of the quote that closes the string
// starting at s[start].
func skipString(s string, start int) (int, bool) {
	quote := s[start]
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if quote != '`' {
				i++
			}
		case quote:
			return i, true
		}
	}
	return 0, false
}

// splitTopLevel splits s on sep wherever it isn't nested inside brackets or
// a quoted string.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '"', '\'', '`':
			if end, ok := skipString(s, i); ok {
				i = end
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
