package pug_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impractical.co/pug"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src      string
		locals   pug.Locals
		pretty   bool
		expected string
	}{
		"empty": {
			src:      "",
			expected: "",
		},
		"nested-tags": {
			src:      "div\n  p\n    span hi",
			expected: "<div><p><span>hi</span></p></div>",
		},
		"implicit-div": {
			src:      "#main.wide\n.note hi",
			expected: `<div id="main" class="wide"></div><div class="note">hi</div>`,
		},
		"block-expansion": {
			src:      "ul: li: a(href='#') x",
			expected: `<ul><li><a href="#">x</a></li></ul>`,
		},
		"piped-text": {
			src:      "p\n  | one\n  | two",
			expected: "<p>one\ntwo</p>",
		},
		"literal-html": {
			src:      "div\n  <b>raw</b>",
			expected: "<div><b>raw</b></div>",
		},
		"text-is-escaped": {
			src:      "p a < b & \"c\"",
			expected: "<p>a &lt; b &amp; &quot;c&quot;</p>",
		},
		"literal-script-is-escaped": {
			src:      "p <script>alert(1)</script>",
			expected: "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>",
		},
		"buffered-code-is-escaped": {
			src:      "p= html",
			locals:   pug.Locals{"html": "<script>alert(1)</script>"},
			expected: "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>",
		},
		"unescaped-code": {
			src:      "p!= html",
			locals:   pug.Locals{"html": "<b>bold</b>"},
			expected: "<p><b>bold</b></p>",
		},
		"interpolation": {
			src:      "p #{a} and !{a}",
			locals:   pug.Locals{"a": "<i>"},
			expected: "<p>&lt;i&gt; and <i></p>",
		},
		"code-line": {
			src:      "p\n  = 1 + 2\n  | !\n  != '<br>'",
			expected: "<p>3!<br></p>",
		},
		"attribute-escaping": {
			src:      "a(title=t data-raw!=t)",
			locals:   pug.Locals{"t": `"x" & <y>`},
			expected: `<a title="&quot;x&quot; &amp; &lt;y&gt;" data-raw=""x" & <y>"></a>`,
		},
		"boolean-attributes": {
			src:      "input(type='checkbox' checked=true disabled=false required)",
			expected: `<input type="checkbox" checked="checked" required="required"/>`,
		},
		"terse-boolean-attributes": {
			src:      "doctype html\ninput(type='checkbox' checked=true disabled=false required)",
			expected: `<!DOCTYPE html><input type="checkbox" checked required>`,
		},
		"nil-attribute": {
			src:      "a(href=link)",
			expected: "<a></a>",
		},
		"class-merging": {
			src:      "p.a.b(class=['c', ''] class={d: true, e: false})",
			expected: `<p class="a b c d"></p>`,
		},
		"style-map": {
			src:      "p(style={'font-size': '12px', color: 'red', margin: nil})",
			expected: `<p style="color:red;font-size:12px;"></p>`,
		},
		"number-attribute": {
			src:      "td(colspan=2 data-ratio=0.5)",
			expected: `<td colspan="2" data-ratio="0.5"></td>`,
		},
		"self-closing": {
			src:      "foo/\nimg",
			expected: "<foo/><img/>",
		},
		"xml-doctype": {
			src:      "doctype xml\nfeed",
			expected: `<?xml version="1.0" encoding="utf-8" ?><feed></feed>`,
		},
		"custom-doctype": {
			src:      "doctype html PUBLIC \"-//W3C//DTD HTML 4.01//EN\"",
			expected: `<!DOCTYPE html PUBLIC "-//W3C//DTD HTML 4.01//EN">`,
		},
		"comments": {
			src:      "// shown\n//- hidden\np",
			expected: "<!-- shown--><p></p>",
		},
		"block-comment": {
			src:      "//\n  line one\n  line two\np",
			expected: "<!--\nline one\nline two\n--><p></p>",
		},
		"script-block-text": {
			src:      "script.\n  if (a < b) {\n    go()\n  }",
			expected: "<script>if (a < b) {\n  go()\n}</script>",
		},
		"script-interpolation-still-escaped": {
			src:      "script.\n  var x = #{x}",
			locals:   pug.Locals{"x": "</script>"},
			expected: "<script>var x = &lt;/script&gt;</script>",
		},
		"parenthesized-directives": {
			src:      "if(a)\n  | A\nelse\n  | B\nunless(a)\n  | C\neach(v in [1, 2])\n  | #{v}",
			locals:   pug.Locals{"a": true},
			expected: "A12",
		},
		"escaped-tag-interpolation": {
			src:      `p \#[kept]`,
			expected: "<p>#[kept]</p>",
		},
		"if-else-if": {
			src:      "each n in [1, 2, 3]\n  if n == 1\n    | one\n  else if n == 2\n    | two\n  else\n    | many",
			expected: "onetwomany",
		},
		"unless": {
			src:      "unless user\n  a(href='/login') Log in",
			expected: `<a href="/login">Log in</a>`,
		},
		"truthiness": {
			src:      "if zero\n  | zero\nif empty\n  | empty\nif list\n  | list",
			locals:   pug.Locals{"zero": 0, "empty": "", "list": []string{}},
			expected: "list",
		},
		"each-slice-with-index": {
			src:      "each v, i in items\n  | #{i}:#{v};",
			locals:   pug.Locals{"items": []string{"a", "b"}},
			expected: "0:a;1:b;",
		},
		"each-map-sorted": {
			src:      "each v, k in m\n  li #{k}=#{v}",
			locals:   pug.Locals{"m": map[string]int{"b": 2, "c": 3, "a": 1}},
			expected: "<li>a=1</li><li>b=2</li><li>c=3</li>",
		},
		"each-int-map-sorted": {
			src:      "for v, k in m\n  | #{k}",
			locals:   pug.Locals{"m": map[int]string{10: "x", 9: "y", 100: "z"}},
			expected: "910100",
		},
		"each-empty-else": {
			src:      "ul\n  each item in items\n    li= item\n  else\n    li none",
			locals:   pug.Locals{"items": []string{}},
			expected: "<ul><li>none</li></ul>",
		},
		"each-undefined-else": {
			src:      "each item in items\n  li= item\nelse\n  p none",
			expected: "<p>none</p>",
		},
		"loop-variables-dont-leak": {
			src:      "each x in [1, 2]\n  | #{x}\np= x",
			locals:   pug.Locals{"x": "outer"},
			expected: "12<p>outer</p>",
		},
		"member-access": {
			src:      "p #{user.name} is #{user.age}",
			locals:   pug.Locals{"user": map[string]any{"name": "Ada", "age": 36}},
			expected: "<p>Ada is 36</p>",
		},
		"struct-fields": {
			src:      "p= page.Title",
			locals:   pug.Locals{"page": struct{ Title string }{Title: "Home"}},
			expected: "<p>Home</p>",
		},
		"undefined-renders-empty": {
			src:      "p= missing\np #{user.name}\np(title=missing)",
			expected: "<p></p><p></p><p></p>",
		},
		"nil-renders-empty": {
			src:      "p= value",
			locals:   pug.Locals{"value": nil},
			expected: "<p></p>",
		},
		"floats": {
			src:      "| #{a} #{b} #{c}",
			locals:   pug.Locals{"a": 1.5, "b": 2.0, "c": 1e21},
			expected: "1.5 2 1000000000000000000000",
		},
		"mixins": {
			src: `mixin card(title)
  .card(class=attributes.class)
    h2= title
    block
+card('One')(class='wide')
  p body
+card('Two')`,
			expected: `<div class="card wide"><h2>One</h2><p>body</p></div><div class="card"><h2>Two</h2></div>`,
		},
		"mixin-missing-arguments": {
			src:      "mixin pair(a, b)\n  | [#{a}|#{b}]\n+pair(1)",
			expected: "[1|]",
		},
		"mixin-sees-locals-not-caller-scope": {
			src:      "mixin show\n  | #{name}/#{item}\neach item in ['x']\n  +show",
			locals:   pug.Locals{"name": "n"},
			expected: "n/",
		},
		"mixin-block-uses-caller-scope": {
			src:      "mixin wrap\n  b\n    block\neach item in ['x', 'y']\n  +wrap\n    | #{item}",
			expected: "<b>x</b><b>y</b>",
		},
		"nested-mixins": {
			src:      "mixin inner\n  i\n    block\nmixin outer\n  +inner\n    block\n+outer\n  | deep",
			expected: "<i>deep</i>",
		},
		"mixin-expansion": {
			src:      "mixin li(v)\n  li= v\nul: +li('a')",
			expected: "<ul><li>a</li></ul>",
		},
		"pretty": {
			src:    "div\n  p\n    a(href='/') link\n    span x\n  ul\n    li one",
			pretty: true,
			expected: "<div>\n" +
				"  <p><a href=\"/\">link</a><span>x</span></p>\n" +
				"  <ul>\n" +
				"    <li>one</li>\n" +
				"  </ul>\n" +
				"</div>",
		},
		"pretty-pre": {
			src:      "div\n  pre\n    | a\n    |   b",
			pretty:   true,
			expected: "<div>\n  <pre>a\n  b</pre>\n</div>",
		},
		"pretty-pre-with-elements": {
			src:      "div\n  pre\n    div b\n  p",
			pretty:   true,
			expected: "<div>\n  <pre><div>b</div></pre>\n  <p></p>\n</div>",
		},
		"pretty-comments": {
			src:      "div\n  // note\n  p",
			pretty:   true,
			expected: "<div>\n  <!-- note-->\n  <p></p>\n</div>",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			html, err := pug.Render(context.Background(), test.src, pug.Options{Pretty: test.pretty}, test.locals)
			require.NoError(t, err)
			assert.Equal(t, test.expected, html)
		})
	}
}

func TestRenderCompactHasNoNewlines(t *testing.T) {
	t.Parallel()

	html, err := pug.RenderFile(context.Background(), "testdata/site/index.pug", pug.Options{}, nil)
	require.NoError(t, err)
	assert.NotContains(t, html, "\n")
	assert.NotContains(t, html, "  ")
}

func TestRenderStrictUndefined(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src  string
		name string
		line int
	}{
		"code": {
			src:  "p\n  p= missing",
			name: "missing",
			line: 2,
		},
		"interpolation": {
			src:  "p hello #{user.name}",
			name: "user",
			line: 1,
		},
		"attribute": {
			src:  "p\np\na(href=url)",
			name: "url",
			line: 3,
		},
		"condition": {
			src:  "if flag\n  p",
			name: "flag",
			line: 1,
		},
		"collection": {
			src:  "each x in xs\n  p= x",
			name: "xs",
			line: 1,
		},
		"first-undefined-in-order": {
			src:  "p= b + a",
			name: "a",
			line: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			html, err := pug.Render(context.Background(), test.src, pug.Options{StrictUndefined: true, Filename: "strict.pug"}, nil)
			var undefined *pug.UndefinedLocalError
			require.ErrorAs(t, err, &undefined)
			assert.Equal(t, test.name, undefined.Name)
			assert.Equal(t, test.line, undefined.Line)
			assert.Equal(t, "strict.pug", filepath.Base(undefined.File))
			assert.Empty(t, html)
		})
	}
}

func TestRenderStrictUndefinedAllowsDefinedNil(t *testing.T) {
	t.Parallel()

	html, err := pug.Render(context.Background(), "p= value\neach x in [1]\n  | #{x}", pug.Options{StrictUndefined: true}, pug.Locals{"value": nil})
	require.NoError(t, err)
	assert.Equal(t, "<p></p>1", html)
}

func TestRenderErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src    string
		locals pug.Locals
		msg    string
	}{
		"undeclared-mixin": {
			src: "+nope",
			msg: `<string>:1:1: mixin "nope" is not declared`,
		},
		"recursive-mixin": {
			src: "mixin again\n  +again\n+again",
			msg: `<string>:2:3: mixin "again" nested more than 100 deep`,
		},
		"not-iterable": {
			src:    "each x in n\n  p",
			locals: pug.Locals{"n": 5},
			msg:    "<string>:1:1: can't iterate over int",
		},
		"bad-operation": {
			src:    "p= a + b",
			locals: pug.Locals{"a": map[string]any{}, "b": 1},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := pug.Render(context.Background(), test.src, pug.Options{}, test.locals)
			var renderErr *pug.RenderError
			require.ErrorAs(t, err, &renderErr)
			if test.msg != "" {
				assert.Equal(t, test.msg, err.Error())
			}
		})
	}
}

func TestRenderFileExtends(t *testing.T) {
	t.Parallel()

	html, err := pug.RenderFile(context.Background(), "testdata/site/about.pug", pug.Options{
		Basedir: "testdata/site",
	}, pug.Locals{"title": "About", "name": "<Us>"})
	require.NoError(t, err)
	assert.Equal(t, `<!DOCTYPE html><html><head><title>About</title><link rel="stylesheet" href="/about.css"></head>`+
		`<body><h1>About &lt;Us&gt;</h1><footer id="footer"><p>Copyright (c) foobar</p></footer></body></html>`, html)
}

func TestRenderFileExtendsPretty(t *testing.T) {
	t.Parallel()

	html, err := pug.RenderFile(context.Background(), "testdata/site/about.pug", pug.Options{
		Basedir: "testdata/site",
		Pretty:  true,
	}, pug.Locals{"title": "About", "name": "Us"})
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`<!DOCTYPE html>`,
		`<html>`,
		`  <head>`,
		`    <title>About</title>`,
		`    <link rel="stylesheet" href="/about.css">`,
		`  </head>`,
		`  <body>`,
		`    <h1>About Us</h1>`,
		`    <footer id="footer">`,
		`      <p>Copyright (c) foobar</p>`,
		`    </footer>`,
		`  </body>`,
		`</html>`,
	}, "\n"), html)
}
