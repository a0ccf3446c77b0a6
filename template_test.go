package pug_test

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impractical.co/pug"
)

func TestTemplateIgnoresLaterChanges(t *testing.T) {
	t.Parallel()

	ctx := pug.LoggingContext(context.Background(), slog.Default())
	templateFS := fstest.MapFS(map[string]*fstest.MapFile{
		"foo.pug": {
			Data:    []byte("extends base\nblock name\n  | foo.pug"),
			Mode:    0777,
			ModTime: time.Now(),
		},
		"bar.pug": {
			Data:    []byte("extends base\nblock name\n  | bar.pug\n  include baz"),
			Mode:    0777,
			ModTime: time.Now(),
		},
		"baz.pug": {
			Data:    []byte("|  included baz.pug"),
			Mode:    0777,
			ModTime: time.Now(),
		},
		"base.pug": {
			Data:    []byte("block name\n  | base.pug"),
			Mode:    0777,
			ModTime: time.Now(),
		},
	})
	renderChangeAndRerender(ctx, t, templateFS, "foo.pug", "foo.pug", "foo.pug")
	renderChangeAndRerender(ctx, t, templateFS, "bar.pug", "bar.pug", "bar.pug included baz.pug")
	renderChangeAndRerender(ctx, t, templateFS, "bar.pug", "baz.pug", "bar.pug included baz.pug")
	renderChangeAndRerender(ctx, t, templateFS, "foo.pug", "base.pug", "foo.pug")
}

// renderChangeAndRerender renders file, then modifies changed, and checks
// that the compiled template still renders the same output while a new
// compile picks up the change.
func renderChangeAndRerender(ctx context.Context, t *testing.T, fsys fstest.MapFS, file, changed, expected string) {
	t.Helper()

	tmpl, err := pug.CompileFile(ctx, file, pug.Options{FS: fsys})
	require.NoError(t, err)
	output, err := tmpl.Render(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, expected, output)

	oldData := slices.Clone(fsys[changed].Data)
	fsys[changed].Data = []byte(strings.ReplaceAll(string(fsys[changed].Data), ".pug", ".pug changed"))
	defer func() {
		fsys[changed].Data = oldData
	}()

	output, err = tmpl.Render(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, expected, output, "compiled template changed after modifying %s", changed)

	recompiled, err := pug.CompileFile(ctx, file, pug.Options{FS: fsys})
	require.NoError(t, err)
	output, err = recompiled.Render(ctx, nil)
	require.NoError(t, err)
	if changed == "base.pug" {
		// the base's default content is replaced, so its change never shows
		assert.Equal(t, expected, output)
	} else {
		assert.NotEqual(t, expected, output, "recompiling didn't pick up the change to %s", changed)
	}
}

func TestCompileParsesEachFileOnce(t *testing.T) {
	t.Parallel()

	fsys := newCountingFS(map[string]string{
		"a.pug": "div\n  include b\n  include c",
		"b.pug": "p b\ninclude d",
		"c.pug": "p c\ninclude d",
		"d.pug": "span d",
	})
	tmpl, err := pug.CompileFile(context.Background(), "a.pug", pug.Options{FS: fsys})
	require.NoError(t, err)

	html, err := tmpl.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, `<div><p>b</p><span>d</span><p>c</p><span>d</span></div>`, html)
	assert.Equal(t, []string{"d.pug", "b.pug", "c.pug", "a.pug"}, tmpl.Dependencies())
	for _, name := range []string{"a.pug", "b.pug", "c.pug", "d.pug"} {
		assert.Equal(t, 1, fsys.count(name), "%s opened more than once", name)
	}

	// nothing is cached between compiles
	_, err = pug.CompileFile(context.Background(), "a.pug", pug.Options{FS: fsys})
	require.NoError(t, err)
	assert.Equal(t, 2, fsys.count("d.pug"))
}

func TestTemplateConcurrentRenders(t *testing.T) {
	t.Parallel()

	tmpl, err := pug.Compile(context.Background(), "ul\n  each n in nums\n    li= n * factor", pug.Options{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 20)
	errs := make([]error, 20)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = tmpl.Render(context.Background(), pug.Locals{
				"nums":   []int{1, 2, 3},
				"factor": i,
			})
		}()
	}
	wg.Wait()

	for i, result := range results {
		require.NoError(t, errs[i])
		var expected strings.Builder
		expected.WriteString("<ul>")
		for _, n := range []int{1, 2, 3} {
			expected.WriteString("<li>" + strconv.Itoa(n*i) + "</li>")
		}
		expected.WriteString("</ul>")
		assert.Equal(t, expected.String(), result)
	}
}

func TestTemplateExecute(t *testing.T) {
	t.Parallel()

	tmpl, err := pug.Compile(context.Background(), "p Hello, #{name}!", pug.Options{StrictUndefined: true})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, tmpl.Execute(context.Background(), &out, pug.Locals{"name": "Ada"}))
	assert.Equal(t, "<p>Hello, Ada!</p>", out.String())

	out.Reset()
	err = tmpl.Execute(context.Background(), &out, nil)
	var undefined *pug.UndefinedLocalError
	require.ErrorAs(t, err, &undefined)
	assert.Equal(t, "name", undefined.Name)
	assert.Empty(t, out.String(), "output written for a failed render")
}

func TestRenderIsDeterministic(t *testing.T) {
	t.Parallel()

	const src = `
div(class={b: true, a: true, c: false} style={width: '1px', color: 'red'})
  each v, k in m
    span(data-key=k)= v`
	locals := pug.Locals{
		"m": map[string]any{"z": 1, "y": 2, "x": 3, "w": 4},
	}
	first, err := pug.Render(context.Background(), src, pug.Options{Pretty: true}, locals)
	require.NoError(t, err)
	for range 10 {
		again, err := pug.Render(context.Background(), src, pug.Options{Pretty: true}, locals)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "<div class=\"a b\" style=\"color:red;width:1px;\">"+
		`<span data-key="w">4</span><span data-key="x">3</span><span data-key="y">2</span><span data-key="z">1</span>`+
		"</div>", first)
}
