package pug

import (
	"context"
	"fmt"
	"strings"

	"github.com/natefinch/atomic"
)

// RenderFileTo renders the template in filename with locals and writes the
// HTML to dest. dest is replaced atomically: it's left untouched if
// rendering or writing fails, and readers never see a partially written
// file.
func RenderFileTo(ctx context.Context, filename, dest string, opts Options, locals Locals) error {
	html, err := RenderFile(ctx, filename, opts, locals)
	if err != nil {
		return err
	}
	err = atomic.WriteFile(dest, strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("error writing %q: %w", dest, err)
	}
	logger(ctx).DebugContext(ctx, "wrote rendered template", "file", filename, "dest", dest)
	return nil
}
