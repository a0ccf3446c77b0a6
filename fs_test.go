package pug_test

import (
	"io"
	"io/fs"
	"sync"
	"time"
)

// countingFS is an fs.FS of in-memory files that records how many times
// each file is opened. It deliberately doesn't implement fs.ReadFileFS, so
// every read goes through Open.
type countingFS struct {
	files map[string]string

	mu    sync.Mutex
	opens map[string]int
}

func newCountingFS(files map[string]string) *countingFS {
	return &countingFS{files: files, opens: map[string]int{}}
}

// Open opens the named file.
// When Open returns an error, it should be of type *PathError
// with the Op field set to "open", the Path field set to name,
// and the Err field describing the problem.
func (c *countingFS) Open(name string) (fs.File, error) {
	c.mu.Lock()
	c.opens[name]++
	c.mu.Unlock()

	val, ok := c.files[name]
	if !ok || !fs.ValidPath(name) {
		return nil, &fs.PathError{
			Op:   "open",
			Path: name,
			Err:  fs.ErrNotExist,
		}
	}
	return &staticFile{
		name:     name,
		contents: []byte(val),
	}, nil
}

func (c *countingFS) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[name]
}

type staticFile struct {
	name     string
	contents []byte
	offset   int
}

func (s *staticFile) Stat() (fs.FileInfo, error) {
	return s, nil
}

func (s *staticFile) Read(buf []byte) (int, error) {
	if s.offset >= len(s.contents) {
		return 0, io.EOF
	}
	n := copy(buf, s.contents[s.offset:])
	s.offset += n
	return n, nil
}

func (*staticFile) Close() error {
	return nil
}

func (s *staticFile) Name() string {
	return s.name
}

func (s *staticFile) Size() int64 {
	return int64(len(s.contents))
}

func (*staticFile) Mode() fs.FileMode {
	return 0400
}

func (*staticFile) ModTime() time.Time {
	return time.Now()
}

func (*staticFile) IsDir() bool {
	return false
}

func (*staticFile) Sys() any {
	return nil
}
