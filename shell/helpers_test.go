package shell

import (
	"io"
	"testing"
)

// pipePair returns a connected in-memory pipe, closed automatically when the
// test finishes.
func pipePair(t *testing.T) (io.ReadCloser, io.WriteCloser) {
	t.Helper()
	r, w := io.Pipe()
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}
