package vos

import (
	"io"
	"os"

	"golang.org/x/term"
)

// VIO holds the standard streams of the shell.
type VIO interface {
	Stdin() io.ReadCloser
	Stdout() io.WriteCloser
	Stderr() io.WriteCloser
}

type VIOAdapter struct {
	IStdin  io.ReadCloser
	IStdout io.WriteCloser
	IStderr io.WriteCloser
}

func NewVIOAdapter(stdin io.Reader, stdout, stderr io.Writer) *VIOAdapter {
	return &VIOAdapter{
		IStdin:  toReadCloserOrDiscard(stdin),
		IStdout: toWriteCloserOrDiscard(stdout),
		IStderr: toWriteCloserOrDiscard(stderr),
	}
}

// NewOSIO wires the shell to the process's own standard streams.
func NewOSIO() *VIOAdapter {
	return NewVIOAdapter(os.Stdin, os.Stdout, os.Stderr)
}

// NewNullIO creates a valid /dev/null style I/O, reads won't work and
// writes will be discarded.
func NewNullIO() VIO {
	return NewVIOAdapter(nil, nil, nil)
}

var _ VIO = (*VIOAdapter)(nil)

func (pr *VIOAdapter) Stdin() io.ReadCloser {
	return pr.IStdin
}

func (pr *VIOAdapter) Stdout() io.WriteCloser {
	return pr.IStdout
}

func (pr *VIOAdapter) Stderr() io.WriteCloser {
	return pr.IStderr
}

// Files returns the streams that are backed by real descriptors, in
// stdin, stdout, stderr order. Streams that aren't files are nil, which
// children see as closed.
func Files(vio VIO) [3]*os.File {
	var out [3]*os.File
	for i, stream := range []interface{}{vio.Stdin(), vio.Stdout(), vio.Stderr()} {
		if fd, ok := stream.(*os.File); ok {
			out[i] = fd
		}
	}
	return out
}

// IsTerminal reports whether the stream is attached to a terminal.
func IsTerminal(stream interface{}) bool {
	fd, ok := stream.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(fd.Fd()))
}

// TerminalWidth returns the width of the terminal behind the stream, or
// fallback if it can't be determined.
func TerminalWidth(stream interface{}, fallback int) int {
	fd, ok := stream.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(fd.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

func toWriteCloserOrDiscard(w io.Writer) io.WriteCloser {
	if w == nil {
		return &devNull{}
	}
	if wc, ok := w.(io.WriteCloser); ok {
		return wc
	}

	return nopWriteCloser{w}
}

func toReadCloserOrDiscard(r io.Reader) io.ReadCloser {
	if r == nil {
		return &devNull{}
	}
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}

	return io.NopCloser(r)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// devNull implemnets io.Reader and io.Writer, always closing for reads and
// discarding writes.
type devNull struct{}

var _ io.ReadCloser = (*devNull)(nil)
var _ io.WriteCloser = (*devNull)(nil)

func (*devNull) Read([]byte) (int, error) {
	return 0, os.ErrClosed
}

func (*devNull) Close() error {
	return nil
}

func (*devNull) Write(b []byte) (int, error) {
	return len(b), nil
}
