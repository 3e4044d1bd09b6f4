package terminal

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"

	"github.com/bral/git-triage/internal/types"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// EnableRawMode switches f to raw mode and returns a function restoring
// the previous mode. When f is not a terminal nothing changes and the
// returned function is a no-op.
func EnableRawMode(f *os.File) (restore func() error, err error) {
	if !IsTerminal(f) {
		return func() error { return nil }, nil
	}
	fd := f.Fd()
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, types.TerminalError("enable raw mode", err)
	}
	return func() error {
		if err := term.Restore(fd, state); err != nil {
			return types.TerminalError("disable raw mode", err)
		}
		return nil
	}, nil
}

// WithRawMode runs fn with f in raw mode. The previous mode is restored on
// every return path, including a panic in fn. Errors from fn and from
// restoring are joined.
func WithRawMode(f *os.File, fn func() error) (err error) {
	restore, err := EnableRawMode(f)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, restore())
	}()
	return fn()
}

// CRLFWriter translates LF to CRLF so line-oriented writers such as a log
// handler render correctly while raw mode is active.
type CRLFWriter struct {
	W io.Writer
}

func (c CRLFWriter) Write(p []byte) (int, error) {
	converted := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	if _, err := c.W.Write(converted); err != nil {
		return 0, err
	}
	return len(p), nil
}
