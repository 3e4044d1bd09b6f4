// Package terminal owns the raw-mode terminal: colored line output with
// explicit flushing and single-byte input.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bral/git-triage/internal/types"
)

// Color is a foreground color hint for a category of message.
type Color int

const (
	// ColorYellow marks summaries and informational notices.
	ColorYellow Color = iota
	// ColorGreen marks local branch details.
	ColorGreen
	// ColorCyan marks remote branch details.
	ColorCyan
	// ColorBlue marks the action prompt.
	ColorBlue
	// ColorRed marks deletions and refusals.
	ColorRed
	// ColorWhite marks the restoration hint.
	ColorWhite
)

var palette = map[Color]lipgloss.Color{
	ColorYellow: lipgloss.Color("3"),
	ColorGreen:  lipgloss.Color("2"),
	ColorCyan:   lipgloss.Color("6"),
	ColorBlue:   lipgloss.Color("4"),
	ColorRed:    lipgloss.Color("1"),
	ColorWhite:  lipgloss.Color("7"),
}

// ColorMode selects when escape sequences are emitted.
type ColorMode string

// Color modes accepted by --color and the config file.
const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a color mode name.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(s)); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (use auto, always or never)", s)
	}
}

// LineEnding terminates every line; raw mode disables output translation.
const LineEnding = "\r\n"

// Presenter writes colored, CRLF-terminated lines and reads raw bytes.
// Output is buffered until Flush.
type Presenter struct {
	in      *bufio.Reader
	out     *bufio.Writer
	profile termenv.Profile
}

// NewPresenter builds a Presenter. In ColorAuto mode the color profile is
// detected from out.
func NewPresenter(in io.Reader, out io.Writer, mode ColorMode) *Presenter {
	profile := lipgloss.NewRenderer(out).ColorProfile()
	switch mode {
	case ColorNever:
		profile = termenv.Ascii
	case ColorAlways:
		if profile == termenv.Ascii {
			profile = termenv.ANSI
		}
	}
	return &Presenter{
		in:      bufio.NewReader(in),
		out:     bufio.NewWriter(out),
		profile: profile,
	}
}

// SetColor switches the foreground color for subsequent output.
func (p *Presenter) SetColor(c Color) error {
	seq := p.profile.Color(string(palette[c])).Sequence(false)
	if seq == "" {
		return nil
	}
	return p.Write(termenv.CSI + seq + "m")
}

// ResetColor restores the terminal's default attributes.
func (p *Presenter) ResetColor() error {
	if p.profile == termenv.Ascii {
		return nil
	}
	return p.Write(termenv.CSI + termenv.ResetSeq + "m")
}

// Write writes text as is.
func (p *Presenter) Write(text string) error {
	if _, err := p.out.WriteString(text); err != nil {
		return types.TerminalError("write", err)
	}
	return nil
}

// WriteLine writes text followed by CRLF.
func (p *Presenter) WriteLine(text string) error {
	return p.Write(text + LineEnding)
}

// WriteLinef formats a line and writes it followed by CRLF.
func (p *Presenter) WriteLinef(format string, a ...any) error {
	return p.WriteLine(fmt.Sprintf(format, a...))
}

// Flush pushes buffered output to the terminal.
func (p *Presenter) Flush() error {
	if err := p.out.Flush(); err != nil {
		return types.TerminalError("flush", err)
	}
	return nil
}

// ReadByte blocks for one input byte. ok is false at end of input.
func (p *Presenter) ReadByte() (b byte, ok bool, err error) {
	b, err = p.in.ReadByte()
	if errors.Is(err, io.EOF) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, types.TerminalError("read", err)
	}
	return b, true, nil
}
