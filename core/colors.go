package core

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/josephlewis42/smallsh/core/config"
	"github.com/josephlewis42/smallsh/core/vos"
)

var (
	ColorBoldGreen  = color.New(color.FgGreen, color.Bold)
	ColorBoldYellow = color.New(color.FgYellow, color.Bold)
	ColorBoldRed    = color.New(color.FgRed, color.Bold)
)

// ColorPrinter decides whether diagnostics written to a stream are colored.
type ColorPrinter struct {
	mode   string
	stream interface{}
}

// NewColorPrinter creates a printer for stream in one of the config.Color*
// modes.
func NewColorPrinter(mode string, stream interface{}) *ColorPrinter {
	return &ColorPrinter{mode: mode, stream: stream}
}

func (c *ColorPrinter) ShouldColor() bool {
	switch c.mode {
	case config.ColorNever:
		return false
	case config.ColorAlways:
		return true
	default:
		return vos.IsTerminal(c.stream)
	}
}

func (c *ColorPrinter) Sprintf(clr *color.Color, format string, a ...interface{}) string {
	if c.ShouldColor() {
		// The color package turns itself off for non-terminals; always means
		// always.
		clr.EnableColor()
		return clr.Sprintf(format, a...)
	}
	return fmt.Sprintf(format, a...)
}

func (c *ColorPrinter) Fprintln(w io.Writer, clr *color.Color, line string) {
	fmt.Fprintln(w, c.Sprintf(clr, "%s", line))
}
