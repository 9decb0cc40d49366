package terminal

import (
	"fmt"

	"github.com/fatih/color"
)

// errorStyle always emits ANSI codes; the output goes to a terminal emulator,
// not to our own stdout, so tty detection does not apply.
var errorStyle = func() *color.Color {
	c := color.New(color.FgRed, color.Bold)
	c.EnableColor()
	return c
}()

// FormatError renders msg (and err, if any) as a red line for a terminal surface.
func FormatError(msg string, err error) string {
	text := msg
	if err != nil {
		text = fmt.Sprintf("%s: %v", msg, err)
	}
	return errorStyle.Sprint(text) + "\r\n"
}
