package ui

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
)

var (
	// Sweeps write to stderr, so color support follows stderr.
	supportsColor = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// markerColor maps a sweep item marker to its color function.
func markerColor(marker string) func(string) string {
	switch marker {
	case "OK", "LOG":
		return ColorSuccess
	case "FAIL", "MISS", "ERROR":
		return ColorError
	case "WARN", "SKIP", "ACTIVE":
		return ColorWarning
	case "RUN":
		return ColorBold
	default:
		return ColorInfo
	}
}
