package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════╗
    ║  LICENSEPURGE :: free license bulk removal        ║
    ║  one request at a time, resumable, rate-aware     ║
    ╚═══════════════════════════════════════════════════╝
`

// Output is where every Print helper writes
var Output io.Writer = os.Stdout

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
	RedBg   = colorize("\033[41;97;1m%s\033[0m")
)

var colorEnabled = detectColor()

func detectColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetColor forces ANSI colors on or off
func SetColor(enabled bool) {
	colorEnabled = enabled
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

// PrintBanner prints a full-width red banner, used when a run has to stop
// and the operator must act.
func PrintBanner(title string, lines ...string) {
	width := len(title) + 4
	for _, l := range lines {
		if len(l)+4 > width {
			width = len(l) + 4
		}
	}
	if width > 100 {
		width = 100
	}

	pad := func(s string) string {
		if len(s) > width-4 {
			s = s[:width-7] + "..."
		}
		return "  " + s + strings.Repeat(" ", width-4-len(s)) + "  "
	}

	blank := strings.Repeat(" ", width)
	fmt.Fprintln(Output)
	fmt.Fprintln(Output, RedBg(blank))
	fmt.Fprintln(Output, RedBg(pad(title)))
	for _, l := range lines {
		fmt.Fprintln(Output, RedBg(pad(l)))
	}
	fmt.Fprintln(Output, RedBg(blank))
	fmt.Fprintln(Output)
}
