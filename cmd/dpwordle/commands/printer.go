package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// PrintError reports a failed command on stderr.
func PrintError(err error) {
	red.Fprintf(os.Stderr, "error: ")
	fmt.Fprintln(os.Stderr, err)
}

// colorize renders guess in Wordle colors: green for correct letters,
// yellow for present ones.
func colorize(guess string, c clue.Clue) string {
	if color.NoColor {
		return clue.Pretty(guess, c)
	}
	var s string
	for i := 0; i < len(guess) && i < clue.Length; i++ {
		letter := string(guess[i])
		switch c[i] {
		case clue.Correct:
			s += green.Sprint(letter)
		case clue.Present:
			s += yellow.Sprint(letter)
		default:
			s += letter
		}
	}
	return s
}

func printVerdict(w io.Writer, won bool, format string, a ...any) {
	if won {
		green.Fprintf(w, "✓ "+format+"\n", a...)
	} else {
		red.Fprintf(w, "✗ "+format+"\n", a...)
	}
}
