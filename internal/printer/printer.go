// Package printer renders user-facing CLI output with consistent colors.
package printer

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed, color.Bold)
	cyan    = color.New(color.FgCyan)
	magenta = color.New(color.FgMagenta)
	bold    = color.New(color.Bold)
)

// Success prints a success message in green with a checkmark prefix.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color.
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix.
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Step prints a step message with emphasis (used in multi-step operations).
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Move prints one applied move: number, side, move text, and who played it.
func Move(number int, side, move, agentName string) {
	bold.Printf("%3d. ", number)
	if side == "White" {
		fmt.Printf("%-8s", move)
	} else {
		magenta.Printf("%-8s", move)
	}
	fmt.Printf(" %s (%s)\n", side, agentName)
}

// Thought prints an agent's move explanation, dimmed and indented.
func Thought(text string) {
	if text == "" {
		return
	}
	color.New(color.Faint).Printf("     %s\n", text)
}

// Clocks prints both remaining clocks on one line.
func Clocks(white, black time.Duration) {
	cyan.Printf("⏱  White %s | Black %s\n", formatClock(white), formatClock(black))
}

// Board prints a text diagram of the position.
func Board(diagram string) {
	fmt.Println(diagram)
}

// Verdict prints a terminal match summary, green for a decisive result and
// yellow for draws and stopped matches.
func Verdict(summary string, decisive bool) {
	if decisive {
		green.Printf("★ %s\n", summary)
	} else {
		yellow.Printf("– %s\n", summary)
	}
}

// Error creates a formatted error message with title, explanation, and
// suggestions. Prints to stderr with colors and returns a simple error for
// Cobra (which won't re-print it due to SilenceErrors).
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	fmt.Fprintf(os.Stderr, "%s\n", explanation)

	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	return fmt.Errorf("%s", title)
}

// Println prints a plain message (for output that doesn't need coloring).
func Println(a ...any) {
	fmt.Println(a...)
}

// Printf prints a plain formatted message (for output that doesn't need coloring).
func Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
