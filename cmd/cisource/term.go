package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI color codes
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// termStyle provides terminal styling helpers with automatic color detection
type termStyle struct {
	w         io.Writer
	useColors bool
}

// newTermStyle styles w, with colors only when w is a terminal.
func newTermStyle(w io.Writer) *termStyle {
	f, ok := w.(*os.File)
	return &termStyle{
		w:         w,
		useColors: ok && term.IsTerminal(int(f.Fd())),
	}
}

func (t *termStyle) colorize(code, text string) string {
	if !t.useColors {
		return text
	}
	return code + text + ansiReset
}

// Header prints a section header with divider bars
func (t *termStyle) Header(title string) {
	bar := strings.Repeat("━", 72)
	fmt.Fprintln(t.w)
	fmt.Fprintln(t.w, t.colorize(ansiCyan, bar))
	fmt.Fprintln(t.w, t.colorize(ansiBold+ansiCyan, "  "+title))
	fmt.Fprintln(t.w, t.colorize(ansiCyan, bar))
	fmt.Fprintln(t.w)
}

// Success prints a success message with green checkmark
func (t *termStyle) Success(msg string) {
	fmt.Fprintln(t.w, t.colorize(ansiGreen, "✓ "+msg))
}

// Warn prints a warning message with yellow warning symbol
func (t *termStyle) Warn(msg string) {
	fmt.Fprintln(t.w, t.colorize(ansiYellow, "⚠ "+msg))
}

// Error prints an error message with red X
func (t *termStyle) Error(msg string) {
	fmt.Fprintln(t.w, t.colorize(ansiRed, "✗ "+msg))
}

// Dim returns dimmed text
func (t *termStyle) Dim(text string) string {
	return t.colorize(ansiDim, text)
}

// Bold returns bold text
func (t *termStyle) Bold(text string) string {
	return t.colorize(ansiBold, text)
}

// Info prints informational/explanatory text (dimmed)
func (t *termStyle) Info(lines ...string) {
	for _, line := range lines {
		fmt.Fprintln(t.w, t.Dim(line))
	}
}

// KeyValue prints a key-value pair for summaries
func (t *termStyle) KeyValue(key, value string) {
	fmt.Fprintf(t.w, "  %s  %s\n", t.Bold(fmt.Sprintf("%-18s", key+":")), value)
}
