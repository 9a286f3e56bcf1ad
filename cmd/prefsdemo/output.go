package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kalambet/simpleprefs/internal/api"
	"github.com/kalambet/simpleprefs/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// formatValue renders a preference value for terminal output. String sets
// arrive as sorted member slices.
func formatValue(v any) string {
	if members, ok := v.([]string); ok {
		return "[" + strings.Join(members, ", ") + "]"
	}
	return store.FormatValue(v)
}

// formatEntries renders entries one per line, sorted by key.
func formatEntries(entries map[string]api.Entry) string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		e := entries[k]
		fmt.Fprintf(&b, "%s (%s) = %s\n", k, e.Type, formatValue(e.Value))
	}
	return b.String()
}
