package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/kailas-cloud/prodrag/internal/domain/search/result"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
)

func section(title string) {
	headerColor.Printf("\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))
}

func success(format string, args ...any) {
	successColor.Printf("✓ "+format+"\n", args...)
}

func warn(format string, args ...any) {
	warnColor.Printf("⚠ "+format+"\n", args...)
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("records"),
		progressbar.OptionOnCompletion(func() { fmt.Fprint(os.Stderr, "\n") }),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func newSpinner(message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return s
}

func printItems(items []result.Item) {
	if len(items) == 0 {
		dimColor.Println("  (no results)")
		return
	}
	for i, it := range items {
		fmt.Printf("  %2d. %s ", i+1, it.ID())
		dimColor.Printf("(distance %.4f)\n", it.Distance())
		fmt.Printf("      %s\n", truncate(it.Text(), 160))
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
