// Package ui renders queryctl's terminal output: lipgloss for layout,
// fatih/color for row/value emphasis, and a small fixed-width table
// renderer for query results.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			MarginBottom(1)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// PrintHeader prints a bordered title/subtitle banner, used once per
// command invocation to name the backend and query being run.
func PrintHeader(title, subtitle string) {
	header := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 2).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				TitleStyle.Render(title),
				SecondaryStyle.Render(subtitle),
			),
		)
	fmt.Println(header)
}

// PrintError prints an error message to stderr in bold red.
func PrintError(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprintf("✗ "+format, args...))
}

// PrintTable renders a simple fixed-width table: a bold header row in
// the primary color, followed by plain rows. Column widths are computed
// from the widest cell per column, which is all queryctl's row counts
// ever need.
func PrintTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerColor := color.New(color.FgCyan, color.Bold)
	printRow(headers, widths, func(s string) string { return headerColor.Sprint(s) })

	var rule []string
	for _, w := range widths {
		rule = append(rule, strings.Repeat("-", w))
	}
	fmt.Println(strings.Join(rule, "-+-"))

	for _, row := range rows {
		printRow(row, widths, func(s string) string { return s })
	}
}

func printRow(cells []string, widths []int, style func(string) string) {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		w := 0
		if i < len(widths) {
			w = widths[i]
		}
		padded[i] = style(fmt.Sprintf("%-*s", w, cell))
	}
	fmt.Println(strings.Join(padded, " | "))
}

// PrintSummary prints a one-line success summary in bold green.
func PrintSummary(format string, args ...interface{}) {
	fmt.Println(color.New(color.FgGreen, color.Bold).Sprintf("✓ "+format, args...))
}
