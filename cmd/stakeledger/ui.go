package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess   = lipgloss.Color("#00D26A")
	colorAddress   = lipgloss.Color("#00B4D8")
	colorMeta      = lipgloss.Color("#555555")
	colorHighlight = lipgloss.Color("#F15BB5")

	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleAddress = lipgloss.NewStyle().Foreground(colorAddress)
	styleValue   = lipgloss.NewStyle().Bold(true)
	styleMeta    = lipgloss.NewStyle().Foreground(colorMeta)
	styleHeader  = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
	styleTitle   = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true).Underline(true)
)

func success(msg string) string { return styleSuccess.Render("✓ " + msg) }

func styledAddr(s string) string { return styleAddress.Render(s) }

func styledVal(s string) string { return styleValue.Render(s) }

// pad left-aligns s within width columns.
func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// printBlock writes a titled key/value block.
func printBlock(w io.Writer, title string, pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		width = max(width, len(p[0]))
	}
	fmt.Fprintln(w, styleTitle.Render(title))
	for _, p := range pairs {
		fmt.Fprintf(w, "  %s  %s\n", styleMeta.Render(pad(p[0], width)), p[1])
	}
}

// printTable writes rows under headers with columns sized to their content.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i := range headers {
			if i < len(r) {
				widths[i] = max(widths[i], len(r[i]))
			}
		}
	}

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = styleHeader.Render(pad(h, widths[i]))
	}
	fmt.Fprintln(w, strings.Join(cells, "  "))
	for i := range headers {
		cells[i] = styleMeta.Render(strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(w, strings.Join(cells, "  "))
	for _, r := range rows {
		for i := range headers {
			v := ""
			if i < len(r) {
				v = r[i]
			}
			cells[i] = pad(v, widths[i])
		}
		fmt.Fprintln(w, strings.Join(cells, "  "))
	}
}
