package tui

import (
	"math"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/gamut"
)

// openBrowser opens the specified URL in the default browser.
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start"}
	case "darwin":
		cmd = "open"
	default: // "linux", "freebsd", "openbsd", "netbsd"
		cmd = "xdg-open"
	}
	args = append(args, url)
	return exec.Command(cmd, args...).Start()
}

// contributionsHeight is the viewport height left over after the fixed boxes.
func contributionsHeight(termHeight int) int {
	h := termHeight - 26
	if h < 4 {
		return 4
	}
	return h
}

// filledCells converts a percentage into a number of bar cells.
func filledCells(percent float64, width int) int {
	if width <= 0 {
		return 0
	}
	if percent <= 0 {
		return 0
	}
	if percent >= 100 {
		return width
	}
	n := int(math.Round(percent / 100 * float64(width)))
	if n > width {
		n = width
	}
	return n
}

// progressBar draws the funded share as a gradient from first to last.
func progressBar(percent float64, width int, first, last string) string {
	filled := filledCells(percent, width)
	var b strings.Builder
	if filled > 0 {
		b.WriteString(fadeString(strings.Repeat("█", filled), first, last))
	}
	b.WriteString(subtleStyle.Render(strings.Repeat("░", width-filled)))
	return b.String()
}

// fadeString colours each rune of s along a blend between two hex colours.
func fadeString(s, first, last string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return ""
	}
	colors := gamut.Blends(lipgloss.Color(first), lipgloss.Color(last), len(runes))

	var b strings.Builder
	for i, r := range runes {
		col, _ := colorful.MakeColor(colors[i%len(colors)])
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(col.Hex())).Render(string(r)))
	}
	return b.String()
}
