package tui

import (
	"campwatch/pkg/theme"

	"github.com/charmbracelet/lipgloss"
)

// --- Styles ---
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	boxStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA")).
				Bold(true).
				Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
)

type palette struct {
	accent   lipgloss.Color
	barStart string
	barEnd   string
}

var palettes = map[theme.Theme]palette{
	theme.Dark: {
		accent:   lipgloss.Color("#874BFD"),
		barStart: "#7D56F4",
		barEnd:   "#04B575",
	},
	theme.Light: {
		accent:   lipgloss.Color("#1F6FEB"),
		barStart: "#F25D94",
		barEnd:   "#EDFF82",
	},
}

func (m model) palette() palette {
	if m.theme == nil {
		return palettes[theme.Dark]
	}
	if p, ok := palettes[m.theme.Current()]; ok {
		return p
	}
	return palettes[theme.Dark]
}
