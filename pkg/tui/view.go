package tui

import (
	"bytes"
	"fmt"
	"strings"

	"campwatch/pkg/render"
	"campwatch/pkg/utils"
	"campwatch/pkg/watcher"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/mdp/qrterminal/v3"
)

func (m model) View() string {
	if m.contractForm != nil {
		return m.viewContractForm()
	}
	if m.showHelp {
		return m.viewHelp()
	}
	if m.showQR {
		return m.viewQR()
	}
	if m.showChart {
		return m.viewChart()
	}

	var content string
	switch {
	case m.snap.Visible[render.TargetError]:
		content = m.viewError()
	case m.snap.Visible[render.TargetMainContent]:
		content = m.viewMain()
	default:
		content = boxStyle.Render(fmt.Sprintf("%s Loading campaign %s", m.spinner.View(), utils.ShortAddress(m.state.ContractAddress)))
	}

	footer := m.viewFooter()
	h := m.height - 1
	if h < 0 {
		h = 0
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewTopBar(),
		lipgloss.Place(
			m.width,
			h,
			lipgloss.Center,
			lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
		),
	)
}

func (m model) viewTopBar() string {
	left := titleStyle.Render("campwatch")
	if name := m.snap.Text[render.TargetTokenName]; name != "" {
		left = lipgloss.JoinHorizontal(lipgloss.Top, left, subtleStyle.Render(" "+name))
	}

	indicator := "☾"
	if m.snap.Visible[render.TargetSunIcon] {
		indicator = "☀"
	}
	state := m.state.StateName
	if m.state.Paused {
		state += " ⏸"
	}
	if m.busy {
		state = m.spinner.View() + state
	}
	if iv := m.cfg.PollInterval(); iv > 0 && !m.state.Paused {
		state += fmt.Sprintf(" (%s)", iv)
	}
	right := subtleStyle.Render(fmt.Sprintf("%s • %s %s ", state, m.snap.Text[render.TargetCurrentTime], indicator))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", gap), right)
}

func (m model) viewFooter() string {
	line := fmt.Sprintf("r:ref • R:rld • c:cpy • o:esc • p:pad • Q:qr • g:grf • t:thm • ?:hlp • q:quit • v%s", Version)
	var footer string
	if m.width > 0 {
		footer = subtleStyle.Width(m.width).Align(lipgloss.Center).Render(line)
	} else {
		footer = subtleStyle.Render(line)
	}
	if m.statusMessage != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render(m.statusMessage), footer)
	}
	return footer
}

func (m model) viewContractForm() string {
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Watch Campaign"),
			"\n",
			m.contractForm.View(),
			"\n",
			subtleStyle.Render("Enter to confirm • Esc to quit"),
		)),
	)
}

func (m model) viewError() string {
	msg := m.snap.Text[render.TargetError]
	if msg == "" {
		msg = "unknown error"
	}
	lines := []string{
		errStyle.Render("Error loading campaign"),
		"\n",
		msg,
	}
	if m.snap.Visible[render.TargetRetry] {
		lines = append(lines, "\n", subtleStyle.Render("Press r to retry"))
	}
	return boxStyle.BorderForeground(lipgloss.Color("#FF0000")).Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}

func row(label, value string) string {
	if value == "" {
		value = render.Placeholder
	}
	return labelStyle.Render(label) + value
}

func (m model) viewMain() string {
	p := m.palette()
	box := boxStyle.BorderForeground(p.accent)
	t := m.snap.Text

	width := m.width - 8
	if width > 100 {
		width = 100
	}
	if width < 40 {
		width = 40
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Background(p.accent).Render(t[render.TargetTokenName]),
		row("Type", t[render.TargetCampaignType]),
		row("Time left", t[render.TargetTimeLeft]),
		row("Contract", t[render.TargetContractAddress]),
	)

	percent := m.snap.Progress[render.TargetProgressBar]
	progress := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s  •  %s", t[render.TargetProgressText], t[render.TargetNeededAmount])),
		progressBar(percent, width-4, p.barStart, p.barEnd),
		fmt.Sprintf("%s  •  %s  •  %s", infoStyle.Render(t[render.TargetPercentFunded]), t[render.TargetSolAmount], t[render.TargetLivePrice]),
		subtleStyle.Render(t[render.TargetLastUpdated]),
	)

	half := (width - 2) / 2
	stats := lipgloss.JoinVertical(lipgloss.Left,
		row("Contributors", t[render.TargetContributorCount]),
		row("Contributions", t[render.TargetContributionCount]),
		row("Top", fmt.Sprintf("%s (%s)", t[render.TargetTopContributor], t[render.TargetTopContribution])),
		row("Average ($)", t[render.TargetAvgContribution]),
		row("Speed", t[render.TargetFundingSpeed]),
		row("Created", t[render.TargetCampaignCreated]),
		row("Expires", t[render.TargetExpiresAt]),
	)
	escrow := lipgloss.JoinVertical(lipgloss.Left,
		row("Escrow", utils.ShortAddress(t[render.TargetEscrowAddress])),
		row("Balance", t[render.TargetEscrowBalance]),
		row("QR", qrHint(t[render.TargetQRPayload], m.snap.Images[render.TargetQRCode])),
	)
	middle := lipgloss.JoinHorizontal(lipgloss.Top,
		box.Width(half).Render(stats),
		box.Width(half).Render(escrow),
	)

	contributions := lipgloss.JoinVertical(lipgloss.Left,
		subtleStyle.Render("Recent contributions"),
		m.viewport.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		box.Width(width).Render(header),
		box.Width(width).Render(progress),
		middle,
		box.Width(width).Render(contributions),
	)
}

func qrHint(payload, image string) string {
	switch {
	case payload != "":
		return "Solana Pay (Q)"
	case image != "":
		return "image only"
	}
	return ""
}

// qrContent is what the QR view encodes: the Solana Pay URI when the backend
// supplied one, else the bare escrow address.
func (m model) qrContent() string {
	if uri := m.snap.Text[render.TargetQRPayload]; uri != "" {
		return uri
	}
	return m.snap.Text[render.TargetEscrowAddress]
}

func (m model) viewQR() string {
	header := titleStyle.Render("Contribute")
	payload := m.qrContent()

	var body string
	if payload == "" {
		body = subtleStyle.Render("No escrow wallet loaded.")
	} else {
		var buf bytes.Buffer
		qrterminal.GenerateHalfBlock(payload, qrterminal.L, &buf)
		body = lipgloss.JoinVertical(lipgloss.Center,
			buf.String(),
			subtleStyle.Render(utils.TruncateString(payload, 60)),
		)
	}

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, header, "\n", body))
	footer := subtleStyle.Render("c: copy escrow • o: open explorer • Q/esc: back")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewChart() string {
	header := titleStyle.Render("Contributions")
	series := contributionSeries(m.snap.Lists[render.TargetContributions])

	var graph string
	if len(series) > 1 {
		width := m.width - 14
		if width < 10 {
			width = 10
		}
		height := m.height - 12
		if height < 5 {
			height = 5
		}
		graph = asciigraph.Plot(series,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption("Cumulative contributions (SOL)"),
		)
	} else {
		graph = "Not enough data to draw graph."
	}

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, header, "\n", graph))
	footer := subtleStyle.Render("g/esc: back")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewHelp() string {
	title := "Main View"
	if m.state.State == watcher.StateFailed {
		title = "Error"
	}
	shortcuts := []string{
		"r: Refresh contributions (retry after an error)",
		"R: Reload campaign",
		"c: Copy escrow address",
		"y: Copy contract address",
		"o: Open escrow in explorer",
		"p: Open launchpad page",
		"Q: Show contribution QR",
		"g: Contribution graph",
		"t: Toggle theme",
		"↑/k ↓/j: Scroll contributions",
		"q: Quit",
		"?: Toggle Help",
	}

	header := titleStyle.Render(fmt.Sprintf("Help: %s", title))
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", strings.Join(shortcuts, "\n")))
	footer := subtleStyle.Render("Press '?' or 'esc' to close")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
	)
}
