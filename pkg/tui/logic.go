package tui

import (
	"fmt"
	"strings"

	"campwatch/pkg/render"
	"campwatch/pkg/utils"
)

func (m *model) updateContributionsViewport() {
	m.viewport.SetContent(contributionRows(m.snap.Lists[render.TargetContributions]))
}

func contributionRows(items []render.ListItem) string {
	if len(items) == 0 {
		return subtleStyle.Render("No contributions yet")
	}

	rows := make([]string, 0, len(items)+1)
	rows = append(rows, tableHeaderStyle.Render(fmt.Sprintf("%-14s %-14s %12s  %s", "FROM", "TX", "AMOUNT", "WHEN")))
	for _, it := range items {
		rows = append(rows, fmt.Sprintf("%-14s %-14s %12s  %s",
			it.Sender,
			utils.TruncateAddress(it.Signature, 6, 6),
			it.AmountText,
			it.When,
		))
	}
	return strings.Join(rows, "\n")
}

// contributionSeries returns the running total of contributions in list order.
func contributionSeries(items []render.ListItem) []float64 {
	if len(items) == 0 {
		return nil
	}
	series := make([]float64, len(items))
	var total float64
	for i, it := range items {
		total += it.Amount
		series[i] = total
	}
	return series
}
