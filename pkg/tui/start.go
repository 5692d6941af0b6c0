package tui

import (
	"fmt"

	"campwatch/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the dashboard until the user quits. Terminal focus reporting
// drives pausing and resuming the balance timer.
func Start(w *watcher.Watcher, opts Options, version string) error {
	Version = version
	p := tea.NewProgram(
		initialModel(w, opts),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}
