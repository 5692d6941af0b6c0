package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"campwatch/pkg/render"
	"campwatch/pkg/watcher"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.contractForm != nil {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			if msg.String() == "ctrl+c" {
				m.watcher.Close()
				return m, tea.Quit
			}
			return m.updateContractForm(msg)
		case tea.WindowSizeMsg, watcher.Event, uiTickMsg, spinner.TickMsg:
			// keep the background tick chains alive while the form is open
		default:
			return m.updateContractForm(msg)
		}
	}

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = contributionsHeight(msg.Height)
		m.updateContributionsViewport()

	case watcher.Event:
		cmds = append(cmds, listenForWatcher(m.sub))
		m.refresh()
		if msg.Type == watcher.EventLoadFailed {
			m.statusMessage = "Error loading campaign"
		}

	// Terminal focus stands in for page visibility.
	case tea.FocusMsg:
		m.watcher.Resume()
		m.refresh()
	case tea.BlurMsg:
		m.watcher.Pause()
		m.refresh()

	case actionResultMsg:
		m.busy = false
		switch {
		case msg.err == nil:
			if msg.action == "contributions" {
				m.statusMessage = "Contributions refreshed"
				cmds = append(cmds, clearStatusAfter(2*time.Second))
			}
		case errors.Is(msg.err, watcher.ErrStale):
		case msg.action == "contributions":
			m.statusMessage = "Refresh failed: " + msg.err.Error()
			cmds = append(cmds, clearStatusAfter(3*time.Second))
		}
		m.refresh()

	case tea.KeyMsg:
		if msg.String() == "?" {
			m.showHelp = !m.showHelp
			return m, nil
		}
		if m.showHelp {
			if msg.String() == "q" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			m.watcher.Close()
			return m, tea.Quit
		case "esc":
			m.showQR = false
			m.showChart = false
		case "r":
			if m.busy {
				break
			}
			m.busy = true
			if m.state.State == watcher.StateFailed || m.state.Campaign == nil {
				m.statusMessage = "Retrying..."
				cmds = append(cmds, loadCmd(m.watcher))
			} else {
				m.statusMessage = "Refreshing contributions..."
				cmds = append(cmds, refreshContributionsCmd(m.watcher))
			}
		case "R":
			if !m.busy {
				m.busy = true
				m.statusMessage = "Reloading campaign..."
				cmds = append(cmds, loadCmd(m.watcher))
			}
		case "t":
			if m.theme != nil {
				th, err := m.theme.Toggle()
				if err != nil {
					m.logger.Warn("toggle theme", "err", err)
					m.statusMessage = fmt.Sprintf("Theme unchanged: %v", err)
				} else {
					m.statusMessage = fmt.Sprintf("Theme: %s", th)
				}
				cmds = append(cmds, clearStatusAfter(time.Second))
				m.refresh()
			}
		case "c":
			cmds = append(cmds, m.copyTarget(render.TargetEscrowAddress, "Escrow address"))
		case "y":
			cmds = append(cmds, m.copyTarget(render.TargetContractAddress, "Contract address"))
		case "o":
			cmds = append(cmds, m.open(m.snap.Links[render.TargetEscrowLink]))
		case "p":
			cmds = append(cmds, m.open(m.snap.Links[render.TargetLaunchpadLink]))
		case "Q":
			m.showQR = !m.showQR
		case "g":
			m.showChart = !m.showChart
		case "up", "k":
			m.viewport.LineUp(1)
		case "down", "j":
			m.viewport.LineDown(1)
		}

	case uiTickMsg:
		m.refresh()
		cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }))

	case statusMsg:
		m.statusMessage = string(msg)
		cmds = append(cmds, clearStatusAfter(time.Second))

	case clearStatusMsg:
		m.statusMessage = ""

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) updateContractForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.contractForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.contractForm = f

		switch m.contractForm.State {
		case huh.StateCompleted:
			addr := strings.TrimSpace(*m.contractInput)
			m.contractForm = nil
			m.watcher.SetContractAddress(addr)
			m.logger.Info("contract entered", "contract", addr)
			return m, tea.Batch(cmd, loadCmd(m.watcher))
		case huh.StateAborted:
			m.watcher.Close()
			return m, tea.Quit
		}
	}
	return m, cmd
}

func (m model) copyTarget(target, label string) tea.Cmd {
	text := m.snap.Text[target]
	if text == "" {
		return nil
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.logger.Warn("clipboard", "err", err)
		return func() tea.Msg { return statusMsg("Failed to copy to clipboard") }
	}
	return func() tea.Msg { return statusMsg(label + " copied!") }
}

func (m model) open(url string) tea.Cmd {
	if url == "" || url == "#" {
		return nil
	}
	if err := openBrowser(url); err != nil {
		m.logger.Warn("open browser", "url", url, "err", err)
		return func() tea.Msg { return statusMsg("Failed to open browser") }
	}
	return func() tea.Msg { return statusMsg("Opened " + url) }
}
