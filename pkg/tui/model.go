package tui

import (
	"context"
	"io"
	"time"

	"campwatch/pkg/config"
	"campwatch/pkg/render"
	"campwatch/pkg/theme"
	"campwatch/pkg/watcher"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Version is set by Start()
var Version = "dev"

// --- Messages ---

type clearStatusMsg struct{}
type uiTickMsg time.Time
type statusMsg string

// actionResultMsg reports the outcome of a load or refresh started from a key.
type actionResultMsg struct {
	action string
	err    error
}

// --- Model ---

type model struct {
	watcher *watcher.Watcher
	board   *render.Board
	theme   *theme.Controller
	cfg     config.Config
	logger  *log.Logger
	sub     watcher.Subscriber

	snap  render.Snapshot
	state watcher.DisplayState

	width         int
	height        int
	spinner       spinner.Model
	viewport      viewport.Model
	statusMessage string
	showHelp      bool
	showQR        bool
	showChart     bool
	busy          bool

	contractForm  *huh.Form
	contractInput *string
}

// Options carries what the terminal surface needs besides the watcher.
type Options struct {
	Board  *render.Board
	Theme  *theme.Controller
	Config config.Config
	Logger *log.Logger
}

func initialModel(w *watcher.Watcher, opts Options) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	m := model{
		watcher:       w,
		board:         opts.Board,
		theme:         opts.Theme,
		cfg:           opts.Config,
		logger:        logger,
		spinner:       s,
		viewport:      viewport.New(0, 0),
		contractInput: new(string),
		sub:           w.Subscribe(),
	}
	if w.Snapshot().ContractAddress == "" {
		m.contractForm = newContractForm(m.contractInput)
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	var cmds []tea.Cmd

	cmds = append(cmds, listenForWatcher(m.sub))
	cmds = append(cmds, m.spinner.Tick)
	cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }))

	if m.contractForm != nil {
		cmds = append(cmds, m.contractForm.Init())
	} else {
		cmds = append(cmds, loadCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

// refresh pulls the latest board and controller state into the model.
func (m *model) refresh() {
	m.snap = m.board.Snapshot()
	m.state = m.watcher.Snapshot()
	m.updateContributionsViewport()
}

func listenForWatcher(sub watcher.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}

func loadCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{action: "load", err: w.Load(context.Background())}
	}
}

func refreshContributionsCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{action: "contributions", err: w.RefreshContributions(context.Background())}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
