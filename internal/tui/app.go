// Package tui implements a read-only inspector for displayd: a two-tab
// terminal UI (current layout / learned database) driven entirely by the
// control socket, built with bubbletea/lipgloss in the style the erans
// hyprmon-derived reference model uses for its own monitor-arrangement view.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/displayd/internal/ipc"
)

type tab int

const (
	tabLayout tab = iota
	tabDatabase
)

func (t tab) String() string {
	switch t {
	case tabLayout:
		return "Layout"
	case tabDatabase:
		return "Database"
	default:
		return "?"
	}
}

type model struct {
	client *ipc.Client

	active tab
	status *ipc.StatusData
	db     *ipc.ListDBData

	width  int
	height int
	err    error
}

// New creates the inspector model backed by the daemon's control socket.
func New() model {
	return model{client: ipc.NewClient(), active: tabLayout}
}

// Run starts the inspector's bubbletea program, blocking until the user
// quits.
func Run() error {
	p := tea.NewProgram(New())
	_, err := p.Run()
	return err
}

type refreshMsg struct {
	status *ipc.StatusData
	db     *ipc.ListDBData
	err    error
}

func (m model) Init() tea.Cmd {
	return m.refresh()
}

func (m model) refresh() tea.Cmd {
	return func() tea.Msg {
		status, err := m.client.Status()
		if err != nil {
			return refreshMsg{err: err}
		}
		db, err := m.client.ListDB()
		if err != nil {
			return refreshMsg{err: err}
		}
		return refreshMsg{status: status, db: db}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.db = msg.db
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			m.active = (m.active + 1) % 2
			return m, nil
		case "shift+tab", "left", "h":
			m.active = (m.active + 1) % 2
			return m, nil
		case "r":
			return m, m.refresh()
		}
	}
	return m, nil
}

var (
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Underline(true).Padding(0, 1)
	inactiveTabStyle = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	headerStyle      = lipgloss.NewStyle().Bold(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	footerStyle      = lipgloss.NewStyle().Faint(true)
)

func (m model) View() string {
	var b strings.Builder

	tabs := make([]string, 0, 2)
	for _, t := range []tab{tabLayout, tabDatabase} {
		if t == m.active {
			tabs = append(tabs, activeTabStyle.Render(t.String()))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(t.String()))
		}
	}
	b.WriteString(strings.Join(tabs, " "))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n\n")
	} else {
		switch m.active {
		case tabLayout:
			b.WriteString(renderLayoutTab(m.status))
		case tabDatabase:
			b.WriteString(renderDatabaseTab(m.db))
		}
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("tab: switch  r: refresh  q: quit"))
	return b.String()
}
