package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

const tickInterval = 100 * time.Millisecond

type doneMsg struct {
	details []string
	err     error
}

type tickMsg time.Time

type model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	title   string
	action  func(context.Context) ([]string, error)
	started time.Time
	elapsed time.Duration
	details []string
	err     error
	done    bool
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	run := func() tea.Msg {
		details, err := m.action(m.ctx)
		return doneMsg{details: details, err: err}
	}
	return tea.Batch(run, tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
			m.err = context.Canceled
			m.done = true
			return m, tea.Quit
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.elapsed = time.Time(msg).Sub(m.started)
		return m, tick()
	case doneMsg:
		m.details = msg.details
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	switch {
	case !m.done:
		fmt.Fprintf(&b, "running %s\n", m.elapsed.Truncate(tickInterval))
		return b.String()
	case m.err != nil:
		fmt.Fprintf(&b, "%s %v\n", failStyle.Render("FAILED"), m.err)
	default:
		b.WriteString(okStyle.Render("OK"))
		b.WriteString("\n")
	}
	for _, d := range m.details {
		b.WriteString(detailStyle.Render("  - " + d))
		b.WriteString("\n")
	}
	return b.String()
}

// Run shows a progress view while action runs under ctx. Ctrl+C cancels ctx
// and reports context.Canceled.
func Run(ctx context.Context, title string, action func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m := model{ctx: ctx, cancel: cancel, title: title, action: action, started: time.Now()}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, err
	}
	res := final.(model)
	return res.details, res.err
}
