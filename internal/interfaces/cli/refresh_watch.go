package cli

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// refreshSource is what the watcher polls
type refreshSource interface {
	State() plugindomain.RefreshState
	Repositories() []string
}

type refreshTickMsg time.Time

// refreshModel holds the state for the Bubble Tea refresh watcher
type refreshModel struct {
	source   refreshSource
	repos    []string
	interval time.Duration
	started  time.Time

	state   plugindomain.RefreshState
	frame   int
	elapsed time.Duration
}

func newRefreshModel(source refreshSource, interval time.Duration) refreshModel {
	return refreshModel{
		source:   source,
		repos:    source.Repositories(),
		interval: interval,
		started:  time.Now(),
		state:    source.State(),
	}
}

// Init implements the Bubble Tea init method
func (m refreshModel) Init() tea.Cmd {
	return m.tickCmd()
}

// Update implements the Bubble Tea update method
func (m refreshModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshTickMsg:
		m.state = m.source.State()
		m.frame = (m.frame + 1) % len(spinnerFrames)
		m.elapsed = time.Time(msg).Sub(m.started)
		if m.state.Terminal() {
			return m, tea.Quit
		}
		return m, m.tickCmd()
	}

	return m, nil
}

// View implements the Bubble Tea view method
func (m refreshModel) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	var status string
	switch m.state {
	case plugindomain.RefreshSuccess:
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render("✓ " + m.state.String())
	case plugindomain.RefreshFail, plugindomain.RefreshFailThirdRepo:
		status = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")).Render("✗ " + m.state.String())
	default:
		status = spinnerFrames[m.frame] + " " + m.state.String()
	}

	lines := []string{
		title.Render(fmt.Sprintf("Refreshing %d repositories", len(m.repos))),
	}
	for i, repo := range m.repos {
		lines = append(lines, dim.Render(fmt.Sprintf("  %d. %s", i, repo)))
	}
	lines = append(lines,
		fmt.Sprintf("%s  %s", status, dim.Render(m.elapsed.Round(100*time.Millisecond).String())),
	)

	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

func (m refreshModel) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

// watchRefresh renders progress until the refresh reaches a terminal state.
// Keyboard input is not read so the watcher works without a terminal on stdin.
func watchRefresh(source refreshSource, out io.Writer) (plugindomain.RefreshState, error) {
	program := tea.NewProgram(newRefreshModel(source, 100*time.Millisecond), tea.WithOutput(out), tea.WithInput(nil))

	final, err := program.Run()
	if err != nil {
		return plugindomain.RefreshUnknown, fmt.Errorf("refresh watcher failed: %w", err)
	}

	return final.(refreshModel).state, nil
}
