package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
	pluginports "kilometers.ai/pluginrepo/internal/core/ports/plugin"
)

// UpdateHeader introduces the update summary
const UpdateHeader = "Plugin updates:"

// ConsoleNotifier prints update records, one line each
type ConsoleNotifier struct {
	out    io.Writer
	header lipgloss.Style
	ok     lipgloss.Style
	failed lipgloss.Style
}

// NewConsoleNotifier styles output for the terminal behind out; plain
// writers get plain text
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	r := lipgloss.NewRenderer(out)
	return &ConsoleNotifier{
		out:    out,
		header: r.NewStyle().Bold(true),
		ok:     r.NewStyle().Foreground(lipgloss.Color("46")),
		failed: r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

// NotifyUpdates prints nothing for an empty list
func (n *ConsoleNotifier) NotifyUpdates(header string, records []plugindomain.UpdateRecord) {
	if len(records) == 0 {
		return
	}

	fmt.Fprintln(n.out, n.header.Render(header))
	for _, r := range records {
		if r.WasUpdated {
			fmt.Fprintln(n.out, n.ok.Render(fmt.Sprintf("    》 %s updated to v%s.", r.Name, r.Version)))
		} else {
			fmt.Fprintln(n.out, n.failed.Render(fmt.Sprintf("    》 %s update to v%s failed.", r.Name, r.Version)))
		}
	}
}

var _ pluginports.Notifier = (*ConsoleNotifier)(nil)
