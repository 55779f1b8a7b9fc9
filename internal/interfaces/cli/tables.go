package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
)

func newTable(out io.Writer, headers ...string) *table.Table {
	r := lipgloss.NewRenderer(out)
	headerStyle := r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle := r.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// renderCatalog lists catalog entries in fetch order
func renderCatalog(out io.Writer, defs []plugindomain.Definition, hostAPILevel int) string {
	t := newTable(out, "NAME", "INTERNAL NAME", "VERSION", "TESTING", "API", "REPO")
	for _, d := range defs {
		testing := d.TestingAssemblyVersion
		if d.IsTestingExclusive {
			testing += " (exclusive)"
		}
		api := strconv.Itoa(d.APILevel)
		if d.APILevel != hostAPILevel {
			api += " !"
		}
		t.Row(d.Name, d.InternalName, d.AssemblyVersion, strings.TrimSpace(testing), api, strconv.Itoa(d.RepoNumber))
	}
	return t.String()
}

// renderStatus lists installed plugins with their versions
func renderStatus(out io.Writer, installed []plugindomain.InstalledPlugin) string {
	t := newTable(out, "PLUGIN", "VERSIONS", "LATEST", "ENABLED")
	for _, p := range installed {
		if p.Err != nil {
			t.Row(p.InternalName, "unreadable: "+p.Err.Error(), "-", "no")
			continue
		}
		versions := plugindomain.SortVersions(p.Versions)
		parts := make([]string, 0, len(versions))
		for _, v := range versions {
			parts = append(parts, v.Name+" ("+v.Status.String()+")")
		}

		latest := "-"
		if l, ok := plugindomain.Latest(p.Versions); ok {
			latest = l.Name
		}

		enabled := "no"
		if plugindomain.IsEnabled(p.Versions) {
			enabled = "yes"
		}
		t.Row(p.InternalName, strings.Join(parts, ", "), latest, enabled)
	}
	return t.String()
}

// renderConfig lists every configuration key with the source that won
func renderConfig(out io.Writer, snap configdomain.Snapshot) string {
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable(out, "KEY", "VALUE", "SOURCE")
	for _, k := range keys {
		e := snap[k]
		t.Row(k, formatValue(e.Value), e.Source+" ("+e.SourcePath+")")
	}
	return t.String()
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case []configdomain.Repository:
		if len(val) == 0 {
			return "(none)"
		}
		parts := make([]string, 0, len(val))
		for _, r := range val {
			state := "enabled"
			if !r.Enabled {
				state = "disabled"
			}
			parts = append(parts, r.URL+" ["+state+"]")
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprintf("%v", v)
	}
}
