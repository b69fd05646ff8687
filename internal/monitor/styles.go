package monitor

import "github.com/charmbracelet/lipgloss"

var (
	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 2)

	header = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#ffffff")).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("#444466"))

	label = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
	value = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff")).Bold(true)
	hint  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688")).Italic(true)

	running   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	converged = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	failed    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
)

func statusStyle(s string) lipgloss.Style {
	switch s {
	case "CONVERGED":
		return converged
	case "DIVERGED", "CANCELED":
		return failed
	}
	return running
}
