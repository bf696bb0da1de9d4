package output

import "github.com/charmbracelet/lipgloss"

// Styles is the lipgloss style set used in text mode.
type Styles struct {
	Header1   lipgloss.Style
	Header2   lipgloss.Style
	Bold      lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Info      lipgloss.Style
	Muted     lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultStyles returns the terminal style set.
func DefaultStyles() *Styles {
	return &Styles{
		Header1:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ffcc")).MarginBottom(1),
		Header2:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ccff")),
		Bold:      lipgloss.NewStyle().Bold(true),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("#66ff66")),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6666")),
		Info:      lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff")),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff66cc")),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Header1:   plain,
		Header2:   plain,
		Bold:      plain,
		Success:   plain,
		Warning:   plain,
		Error:     plain,
		Info:      plain,
		Muted:     plain,
		Highlight: plain,
	}
}
