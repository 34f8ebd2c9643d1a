package cli

import "github.com/charmbracelet/lipgloss"

const maxIndentLevel = 8

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1185FE"))

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6DA95"))

	authorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7DC4E4"))

	handleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8087A2"))

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6E738D"))

	noticeStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#ED8796"))

	embedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#C6A0F6"))

	countersStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6E738D"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6E738D")).
			Padding(1, 0, 0, 0)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ED8796"))
)

// indentStyle shifts a reply right by two columns per nesting level below
// the top-level replies.
func indentStyle(depth int) lipgloss.Style {
	level := depth - 1
	if level < 0 {
		level = 0
	}
	if level > maxIndentLevel {
		level = maxIndentLevel
	}
	return lipgloss.NewStyle().MarginLeft(level * 2)
}
