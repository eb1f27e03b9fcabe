package console

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	label lipgloss.Style
}

// newStyles binds the styles to out, so colors are dropped when out is not a
// terminal.
func newStyles(out io.Writer) styles {
	renderer := lipgloss.NewRenderer(out)

	return styles{
		label: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	}
}
