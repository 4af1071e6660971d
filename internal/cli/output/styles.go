package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles groups the lipgloss styles used by the commands.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Label   lipgloss.Style
	Count   lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusSkipped lipgloss.Style
	StatusPending lipgloss.Style
}

// NewStyles builds styles for a color profile. termenv.Ascii yields plain
// text without escape codes.
func NewStyles(profile termenv.Profile) *Styles {
	re := lipgloss.NewRenderer(io.Discard)
	re.SetColorProfile(profile)

	return &Styles{
		Header1: re.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: re.NewStyle().Bold(true),
		Bold:    re.NewStyle().Bold(true),
		Muted:   re.NewStyle().Foreground(lipgloss.Color("8")),
		Warning: re.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   re.NewStyle().Foreground(lipgloss.Color("9")),
		Label:   re.NewStyle().Foreground(lipgloss.Color("14")),
		Count:   re.NewStyle().Bold(true),

		StatusSuccess: re.NewStyle().Foreground(lipgloss.Color("10")).SetString("✓"),
		StatusFailed:  re.NewStyle().Foreground(lipgloss.Color("9")).SetString("✗"),
		StatusSkipped: re.NewStyle().Foreground(lipgloss.Color("11")).SetString("-"),
		StatusPending: re.NewStyle().Foreground(lipgloss.Color("8")).SetString("•"),
	}
}
