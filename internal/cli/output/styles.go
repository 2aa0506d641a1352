package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style

	// one accent per failure kind
	KindIngest     lipgloss.Style
	KindValidation lipgloss.Style
	KindParse      lipgloss.Style
	KindEval       lipgloss.Style
	KindIndex      lipgloss.Style
}

var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"}
	colorBlue   = lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"}
	colorPurple = lipgloss.AdaptiveColor{Light: "#8250df", Dark: "#bc8cff"}
	colorOrange = lipgloss.AdaptiveColor{Light: "#bc4c00", Dark: "#ffa657"}
	colorGray   = lipgloss.AdaptiveColor{Light: "#6e7781", Dark: "#8b949e"}
)

// NewStyles builds the styles for a lipgloss renderer, so the color profile
// follows the writer the renderer was created for.
func NewStyles(re *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: re.NewStyle().Bold(true).Foreground(colorBlue).MarginBottom(1),
		Header2: re.NewStyle().Bold(true).Foreground(colorPurple),
		Bold:    re.NewStyle().Bold(true),
		Muted:   re.NewStyle().Foreground(colorGray),
		Success: re.NewStyle().Foreground(colorGreen),
		Warning: re.NewStyle().Foreground(colorYellow),
		Error:   re.NewStyle().Bold(true).Foreground(colorRed),
		Info:    re.NewStyle().Foreground(colorBlue),

		StatusSuccess: re.NewStyle().Bold(true).Foreground(colorGreen),
		StatusFailed:  re.NewStyle().Bold(true).Foreground(colorRed),

		KindIngest:     re.NewStyle().Bold(true).Foreground(colorOrange),
		KindValidation: re.NewStyle().Bold(true).Foreground(colorYellow),
		KindParse:      re.NewStyle().Bold(true).Foreground(colorPurple),
		KindEval:       re.NewStyle().Bold(true).Foreground(colorRed),
		KindIndex:      re.NewStyle().Bold(true).Foreground(colorBlue),
	}
}

// ForKind returns the accent style for a failure kind.
func (s *Styles) ForKind(kind string) lipgloss.Style {
	switch kind {
	case "ingest":
		return s.KindIngest
	case "validation":
		return s.KindValidation
	case "parse":
		return s.KindParse
	case "eval", "length_mismatch", "bind":
		return s.KindEval
	case "index":
		return s.KindIndex
	default:
		return s.Error
	}
}
