package tui

import "github.com/charmbracelet/lipgloss"

// ─── Color Palette (set by applyTheme) ──────────────────────────────────────

var (
	colorBase     lipgloss.Color
	colorSurface0 lipgloss.Color
	colorSurface1 lipgloss.Color
	colorText     lipgloss.Color
	colorSubtext  lipgloss.Color
	colorDim      lipgloss.Color

	colorAccent   lipgloss.Color
	colorBlue     lipgloss.Color
	colorSapphire lipgloss.Color
	colorGreen    lipgloss.Color
	colorYellow   lipgloss.Color
	colorRed      lipgloss.Color
	colorPeach    lipgloss.Color
	colorTeal     lipgloss.Color
	colorLavender lipgloss.Color

	// Semantic aliases
	colorOK   lipgloss.Color
	colorWarn lipgloss.Color
	colorCrit lipgloss.Color
)

// ─── Reusable Styles ────────────────────────────────────────────────────────

var (
	headerStyle        lipgloss.Style
	headerBrandStyle   lipgloss.Style
	sectionHeaderStyle lipgloss.Style
	labelStyle         lipgloss.Style
	valueStyle         lipgloss.Style
	dimStyle           lipgloss.Style
	helpKeyStyle       lipgloss.Style
	gaugeTrackStyle    lipgloss.Style
	messageStyle       lipgloss.Style
	focusedLabelStyle  lipgloss.Style
	cardStyle          lipgloss.Style
	chartTitleStyle    lipgloss.Style
)

func applyTheme(t Theme) {
	colorBase = t.Base
	colorSurface0 = t.Surface0
	colorSurface1 = t.Surface1
	colorText = t.Text
	colorSubtext = t.Subtext
	colorDim = t.Dim
	colorAccent = t.Accent
	colorBlue = t.Blue
	colorSapphire = t.Sapphire
	colorGreen = t.Green
	colorYellow = t.Yellow
	colorRed = t.Red
	colorPeach = t.Peach
	colorTeal = t.Teal
	colorLavender = t.Lavender

	colorOK = colorGreen
	colorWarn = colorYellow
	colorCrit = colorRed

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorLavender)
	headerBrandStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	labelStyle = lipgloss.NewStyle().Foreground(colorSubtext)
	valueStyle = lipgloss.NewStyle().Foreground(colorText)
	dimStyle = lipgloss.NewStyle().Foreground(colorDim)
	helpKeyStyle = lipgloss.NewStyle().Foreground(colorSapphire).Bold(true)
	gaugeTrackStyle = lipgloss.NewStyle().Foreground(colorDim)
	messageStyle = lipgloss.NewStyle().Foreground(colorTeal)
	focusedLabelStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	cardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorSurface1).
		Padding(0, 1)
	chartTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
}

// alertColor picks the dialog accent for a notification kind.
func alertColor(kind dialogKind) lipgloss.Color {
	switch kind {
	case dialogError:
		return colorCrit
	case dialogWarning:
		return colorWarn
	case dialogConfirm, dialogMeterChoice, dialogCustomUsage:
		return colorPeach
	default:
		return colorSapphire
	}
}
