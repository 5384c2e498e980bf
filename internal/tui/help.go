package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/janekbaraniewski/powerusage/internal/quota"
)

// ─── Help Overlay ───────────────────────────────────────────────────────────

// renderHelpOverlay draws a centered popup with the keybindings and gauge
// colors. Dismissed by pressing any key.
func (m Model) renderHelpOverlay(screenW, screenH int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(colorLavender)
	headingStyle := lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	descStyle := lipgloss.NewStyle().Foreground(colorSubtext)
	dimHintStyle := lipgloss.NewStyle().Foreground(colorDim).Italic(true)

	var lines []string
	lines = append(lines, titleStyle.Render("powerusage Help"), "")

	lines = append(lines, headingStyle.Render("Keys"))
	bindings := []struct{ key, desc string }{
		{"tab / shift+tab", "Move between Total Units, Total Days and Units Used"},
		{"enter", "Store the totals and record the units used"},
		{"v", "Show or hide the usage chart"},
		{"r", "Reset the cycle to the totals in the form"},
		{"m", "Smart meter: random reading or custom amount"},
		{"i", "Energy-saving tips"},
		{"t", "Cycle color theme"},
		{"q / ctrl+c", "Save and quit"},
	}
	for _, b := range bindings {
		lines = append(lines, "  "+helpKeyStyle.Render(padRight(b.key, 17))+descStyle.Render(b.desc))
	}
	lines = append(lines, "")

	lines = append(lines, headingStyle.Render("Gauges"))
	statuses := []struct {
		icon, badge, desc string
		color             lipgloss.Color
	}{
		{"●", "OK", "Plenty of units or days left", colorOK},
		{"◐", "WARN", "Below the warning threshold", colorWarn},
		{"◌", "CRIT", "Below the critical threshold", colorCrit},
	}
	for _, s := range statuses {
		iconStr := lipgloss.NewStyle().Foreground(s.color).Render(s.icon)
		badgeStr := lipgloss.NewStyle().Foreground(s.color).Bold(true).Render(padRight(s.badge, 6))
		lines = append(lines, "  "+iconStr+" "+badgeStr+descStyle.Render(s.desc))
	}
	lines = append(lines, "", dimHintStyle.Render("Press any key to close"))

	return renderOverlayPanel(strings.Join(lines, "\n"), colorAccent, screenW, screenH)
}

func (m Model) renderTipsOverlay(screenW, screenH int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	tipStyle := lipgloss.NewStyle().Foreground(colorText)

	lines := []string{titleStyle.Render("Energy Saving Tips"), "", tipStyle.Render("Here are some energy-saving tips:")}
	for i, tip := range quota.Tips() {
		lines = append(lines, helpKeyStyle.Render("  "+strconv.Itoa(i+1)+".")+" "+tipStyle.Render(tip))
	}
	lines = append(lines, "", dimStyle.Italic(true).Render("Press any key to close"))

	return renderOverlayPanel(strings.Join(lines, "\n"), colorGreen, screenW, screenH)
}

func renderOverlayPanel(content string, border lipgloss.Color, screenW, screenH int) string {
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Background(colorBase).
		Padding(1, 2).
		MaxWidth(screenW).
		Render(content)
	return lipgloss.Place(screenW, screenH, lipgloss.Center, lipgloss.Center, panel)
}

// padRight pads a string with spaces to the given display width.
func padRight(s string, width int) string {
	w := ansi.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func truncateToWidth(s string, maxW int) string {
	if maxW <= 0 || ansi.StringWidth(s) <= maxW {
		return s
	}
	return ansi.Truncate(s, maxW, "…")
}
