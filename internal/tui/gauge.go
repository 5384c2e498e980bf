package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	minGaugeWidth = 5
	gaugeCell     = "━"
)

// RenderGauge draws a remaining-balance bar width cells wide, followed by
// the percentage. A negative percent means there is no total to compare
// against and renders as an empty track.
func RenderGauge(percent float64, width int, warnThresh, critThresh float64) string {
	width = max(width, minGaugeWidth)
	if percent < 0 {
		return gaugeTrackStyle.Render(strings.Repeat("─", width)) + dimStyle.Render(" N/A")
	}
	percent = math.Min(percent, 100)

	ink := lipgloss.NewStyle().Foreground(gaugeColor(percent, warnThresh, critThresh))
	lit := int(percent * float64(width) / 100)

	var b strings.Builder
	b.WriteString(ink.Render(strings.Repeat(gaugeCell, lit)))
	b.WriteString(lipgloss.NewStyle().Foreground(colorSurface1).Render(strings.Repeat(gaugeCell, width-lit)))
	b.WriteByte(' ')
	b.WriteString(ink.Bold(true).Render(fmt.Sprintf("%5.1f%%", percent)))
	return b.String()
}

// gaugeColor maps a remaining percentage onto the alert thresholds, which
// are fractions of the total.
func gaugeColor(percent, warnThresh, critThresh float64) lipgloss.Color {
	if percent <= critThresh*100 {
		return colorCrit
	}
	if percent <= warnThresh*100 {
		return colorWarn
	}
	return colorOK
}

// gaugeLine renders "<label> <bar>  <detail>" with the label padded to
// labelW cells.
func gaugeLine(label string, labelW int, percent float64, barW int, detail string, warn, crit float64) string {
	return labelStyle.Render(padRight(label, labelW)) + " " +
		RenderGauge(percent, barW, warn, crit) + "  " + valueStyle.Render(detail)
}
