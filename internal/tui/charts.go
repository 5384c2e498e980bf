package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"
	"github.com/charmbracelet/lipgloss"
	"github.com/janekbaraniewski/powerusage/internal/quota"
	"github.com/samber/lo"
)

const noUsageMessage = "No usage data available."

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline draws one block per value, sampling down to w columns.
func RenderSparkline(values []float64, w int, color lipgloss.Color) string {
	if len(values) == 0 || w < 1 {
		return ""
	}

	if len(values) > w {
		step := float64(len(values)) / float64(w)
		values = lo.Times(w, func(i int) float64 {
			idx := min(int(float64(i)*step), len(values)-1)
			return values[idx]
		})
	}

	minV, maxV := lo.Min(values), lo.Max(values)
	span := maxV - minV

	var sb strings.Builder
	for _, v := range values {
		idx := len(sparkBlocks) - 1
		if span > 0 {
			idx = int((v - minV) / span * float64(len(sparkBlocks)-1))
		}
		sb.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Render(sb.String())
}

// RenderUsageChart plots units used against record timestamps. An empty
// history renders the "no data" message instead of an empty canvas.
func RenderUsageChart(history []quota.UsageRecord, w, h int) string {
	if len(history) == 0 {
		return dimStyle.Render(noUsageMessage)
	}
	if w < 20 {
		w = 20
	}
	if h < 6 {
		h = 6
	}

	minT := history[0].Timestamp
	maxT := history[len(history)-1].Timestamp
	if !maxT.After(minT) {
		maxT = minT.Add(time.Minute)
	}
	maxY := lo.MaxBy(history, func(a, b quota.UsageRecord) bool { return a.Units > b.Units }).Units
	maxY = math.Max(1, math.Ceil(maxY))

	chart := timeserieslinechart.New(w, h)
	chart.SetTimeRange(minT, maxT)
	chart.SetViewTimeRange(minT, maxT)
	chart.SetYRange(0, maxY)
	chart.SetViewYRange(0, maxY)
	chart.SetStyle(lipgloss.NewStyle().Foreground(colorAccent))
	for _, rec := range history {
		chart.Push(timeserieslinechart.TimePoint{Time: rec.Timestamp, Value: rec.Units})
	}
	chart.DrawBraille()

	title := chartTitleStyle.Render("Electricity Usage Over Time")
	legend := dimStyle.Render(fmt.Sprintf("units used · %d readings · %s → %s",
		len(history),
		minT.Format("Jan 02 15:04"),
		history[len(history)-1].Timestamp.Format("Jan 02 15:04")))
	return lipgloss.JoinVertical(lipgloss.Left, title, chart.View(), legend)
}

func historyUnits(history []quota.UsageRecord) []float64 {
	return lo.Map(history, func(r quota.UsageRecord, _ int) float64 { return r.Units })
}
