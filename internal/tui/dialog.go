package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type dialogKind int

const (
	dialogInfo dialogKind = iota
	dialogWarning
	dialogError
	dialogConfirm     // y/n reset confirmation
	dialogMeterChoice // random or custom reading
	dialogCustomUsage // free-form amount entry
)

type dialog struct {
	kind  dialogKind
	title string
	body  string
}

func (m *Model) pushDialog(kind dialogKind, title, body string) {
	m.dialogs = append(m.dialogs, dialog{kind: kind, title: title, body: body})
}

func (m *Model) popDialog() {
	if len(m.dialogs) > 0 {
		m.dialogs = m.dialogs[1:]
	}
}

func (m Model) activeDialog() (dialog, bool) {
	if len(m.dialogs) == 0 {
		return dialog{}, false
	}
	return m.dialogs[0], true
}

// handleDialogKey routes keys to the dialog at the front of the queue. The
// queue is modal: nothing else receives keys until it drains.
func (m Model) handleDialogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d, _ := m.activeDialog()
	key := msg.String()

	if key == "ctrl+c" && m.saveErr != nil {
		m.quitting = true
		return m, tea.Quit
	}

	switch d.kind {
	case dialogConfirm:
		switch key {
		case "y", "Y":
			m.popDialog()
			m.resetCycle()
		case "n", "N", "esc":
			m.popDialog()
		}
		return m, nil

	case dialogMeterChoice:
		switch key {
		case "y", "Y", "r":
			m.popDialog()
			m.meter()
		case "n", "N", "c":
			m.popDialog()
			m.openCustomUsage()
			return m, textinput.Blink
		case "esc":
			m.popDialog()
		}
		return m, nil

	case dialogCustomUsage:
		switch key {
		case "esc":
			m.closeCustomUsage()
			return m, nil
		case "enter":
			units, err := strconv.ParseFloat(strings.TrimSpace(m.customInput.Value()), 64)
			m.closeCustomUsage()
			if err != nil {
				m.pushDialog(dialogError, "Error", msgInvalidUnits)
				return m, nil
			}
			m.record(units)
			return m, nil
		}
		if !acceptsNumericKey(msg) {
			return m, nil
		}
		var cmd tea.Cmd
		m.customInput, cmd = m.customInput.Update(msg)
		return m, cmd
	}

	switch key {
	case "enter", "esc", " ", "q":
		m.popDialog()
	}
	return m, nil
}

func (m *Model) openCustomUsage() {
	m.customInput.SetValue("")
	m.customInput.Focus()
	m.dialogs = append([]dialog{{
		kind:  dialogCustomUsage,
		title: "Custom Usage Data",
		body:  "Enter units used:",
	}}, m.dialogs...)
}

func (m *Model) closeCustomUsage() {
	m.customInput.Blur()
	m.popDialog()
}

func (m Model) renderDialogOverlay(screenW, screenH int) string {
	d, _ := m.activeDialog()
	accent := alertColor(d.kind)
	contentW := clamp(screenW-24, 30, 64)

	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(d.title)
	body := lipgloss.NewStyle().Foreground(colorText).Width(contentW).Render(d.body)

	lines := []string{title, "", body}
	if d.kind == dialogCustomUsage {
		lines = append(lines, "", m.customInput.View())
	}
	lines = append(lines, "", dimStyle.Render(dialogHint(d.kind)))
	if n := len(m.dialogs) - 1; n > 0 {
		lines = append(lines, dimStyle.Render(strconv.Itoa(n)+" more"))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Background(colorBase).
		Padding(1, 2).
		Width(contentW).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(screenW, screenH, lipgloss.Center, lipgloss.Center, panel)
}

func dialogHint(kind dialogKind) string {
	switch kind {
	case dialogConfirm:
		return "y yes · n no"
	case dialogMeterChoice:
		return "r random reading · c custom amount · esc cancel"
	case dialogCustomUsage:
		return "enter record · esc cancel"
	default:
		return "enter dismiss"
	}
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
