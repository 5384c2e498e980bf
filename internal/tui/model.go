package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/janekbaraniewski/powerusage/internal/quota"
)

// Tracker is the state owner the TUI drives. *tracker.Tracker satisfies it.
type Tracker interface {
	State() quota.State
	StartupEvents() []quota.Event
	SetTotals(units, days int)
	Record(units float64) ([]quota.Event, error)
	Meter() (float64, []quota.Event, error)
	Reset(ctx context.Context, units, days int) ([]quota.Event, error)
	Save() error
}

const (
	fieldTotalUnits = iota
	fieldTotalDays
	fieldUnitsUsed
	fieldCount
)

var fieldLabels = [fieldCount]string{"Total Units:", "Total Days:", "Units Used:"}

const (
	msgInvalidForm   = "Please enter valid numbers for total units, total days, and units used."
	msgInvalidUnits  = "Please enter a valid number of units."
	msgNotEnough     = "Not enough units remaining."
	msgInvalidTotals = "Please enter valid numbers for total units and total days."
)

// SaveAndQuitMsg asks the model to persist state and exit, e.g. on SIGTERM.
type SaveAndQuitMsg struct{}

type themePersistedMsg struct {
	err error
}

type Model struct {
	tracker Tracker

	inputs [fieldCount]textinput.Model
	focus  int

	dialogs     []dialog
	customInput textinput.Model

	message   string
	showChart bool
	showHelp  bool
	showTips  bool

	width  int
	height int

	warnThreshold float64
	critThreshold float64

	saveErr  error // last failed save; cleared by a successful one
	quitting bool

	onThemeChange func(string) error
}

func NewModel(t Tracker, warnThresh, critThresh float64) Model {
	st := t.State()
	m := Model{
		tracker:       t,
		warnThreshold: warnThresh,
		critThreshold: critThresh,
	}
	for i := range m.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 16
		in.Width = 14
		m.inputs[i] = in
	}
	m.inputs[fieldTotalUnits].SetValue(strconv.Itoa(st.TotalUnits))
	m.inputs[fieldTotalDays].SetValue(strconv.Itoa(st.TotalDays))
	m.inputs[fieldUnitsUsed].Placeholder = "0.0"
	m.inputs[fieldUnitsUsed].Focus()
	m.focus = fieldUnitsUsed

	m.customInput = textinput.New()
	m.customInput.Prompt = "› "
	m.customInput.Placeholder = "units"
	m.customInput.CharLimit = 16

	m.pushEvents(t.StartupEvents())
	return m
}

// SetOnThemeChange sets a callback invoked with the theme name after the
// user cycles themes. Set from main to persist the choice.
func (m *Model) SetOnThemeChange(fn func(string) error) {
	m.onThemeChange = fn
}

func (m Model) persistThemeCmd(themeName string) tea.Cmd {
	fn := m.onThemeChange
	if fn == nil {
		return nil
	}
	return func() tea.Msg {
		return themePersistedMsg{err: fn(themeName)}
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case themePersistedMsg:
		if msg.err != nil {
			m.message = "Could not save theme: " + msg.err.Error()
		}
		return m, nil

	case SaveAndQuitMsg:
		m.saveErr = m.tracker.Save()
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateFocusedInput(msg)
}

// updateFocusedInput hands other messages, such as cursor blinks, to the
// input that currently has focus.
func (m Model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if d, ok := m.activeDialog(); ok && d.kind == dialogCustomUsage {
		m.customInput, cmd = m.customInput.Update(msg)
		return m, cmd
	}
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// SaveErr reports the error of the last save attempt when it failed. Callers
// check it on the final model after the program exits.
func (m Model) SaveErr() error { return m.saveErr }

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.dialogs) > 0 {
		return m.handleDialogKey(msg)
	}

	if m.showHelp || m.showTips {
		switch msg.String() {
		case "q", "ctrl+c":
			return m.saveAndQuit()
		}
		m.showHelp = false
		m.showTips = false
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m.saveAndQuit()
	case "tab", "down":
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil
	case "shift+tab", "up":
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	case "enter":
		m.submit()
		return m, nil
	case "v":
		m.showChart = !m.showChart
		if m.showChart && len(m.tracker.State().History) == 0 {
			m.pushDialog(dialogInfo, "No Data", noUsageMessage)
			m.showChart = false
		}
		return m, nil
	case "r":
		m.pushDialog(dialogConfirm, "Reset Confirmation", "Are you sure you want to reset your stats?")
		return m, nil
	case "m":
		m.pushDialog(dialogMeterChoice, "Smart Meter", "Do you want to generate random usage data?")
		return m, nil
	case "i":
		m.showTips = true
		return m, nil
	case "?":
		m.showHelp = true
		return m, nil
	case "t":
		name := CycleTheme()
		m.message = "Theme: " + ThemeName()
		return m, m.persistThemeCmd(name)
	}

	if !acceptsNumericKey(msg) {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// acceptsNumericKey lets editing keys and number characters reach a field;
// letters are reserved for commands.
func acceptsNumericKey(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeySpace {
		return false
	}
	if msg.Type != tea.KeyRunes {
		return true
	}
	for _, r := range msg.Runes {
		if !strings.ContainsRune("0123456789.-", r) {
			return false
		}
	}
	return true
}

func (m *Model) setFocus(idx int) {
	m.inputs[m.focus].Blur()
	m.focus = idx
	m.inputs[m.focus].Focus()
}

func (m *Model) submit() {
	units, errU := strconv.Atoi(strings.TrimSpace(m.inputs[fieldTotalUnits].Value()))
	days, errD := strconv.Atoi(strings.TrimSpace(m.inputs[fieldTotalDays].Value()))
	used, errUsed := strconv.ParseFloat(strings.TrimSpace(m.inputs[fieldUnitsUsed].Value()), 64)
	if errU != nil || errD != nil || errUsed != nil {
		m.pushDialog(dialogError, "Error", msgInvalidForm)
		return
	}

	m.tracker.SetTotals(units, days)
	if m.record(used) {
		m.inputs[fieldUnitsUsed].SetValue("")
	}
}

// record applies a usage amount and surfaces the outcome. It reports whether
// the amount was accepted.
func (m *Model) record(units float64) bool {
	events, err := m.tracker.Record(units)
	if err != nil {
		m.pushUsageError(err)
		return false
	}
	m.pushEvents(events)
	return true
}

func (m *Model) pushUsageError(err error) {
	switch {
	case errors.Is(err, quota.ErrInsufficientBalance):
		m.pushDialog(dialogError, "Error", msgNotEnough)
	case errors.Is(err, quota.ErrInvalidAmount):
		m.pushDialog(dialogError, "Error", msgInvalidUnits)
	default:
		m.pushDialog(dialogError, "Error", err.Error())
	}
}

// pushEvents shows usage and reset events in the status line and queues
// alerts as dialogs.
func (m *Model) pushEvents(events []quota.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case quota.EventLowUnits:
			m.pushDialog(dialogWarning, ev.Title, ev.Message)
		case quota.EventDaysExhausted:
			m.pushDialog(dialogInfo, ev.Title, ev.Message)
		default:
			m.message = ev.Message
		}
	}
}

func (m *Model) resetCycle() {
	units, errU := strconv.Atoi(strings.TrimSpace(m.inputs[fieldTotalUnits].Value()))
	days, errD := strconv.Atoi(strings.TrimSpace(m.inputs[fieldTotalDays].Value()))
	if errU != nil || errD != nil {
		m.pushDialog(dialogError, "Error", msgInvalidTotals)
		return
	}

	events, err := m.tracker.Reset(context.Background(), units, days)
	m.pushEvents(events)
	if err != nil {
		m.pushDialog(dialogError, "Error", "Reset failed: "+err.Error())
	}
	m.inputs[fieldTotalUnits].SetValue(strconv.Itoa(units))
	m.inputs[fieldTotalDays].SetValue(strconv.Itoa(days))
	m.showChart = false
}

func (m *Model) meter() {
	units, events, err := m.tracker.Meter()
	if err != nil {
		if errors.Is(err, quota.ErrInsufficientBalance) {
			m.pushDialog(dialogError, "Error", fmt.Sprintf("Meter read %s units. %s", quota.FormatUnits(units), msgNotEnough))
			return
		}
		m.pushUsageError(err)
		return
	}
	m.pushEvents(events)
}

func (m Model) saveAndQuit() (tea.Model, tea.Cmd) {
	if err := m.tracker.Save(); err != nil {
		m.saveErr = err
		m.pushDialog(dialogError, "Save Failed",
			err.Error()+"\n\nPress enter to keep editing, or ctrl+c to quit without saving.")
		return m, nil
	}
	m.saveErr = nil
	m.quitting = true
	return m, tea.Quit
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	w, h := m.screenSize()
	if w < 30 || h < 8 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Render("\n  Terminal too small. Resize to at least 30×8.")
	}
	if len(m.dialogs) > 0 {
		return m.renderDialogOverlay(w, h)
	}
	if m.showHelp {
		return m.renderHelpOverlay(w, h)
	}
	if m.showTips {
		return m.renderTipsOverlay(w, h)
	}
	return m.renderMain(w, h)
}

func (m Model) screenSize() (int, int) {
	w, h := m.width, m.height
	if w == 0 {
		w = 80
	}
	if h == 0 {
		h = 24
	}
	return w, h
}

func (m Model) renderMain(w, h int) string {
	st := m.tracker.State()
	contentW := min(w-4, 96)

	var sections []string
	sections = append(sections, m.renderHeader(contentW))
	sections = append(sections, m.renderQuota(st, contentW))
	sections = append(sections, m.renderForm(contentW))
	if m.message != "" {
		sections = append(sections, messageStyle.Render(truncateToWidth(m.message, contentW)))
	}
	if m.showChart {
		chartH := max(h-lipgloss.Height(strings.Join(sections, "\n"))-6, 6)
		sections = append(sections, RenderUsageChart(st.History, contentW, chartH))
	}
	sections = append(sections, m.renderFooter(contentW))

	return padToSize(lipgloss.NewStyle().Padding(0, 2).Render(strings.Join(sections, "\n\n")), w, h)
}

func (m Model) renderHeader(w int) string {
	brand := headerBrandStyle.Render("⚡ powerusage")
	theme := dimStyle.Render(ThemeName())
	gap := max(w-lipgloss.Width(brand)-lipgloss.Width(theme), 1)
	return brand + strings.Repeat(" ", gap) + theme
}

func (m Model) renderQuota(st quota.State, w int) string {
	const labelW = 16
	barW := max(w-labelW-32, 10)

	units := gaugeLine("Remaining Units", labelW, st.UnitsPercent(), barW,
		fmt.Sprintf("%s / %d", quota.FormatUnits(st.RemainingUnits), st.TotalUnits),
		m.warnThreshold, m.critThreshold)
	days := gaugeLine("Remaining Days", labelW, st.DaysPercent(), barW,
		fmt.Sprintf("%d / %d", st.RemainingDays, st.TotalDays),
		m.warnThreshold, m.critThreshold)

	lines := []string{sectionHeaderStyle.Render("Quota"), units, days}
	if len(st.History) > 0 {
		spark := RenderSparkline(historyUnits(st.History), barW, colorAccent)
		lines = append(lines, labelStyle.Render(padRight("Recent", labelW))+" "+spark+"  "+
			dimStyle.Render(fmt.Sprintf("%s used", quota.FormatUnits(st.UsedUnits()))))
	}
	return cardStyle.Width(w - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderForm(w int) string {
	lines := make([]string, 0, fieldCount+1)
	lines = append(lines, sectionHeaderStyle.Render("Usage"))
	for i, in := range m.inputs {
		label := labelStyle.Render("  " + padRight(fieldLabels[i], 14))
		if i == m.focus {
			label = focusedLabelStyle.Render("› " + padRight(fieldLabels[i], 14))
		}
		lines = append(lines, label+in.View())
	}
	return cardStyle.Width(w - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter(w int) string {
	keys := []struct{ key, desc string }{
		{"enter", "submit"}, {"tab", "next field"}, {"v", "chart"}, {"r", "reset"},
		{"m", "meter"}, {"i", "tips"}, {"t", "theme"}, {"?", "help"}, {"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+" "+dimStyle.Render(k.desc))
	}
	return truncateToWidth(strings.Join(parts, dimStyle.Render(" · ")), w)
}

func padToSize(content string, w, h int) string {
	lines := strings.Split(content, "\n")
	for len(lines) < h {
		lines = append(lines, "")
	}
	if len(lines) > h {
		lines = lines[:h]
	}
	for i, line := range lines {
		lines[i] = truncateToWidth(line, w)
	}
	return strings.Join(lines, "\n")
}
