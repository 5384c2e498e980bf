package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/janekbaraniewski/powerusage/internal/quota"
)

type halfRand struct{}

func (halfRand) IntN(int) int     { return 0 }
func (halfRand) Float64() float64 { return 0.5 }

type fakeTracker struct {
	st      quota.State
	saves   int
	saveErr error
	resets  int
}

func newFakeTracker(units, days int) *fakeTracker {
	return &fakeTracker{st: quota.NewState(units, days)}
}

func (f *fakeTracker) now() time.Time {
	return time.Date(2026, time.May, 4, 18, 30, 0, 0, time.Local)
}

func (f *fakeTracker) State() quota.State           { return f.st.Clone() }
func (f *fakeTracker) StartupEvents() []quota.Event { return quota.ThresholdEvents(f.st) }

func (f *fakeTracker) SetTotals(units, days int) {
	f.st.TotalUnits = units
	f.st.TotalDays = days
}

func (f *fakeTracker) Record(units float64) ([]quota.Event, error) {
	next, events, err := quota.RecordUsage(f.st, units, f.now())
	if err != nil {
		return nil, err
	}
	f.st = next
	return events, nil
}

func (f *fakeTracker) Meter() (float64, []quota.Event, error) {
	next, units, events, err := quota.SimulateMeter(f.st, halfRand{}, f.now())
	if err != nil {
		return units, nil, err
	}
	f.st = next
	return units, events, nil
}

func (f *fakeTracker) Reset(_ context.Context, units, days int) ([]quota.Event, error) {
	f.resets++
	next, events := quota.Reset(f.st, units, days)
	f.st = next
	return events, f.Save()
}

func (f *fakeTracker) Save() error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		var ok bool
		m, ok = next.(Model)
		if !ok {
			t.Fatalf("Update returned %T, want Model", next)
		}
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestNewModel_PrefillsTotals(t *testing.T) {
	m := NewModel(newFakeTracker(20, 30), 0.2, 0.1)
	if got := m.inputs[fieldTotalUnits].Value(); got != "20" {
		t.Fatalf("total units field = %q, want 20", got)
	}
	if got := m.inputs[fieldTotalDays].Value(); got != "30" {
		t.Fatalf("total days field = %q, want 30", got)
	}
	if m.focus != fieldUnitsUsed {
		t.Fatalf("focus = %d, want units used field", m.focus)
	}
	if len(m.dialogs) != 0 {
		t.Fatalf("healthy state should not queue dialogs, got %d", len(m.dialogs))
	}
}

func TestNewModel_QueuesStartupAlerts(t *testing.T) {
	ft := newFakeTracker(20, 30)
	ft.st.RemainingUnits = 2
	ft.st.RemainingDays = 0

	m := NewModel(ft, 0.2, 0.1)
	if len(m.dialogs) != 2 {
		t.Fatalf("dialogs = %d, want 2", len(m.dialogs))
	}
	if m.dialogs[0].title != "Low Units" || m.dialogs[1].title != "Daily Goal Exceeded" {
		t.Fatalf("unexpected dialog order: %+v", m.dialogs)
	}

	m, _ = press(t, m, "enter")
	if len(m.dialogs) != 1 {
		t.Fatalf("enter should dismiss one dialog, %d left", len(m.dialogs))
	}
}

func TestSubmit_RecordsUsage(t *testing.T) {
	ft := newFakeTracker(20, 30)
	m := NewModel(ft, 0.2, 0.1)

	m, _ = press(t, m, "2", ".", "5", "enter")

	if ft.st.RemainingUnits != 17.5 || ft.st.RemainingDays != 29 {
		t.Fatalf("state = %+v", ft.st)
	}
	if len(ft.st.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(ft.st.History))
	}
	want := "2.5 units used. Remaining units: 17.5, Remaining days: 29"
	if m.message != want {
		t.Fatalf("message = %q, want %q", m.message, want)
	}
	if m.inputs[fieldUnitsUsed].Value() != "" {
		t.Fatalf("units used field should be cleared, got %q", m.inputs[fieldUnitsUsed].Value())
	}
}

func TestSubmit_StoresTotalsFromForm(t *testing.T) {
	ft := newFakeTracker(20, 30)
	m := NewModel(ft, 0.2, 0.1)
	m.inputs[fieldTotalUnits].SetValue("25")
	m.inputs[fieldTotalDays].SetValue("31")
	m.inputs[fieldUnitsUsed].SetValue("1")

	press(t, m, "enter")

	if ft.st.TotalUnits != 25 || ft.st.TotalDays != 31 {
		t.Fatalf("totals = %d/%d, want 25/31", ft.st.TotalUnits, ft.st.TotalDays)
	}
	if ft.st.RemainingUnits != 19 {
		t.Fatalf("remaining units = %v, want 19", ft.st.RemainingUnits)
	}
}

func TestSubmit_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		totalUnits string
		unitsUsed  string
		wantBody   string
	}{
		{"bad number", "20", "abc", msgInvalidForm},
		{"bad total", "twenty", "1", msgInvalidForm},
		{"empty", "20", "", msgInvalidForm},
		{"negative", "20", "-1", msgInvalidUnits},
		{"over balance", "20", "25", msgNotEnough},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := newFakeTracker(20, 30)
			before := ft.State()
			m := NewModel(ft, 0.2, 0.1)
			m.inputs[fieldTotalUnits].SetValue(tt.totalUnits)
			m.inputs[fieldUnitsUsed].SetValue(tt.unitsUsed)

			m, _ = press(t, m, "enter")

			d, ok := m.activeDialog()
			if !ok || d.kind != dialogError {
				t.Fatalf("expected error dialog, got %+v", m.dialogs)
			}
			if d.body != tt.wantBody {
				t.Fatalf("dialog body = %q, want %q", d.body, tt.wantBody)
			}
			if ft.st.RemainingUnits != before.RemainingUnits || len(ft.st.History) != 0 {
				t.Fatalf("state mutated: %+v", ft.st)
			}
		})
	}
}

func TestSubmit_LowUnitsRaisesDialog(t *testing.T) {
	ft := newFakeTracker(5, 30)
	m := NewModel(ft, 0.2, 0.1)
	m.inputs[fieldUnitsUsed].SetValue("3")

	m, _ = press(t, m, "enter")

	d, ok := m.activeDialog()
	if !ok || d.kind != dialogWarning || d.title != "Low Units" {
		t.Fatalf("expected low units warning, got %+v", m.dialogs)
	}
}

func TestLettersDoNotReachInputs(t *testing.T) {
	m := NewModel(newFakeTracker(20, 30), 0.2, 0.1)
	m, _ = press(t, m, "x", "1")
	if got := m.inputs[fieldUnitsUsed].Value(); got != "1" {
		t.Fatalf("units used field = %q, want 1", got)
	}
}

func TestTabCyclesFocus(t *testing.T) {
	m := NewModel(newFakeTracker(20, 30), 0.2, 0.1)
	m, _ = press(t, m, "tab")
	if m.focus != fieldTotalUnits {
		t.Fatalf("focus = %d, want %d", m.focus, fieldTotalUnits)
	}
	m, _ = press(t, m, "backspace", "backspace", "9")
	if got := m.inputs[fieldTotalUnits].Value(); got != "9" {
		t.Fatalf("total units field = %q, want 9", got)
	}
}

func TestChartToggle(t *testing.T) {
	ft := newFakeTracker(20, 30)
	m := NewModel(ft, 0.2, 0.1)

	m, _ = press(t, m, "v")
	if m.showChart {
		t.Fatal("chart should stay hidden without history")
	}
	if d, ok := m.activeDialog(); !ok || d.body != noUsageMessage {
		t.Fatalf("expected no data dialog, got %+v", m.dialogs)
	}

	m, _ = press(t, m, "enter", "1", "enter", "v")
	m.width, m.height = 100, 48
	if !m.showChart {
		t.Fatal("chart should be visible after recording usage")
	}
	if !strings.Contains(m.View(), "Electricity Usage Over Time") {
		t.Fatal("view should include the chart")
	}
}

func TestResetConfirmation(t *testing.T) {
	ft := newFakeTracker(20, 30)
	m := NewModel(ft, 0.2, 0.1)
	m, _ = press(t, m, "4", "enter")

	m, _ = press(t, m, "r", "n")
	if ft.resets != 0 {
		t.Fatal("declined reset should not reset")
	}

	m.inputs[fieldTotalUnits].SetValue("12")
	m.inputs[fieldTotalDays].SetValue("14")
	m, _ = press(t, m, "r", "y")

	if ft.resets != 1 {
		t.Fatalf("resets = %d, want 1", ft.resets)
	}
	if ft.st.RemainingUnits != 12 || ft.st.RemainingDays != 14 || len(ft.st.History) != 0 {
		t.Fatalf("state after reset = %+v", ft.st)
	}
	if m.message != "Usage data has been reset." {
		t.Fatalf("message = %q", m.message)
	}
	if ft.saves != 1 {
		t.Fatalf("reset should save once, saves = %d", ft.saves)
	}
}

func TestResetRejectsInvalidTotals(t *testing.T) {
	ft := newFakeTracker(20, 30)
	m := NewModel(ft, 0.2, 0.1)
	m.inputs[fieldTotalDays].SetValue("")

	m, _ = press(t, m, "r", "y")

	if ft.resets != 0 {
		t.Fatal("reset should not run with invalid totals")
	}
	if d, ok := m.activeDialog(); !ok || d.body != msgInvalidTotals {
		t.Fatalf("expected invalid totals dialog, got %+v", m.dialogs)
	}
}

func TestMeterRandomReading(t *testing.T) {
	ft := newFakeTracker(20, 30)
	m := NewModel(ft, 0.2, 0.1)

	m, _ = press(t, m, "m", "r")

	if len(ft.st.History) != 1 || ft.st.History[0].Units != 2.75 {
		t.Fatalf("history = %+v, want one 2.75 reading", ft.st.History)
	}
	if !strings.HasPrefix(m.message, "2.75 units used.") {
		t.Fatalf("message = %q", m.message)
	}
}

func TestMeterCustomReading(t *testing.T) {
	ft := newFakeTracker(20, 30)
	m := NewModel(ft, 0.2, 0.1)

	m, _ = press(t, m, "m", "c")
	if d, ok := m.activeDialog(); !ok || d.kind != dialogCustomUsage {
		t.Fatalf("expected custom usage dialog, got %+v", m.dialogs)
	}

	m, _ = press(t, m, "1", ".", "2", "5", "enter")
	if len(m.dialogs) != 0 {
		t.Fatalf("dialogs left open: %+v", m.dialogs)
	}
	if len(ft.st.History) != 1 || ft.st.History[0].Units != 1.25 {
		t.Fatalf("history = %+v, want one 1.25 reading", ft.st.History)
	}
}

func TestMeterCustomReadingOverBalance(t *testing.T) {
	ft := newFakeTracker(2, 30)
	m := NewModel(ft, 0.2, 0.1)
	m, _ = press(t, m, "enter") // dismiss startup low-units alert

	m, _ = press(t, m, "m", "c", "9", "enter")

	if d, ok := m.activeDialog(); !ok || d.body != msgNotEnough {
		t.Fatalf("expected not enough dialog, got %+v", m.dialogs)
	}
	if len(ft.st.History) != 0 {
		t.Fatal("rejected custom reading was recorded")
	}
}

func TestQuitSaves(t *testing.T) {
	ft := newFakeTracker(20, 30)
	m := NewModel(ft, 0.2, 0.1)

	m, cmd := press(t, m, "q")
	if !isQuit(cmd) {
		t.Fatal("q should quit")
	}
	if ft.saves != 1 {
		t.Fatalf("saves = %d, want 1", ft.saves)
	}
	if m.View() != "" {
		t.Fatal("view should be empty after quitting")
	}
}

func TestQuitWithSaveFailure(t *testing.T) {
	ft := newFakeTracker(20, 30)
	ft.saveErr = errors.New("disk full")
	m := NewModel(ft, 0.2, 0.1)

	m, cmd := press(t, m, "ctrl+c")
	if isQuit(cmd) {
		t.Fatal("should not quit when save fails")
	}
	d, ok := m.activeDialog()
	if !ok || d.title != "Save Failed" || !strings.Contains(d.body, "disk full") {
		t.Fatalf("expected save failure dialog, got %+v", m.dialogs)
	}

	m, cmd = press(t, m, "ctrl+c")
	if !isQuit(cmd) {
		t.Fatal("second ctrl+c should quit without saving")
	}
	if !errors.Is(m.SaveErr(), ft.saveErr) {
		t.Fatalf("SaveErr = %v, want disk full", m.SaveErr())
	}
}

func TestSaveAndQuitMsg_KeepsSaveError(t *testing.T) {
	ft := newFakeTracker(20, 30)
	ft.saveErr = errors.New("disk full")
	m := NewModel(ft, 0.2, 0.1)

	next, cmd := m.Update(SaveAndQuitMsg{})
	if !isQuit(cmd) {
		t.Fatal("SaveAndQuitMsg should quit even when the save fails")
	}
	if err := next.(Model).SaveErr(); !errors.Is(err, ft.saveErr) {
		t.Fatalf("SaveErr = %v, want disk full", err)
	}
}

func TestSaveErrClearedBySuccessfulSave(t *testing.T) {
	ft := newFakeTracker(20, 30)
	ft.saveErr = errors.New("disk full")
	m := NewModel(ft, 0.2, 0.1)

	m, _ = press(t, m, "q", "enter")
	ft.saveErr = nil
	m, cmd := press(t, m, "q")
	if !isQuit(cmd) {
		t.Fatal("q should quit once saving works")
	}
	if m.SaveErr() != nil {
		t.Fatalf("SaveErr = %v, want nil", m.SaveErr())
	}
}

func TestCursorBlinkReachesFocusedInput(t *testing.T) {
	m := NewModel(newFakeTracker(20, 30), 0.2, 0.1)
	_, cmd := m.Update(textinput.Blink())
	if cmd == nil {
		t.Fatal("focused input should schedule the next cursor blink")
	}
}

func TestSaveAndQuitMsg(t *testing.T) {
	ft := newFakeTracker(20, 30)
	m := NewModel(ft, 0.2, 0.1)

	next, cmd := m.Update(SaveAndQuitMsg{})
	if !isQuit(cmd) {
		t.Fatal("SaveAndQuitMsg should quit")
	}
	if next.(Model).SaveErr() != nil {
		t.Fatalf("SaveErr = %v, want nil", next.(Model).SaveErr())
	}
	if ft.saves != 1 {
		t.Fatalf("saves = %d, want 1", ft.saves)
	}
}

func TestThemeCyclePersists(t *testing.T) {
	useBuiltinThemes(t)

	m := NewModel(newFakeTracker(20, 30), 0.2, 0.1)
	var persisted string
	m.SetOnThemeChange(func(name string) error {
		persisted = name
		return nil
	})

	m, cmd := press(t, m, "t")
	if cmd == nil {
		t.Fatal("expected persist command")
	}
	cmd()
	if persisted != ActiveTheme().Name {
		t.Fatalf("persisted %q, active %q", persisted, ActiveTheme().Name)
	}
	if !strings.HasPrefix(m.message, "Theme: ") {
		t.Fatalf("message = %q", m.message)
	}
}

func TestOverlaysCloseOnAnyKey(t *testing.T) {
	m := NewModel(newFakeTracker(20, 30), 0.2, 0.1)

	m, _ = press(t, m, "i")
	if !m.showTips || !strings.Contains(m.View(), "Energy Saving Tips") {
		t.Fatal("tips overlay should be visible")
	}
	m, _ = press(t, m, "x")
	if m.showTips {
		t.Fatal("tips overlay should close")
	}

	m, _ = press(t, m, "?")
	if !strings.Contains(m.View(), "powerusage Help") {
		t.Fatal("help overlay should be visible")
	}
	m, _ = press(t, m, "esc")
	if m.showHelp {
		t.Fatal("help overlay should close")
	}
}

func TestViewShowsGauges(t *testing.T) {
	m := NewModel(newFakeTracker(20, 30), 0.2, 0.1)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	view := next.(Model).View()
	for _, want := range []string{"Remaining Units", "Remaining Days", "20 / 20", "30 / 30", "Total Units:"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}
