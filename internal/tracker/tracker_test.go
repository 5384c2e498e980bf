package tracker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/janekbaraniewski/powerusage/internal/archive"
	"github.com/janekbaraniewski/powerusage/internal/ledger"
	"github.com/janekbaraniewski/powerusage/internal/quota"
)

type stubRand struct {
	ints  []int
	float float64
}

func (r *stubRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func (r *stubRand) Float64() float64 { return r.float }

type recordingArchiver struct {
	cycles []quota.State
	err    error
}

func (a *recordingArchiver) ArchiveCycle(_ context.Context, st quota.State) (archive.Cycle, error) {
	if a.err != nil {
		return archive.Cycle{}, a.err
	}
	a.cycles = append(a.cycles, st)
	return archive.Cycle{ID: "cycle-1", Events: len(st.History)}, nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.April, 2, 9, 15, 0, 0, time.Local)
}

func openTest(t *testing.T, path string, arch Archiver) *Tracker {
	t.Helper()
	tr, err := Open(Options{
		Path:     path,
		Now:      fixedNow,
		Rand:     &stubRand{ints: []int{5, 3}, float: 0.5},
		Archiver: arch,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return tr
}

func TestOpen_MissingFileUsesDefaults(t *testing.T) {
	tr := openTest(t, filepath.Join(t.TempDir(), "usage.txt"), nil)

	if tr.Loaded() {
		t.Fatal("Loaded = true for missing file")
	}
	st := tr.State()
	if st.TotalUnits != 15 || st.TotalDays != 18 {
		t.Fatalf("defaults = %d/%d, want 15/18", st.TotalUnits, st.TotalDays)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpen_MalformedFileIsNotOverwritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.txt")
	if err := os.WriteFile(path, []byte("Total Units: ten\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Open(Options{Path: path})
	var malformed *ledger.MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedError", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "Total Units: ten\n" {
		t.Fatalf("file rewritten: %q", data)
	}
}

func TestRecord_SaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.txt")
	tr := openTest(t, path, nil)
	tr.SetTotals(20, 10)
	if _, err := tr.Reset(context.Background(), 20, 10); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	events, err := tr.Record(4.5)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(events) != 1 || events[0].Kind != quota.EventUsageRecorded {
		t.Fatalf("events = %+v", events)
	}
	if err := tr.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened := openTest(t, path, nil)
	if !reopened.Loaded() {
		t.Fatal("Loaded = false after save")
	}
	st := reopened.State()
	if st.RemainingUnits != 15.5 || st.RemainingDays != 9 || len(st.History) != 1 {
		t.Fatalf("reopened state = %+v", st)
	}
	if !st.History[0].Timestamp.Equal(fixedNow()) {
		t.Fatalf("timestamp = %v", st.History[0].Timestamp)
	}
}

func TestRecord_RejectionLeavesState(t *testing.T) {
	tr := openTest(t, filepath.Join(t.TempDir(), "usage.txt"), nil)
	before := tr.State()

	if _, err := tr.Record(before.RemainingUnits + 1); !errors.Is(err, quota.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want insufficient balance", err)
	}
	if _, err := tr.Record(-2); !errors.Is(err, quota.ErrInvalidAmount) {
		t.Fatalf("err = %v, want invalid amount", err)
	}
	if !tr.State().Equal(before) {
		t.Fatalf("state changed: %+v", tr.State())
	}
}

func TestMeter(t *testing.T) {
	tr := openTest(t, filepath.Join(t.TempDir(), "usage.txt"), nil)
	before := tr.State()

	units, events, err := tr.Meter()
	if err != nil {
		t.Fatalf("Meter: %v", err)
	}
	if units != 2.75 {
		t.Fatalf("units = %v, want 2.75", units)
	}
	if len(events) == 0 {
		t.Fatal("expected events")
	}
	if got := tr.State().RemainingUnits; got != before.RemainingUnits-2.75 {
		t.Fatalf("remaining = %v", got)
	}
}

func TestReset_ArchivesCycleWithUsage(t *testing.T) {
	arch := &recordingArchiver{}
	path := filepath.Join(t.TempDir(), "usage.txt")
	tr := openTest(t, path, arch)

	if _, err := tr.Reset(context.Background(), 12, 20); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(arch.cycles) != 0 {
		t.Fatalf("empty cycle archived: %d", len(arch.cycles))
	}

	if _, err := tr.Record(1); err != nil {
		t.Fatalf("Record: %v", err)
	}
	events, err := tr.Reset(context.Background(), 25, 30)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(events) != 1 || events[0].Kind != quota.EventReset {
		t.Fatalf("events = %+v", events)
	}
	if len(arch.cycles) != 1 || len(arch.cycles[0].History) != 1 {
		t.Fatalf("archived = %+v", arch.cycles)
	}

	saved, err := ledger.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.TotalUnits != 25 || saved.RemainingUnits != 25 || saved.RemainingDays != 30 || len(saved.History) != 0 {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestReset_ArchiveFailureKeepsState(t *testing.T) {
	arch := &recordingArchiver{err: errors.New("disk full")}
	tr := openTest(t, filepath.Join(t.TempDir(), "usage.txt"), arch)
	if _, err := tr.Record(1); err != nil {
		t.Fatalf("Record: %v", err)
	}
	before := tr.State()

	if _, err := tr.Reset(context.Background(), 30, 30); err == nil {
		t.Fatal("expected archive error")
	}
	if !tr.State().Equal(before) {
		t.Fatalf("state changed after failed reset: %+v", tr.State())
	}
}

func TestSetTotals_KeepsBalance(t *testing.T) {
	tr := openTest(t, filepath.Join(t.TempDir(), "usage.txt"), nil)
	before := tr.State()
	tr.SetTotals(99, 99)
	st := tr.State()
	if st.TotalUnits != 99 || st.TotalDays != 99 {
		t.Fatalf("totals = %d/%d", st.TotalUnits, st.TotalDays)
	}
	if st.RemainingUnits != before.RemainingUnits || st.RemainingDays != before.RemainingDays {
		t.Fatalf("balance changed: %+v", st)
	}
}

func TestStartupEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.txt")
	low := quota.State{TotalUnits: 10, TotalDays: 10, RemainingUnits: 1, RemainingDays: 0}
	if err := ledger.Save(path, low); err != nil {
		t.Fatalf("Save: %v", err)
	}
	tr := openTest(t, path, nil)
	events := tr.StartupEvents()
	if len(events) != 2 {
		t.Fatalf("startup events = %+v", events)
	}
	if tr.Alerts() != quota.AlertLowUnits|quota.AlertDaysExhausted {
		t.Fatalf("alerts = %v", tr.Alerts())
	}
}

type closingArchiver struct {
	recordingArchiver
	closed bool
}

func (a *closingArchiver) Close() error {
	a.closed = true
	return nil
}

func TestClose_ClosesArchiver(t *testing.T) {
	arch := &closingArchiver{}
	tr := openTest(t, filepath.Join(t.TempDir(), "usage.txt"), arch)
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !arch.closed {
		t.Fatal("archiver was not closed")
	}

	plain := openTest(t, filepath.Join(t.TempDir(), "usage.txt"), nil)
	if err := plain.Close(); err != nil {
		t.Fatalf("Close without archiver: %v", err)
	}
}
