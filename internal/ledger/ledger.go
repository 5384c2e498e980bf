// Package ledger reads and writes the quota state file.
//
// The file is plain text with a fixed line order:
//
//	Total Units: <integer>
//	Total Days: <integer>
//	Remaining Units: <real>
//	Remaining Days: <integer>
//	Timestamp,Units Used
//	<timestamp>,<real>
//	...
package ledger

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/janekbaraniewski/powerusage/internal/quota"
)

const (
	labelTotalUnits     = "Total Units"
	labelTotalDays      = "Total Days"
	labelRemainingUnits = "Remaining Units"
	labelRemainingDays  = "Remaining Days"
	historyHeader       = "Timestamp,Units Used"

	headerLines = 5
)

// DefaultFileName is the data file name inside the state directory.
const DefaultFileName = "electricity_data.txt"

var ErrNotFound = errors.New("ledger: state file not found")

// MalformedError reports a state file that could not be parsed. Line is
// 1-based; zero means the file ended early.
type MalformedError struct {
	Line int
	Err  error
}

func (e *MalformedError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("ledger: malformed state file: %v", e.Err)
	}
	return fmt.Sprintf("ledger: malformed state file at line %d: %v", e.Line, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

func Save(path string, st quota.State) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ledger: creating state dir: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, st); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("ledger: writing state file: %w", err)
	}
	return nil
}

func Load(path string) (quota.State, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return quota.State{}, ErrNotFound
		}
		return quota.State{}, fmt.Errorf("ledger: opening state file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// LoadOrDefault loads path, falling back to a random first-run cycle when the
// file does not exist. found reports whether the file was read.
func LoadOrDefault(path string, rng quota.Rand) (st quota.State, found bool, err error) {
	st, err = Load(path)
	switch {
	case err == nil:
		return st, true, nil
	case errors.Is(err, ErrNotFound):
		return quota.NewDefaultState(rng), false, nil
	default:
		return quota.State{}, false, err
	}
}

func Encode(w io.Writer, st quota.State) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s: %d\n", labelTotalUnits, st.TotalUnits)
	fmt.Fprintf(bw, "%s: %d\n", labelTotalDays, st.TotalDays)
	fmt.Fprintf(bw, "%s: %s\n", labelRemainingUnits, quota.FormatUnits(st.RemainingUnits))
	fmt.Fprintf(bw, "%s: %d\n", labelRemainingDays, st.RemainingDays)
	fmt.Fprintln(bw, historyHeader)
	// The layout has no zone; rows are written and read as local wall time,
	// so an instant in the repeated DST fall-back hour loads as its first
	// occurrence.
	for _, rec := range st.History {
		ts := rec.Timestamp.In(time.Local).Format(quota.TimestampLayout)
		fmt.Fprintf(bw, "%s,%s\n", ts, quota.FormatUnits(rec.Units))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("ledger: encoding state: %w", err)
	}
	return nil
}

func Decode(r io.Reader) (quota.State, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return quota.State{}, fmt.Errorf("ledger: reading state file: %w", err)
	}
	if len(lines) < headerLines {
		return quota.State{}, &MalformedError{Err: fmt.Errorf("expected at least %d lines, got %d", headerLines, len(lines))}
	}

	var (
		st  quota.State
		err error
	)
	if st.TotalUnits, err = intField(lines, 0, labelTotalUnits); err != nil {
		return quota.State{}, err
	}
	if st.TotalDays, err = intField(lines, 1, labelTotalDays); err != nil {
		return quota.State{}, err
	}
	if st.RemainingUnits, err = floatField(lines, 2, labelRemainingUnits); err != nil {
		return quota.State{}, err
	}
	if st.RemainingDays, err = intField(lines, 3, labelRemainingDays); err != nil {
		return quota.State{}, err
	}
	if strings.TrimSpace(lines[4]) != historyHeader {
		return quota.State{}, &MalformedError{Line: 5, Err: fmt.Errorf("expected header %q", historyHeader)}
	}

	for i := headerLines; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		rec, err := parseRow(line)
		if err != nil {
			return quota.State{}, &MalformedError{Line: i + 1, Err: err}
		}
		st.History = append(st.History, rec)
	}
	return st, nil
}

func parseRow(line string) (quota.UsageRecord, error) {
	ts, units, ok := strings.Cut(line, ",")
	if !ok {
		return quota.UsageRecord{}, fmt.Errorf("usage row %q has no comma", line)
	}
	at, err := time.ParseInLocation(quota.TimestampLayout, strings.TrimSpace(ts), time.Local)
	if err != nil {
		return quota.UsageRecord{}, fmt.Errorf("parsing timestamp: %w", err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(units), 64)
	if err != nil {
		return quota.UsageRecord{}, fmt.Errorf("parsing units: %w", err)
	}
	return quota.UsageRecord{Timestamp: at, Units: v}, nil
}

func fieldValue(lines []string, idx int, label string) (string, error) {
	key, value, ok := strings.Cut(lines[idx], ": ")
	if !ok || strings.TrimSpace(key) != label {
		return "", &MalformedError{Line: idx + 1, Err: fmt.Errorf("expected %q field", label)}
	}
	return strings.TrimSpace(value), nil
}

func intField(lines []string, idx int, label string) (int, error) {
	raw, err := fieldValue(lines, idx, label)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &MalformedError{Line: idx + 1, Err: fmt.Errorf("parsing %s: %w", strings.ToLower(label), err)}
	}
	return v, nil
}

func floatField(lines []string, idx int, label string) (float64, error) {
	raw, err := fieldValue(lines, idx, label)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &MalformedError{Line: idx + 1, Err: fmt.Errorf("parsing %s: %w", strings.ToLower(label), err)}
	}
	return v, nil
}
