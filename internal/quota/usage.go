package quota

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// RecordUsage deducts units from the cycle. The guard runs against the
// current balance, so an accepted deduction never leaves RemainingUnits
// negative. On error st is returned unchanged.
func RecordUsage(st State, units float64, at time.Time) (State, []Event, error) {
	if units < 0 || math.IsNaN(units) || math.IsInf(units, 0) {
		return st, nil, fmt.Errorf("%w: %v", ErrInvalidAmount, units)
	}
	if units > st.RemainingUnits {
		return st, nil, fmt.Errorf("%w: requested %v, remaining %v", ErrInsufficientBalance, units, st.RemainingUnits)
	}

	next := st.Clone()
	next.RemainingUnits -= units
	next.RemainingDays--
	if next.RemainingDays < 0 {
		next.RemainingDays = 0
	}
	next.History = append(next.History, UsageRecord{
		Timestamp: at.Truncate(time.Second),
		Units:     units,
	})

	events := []Event{{
		Kind:    EventUsageRecorded,
		Units:   units,
		Message: fmt.Sprintf("%s units used. Remaining units: %s, Remaining days: %d", FormatUnits(units), FormatUnits(next.RemainingUnits), next.RemainingDays),
	}}
	events = append(events, ThresholdEvents(next)...)
	return next, events, nil
}

// Reset starts a new cycle with the given totals and an empty history.
func Reset(_ State, totalUnits, totalDays int) (State, []Event) {
	next := NewState(totalUnits, totalDays)
	return next, []Event{{
		Kind:    EventReset,
		Message: "Usage data has been reset.",
	}}
}
