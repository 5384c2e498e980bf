package quota

import (
	"time"

	"github.com/samber/lo"
)

const (
	minDefaultUnits = 10
	maxDefaultUnits = 30
	minDefaultDays  = 15
	maxDefaultDays  = 30
)

// TimestampLayout is the layout used for usage timestamps on disk and on screen.
const TimestampLayout = "2006-01-02 15:04:05"

type UsageRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Units     float64   `json:"units"`
}

// State is one quota cycle: the configured ceiling, what is left of it and
// every accepted usage event since the last reset.
type State struct {
	TotalUnits     int           `json:"total_units"`
	TotalDays      int           `json:"total_days"`
	RemainingUnits float64       `json:"remaining_units"`
	RemainingDays  int           `json:"remaining_days"`
	History        []UsageRecord `json:"history"`
}

// Rand is the random source used for defaults and simulated meter readings.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

func NewState(totalUnits, totalDays int) State {
	return State{
		TotalUnits:     totalUnits,
		TotalDays:      totalDays,
		RemainingUnits: float64(totalUnits),
		RemainingDays:  totalDays,
	}
}

// NewDefaultState starts a first-run cycle with a random quota in [10,30]
// units over [15,30] days.
func NewDefaultState(rng Rand) State {
	units := minDefaultUnits + rng.IntN(maxDefaultUnits-minDefaultUnits+1)
	days := minDefaultDays + rng.IntN(maxDefaultDays-minDefaultDays+1)
	return NewState(units, days)
}

func (s State) UsedUnits() float64 {
	return lo.SumBy(s.History, func(r UsageRecord) float64 { return r.Units })
}

// UnitsPercent returns remaining units as a percentage of the total, or -1
// when the total is not positive.
func (s State) UnitsPercent() float64 {
	if s.TotalUnits <= 0 {
		return -1
	}
	return s.RemainingUnits / float64(s.TotalUnits) * 100
}

func (s State) DaysPercent() float64 {
	if s.TotalDays <= 0 {
		return -1
	}
	return float64(s.RemainingDays) / float64(s.TotalDays) * 100
}

// Clone returns a copy whose history does not share a backing array with s.
func (s State) Clone() State {
	out := s
	if s.History != nil {
		out.History = append([]UsageRecord(nil), s.History...)
	}
	return out
}

func (s State) Equal(o State) bool {
	if s.TotalUnits != o.TotalUnits || s.TotalDays != o.TotalDays ||
		s.RemainingUnits != o.RemainingUnits || s.RemainingDays != o.RemainingDays ||
		len(s.History) != len(o.History) {
		return false
	}
	for i := range s.History {
		if !s.History[i].Timestamp.Equal(o.History[i].Timestamp) || s.History[i].Units != o.History[i].Units {
			return false
		}
	}
	return true
}
