package quota

import (
	"math"
	"time"
)

const (
	minMeterReading = 0.5
	maxMeterReading = 5.0
)

// GenerateSyntheticUsage draws a smart-meter reading uniformly from
// [0.5, 5.0], rounded to two decimals.
func GenerateSyntheticUsage(rng Rand) float64 {
	v := minMeterReading + rng.Float64()*(maxMeterReading-minMeterReading)
	return math.Round(v*100) / 100
}

// SimulateMeter records a synthetic reading through RecordUsage, so the
// reading can still be rejected for an insufficient balance.
func SimulateMeter(st State, rng Rand, at time.Time) (State, float64, []Event, error) {
	units := GenerateSyntheticUsage(rng)
	next, events, err := RecordUsage(st, units, at)
	return next, units, events, err
}
