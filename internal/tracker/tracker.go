package tracker

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/janekbaraniewski/powerusage/internal/archive"
	"github.com/janekbaraniewski/powerusage/internal/ledger"
	"github.com/janekbaraniewski/powerusage/internal/quota"
	"github.com/rs/zerolog"
)

// Archiver keeps a finished cycle before reset clears it.
type Archiver interface {
	ArchiveCycle(ctx context.Context, st quota.State) (archive.Cycle, error)
}

type Options struct {
	Path     string
	Now      func() time.Time
	Rand     quota.Rand
	Logger   *zerolog.Logger
	Archiver Archiver
}

// Tracker owns the quota state of one data file. It is not safe for
// concurrent use; callers drive it from a single event loop.
type Tracker struct {
	path     string
	state    quota.State
	found    bool
	now      func() time.Time
	rng      quota.Rand
	logger   zerolog.Logger
	archiver Archiver
}

// Open loads the state file at opts.Path, or starts a random first-run cycle
// when it does not exist. A malformed file is returned as an error and left
// untouched.
func Open(opts Options) (*Tracker, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("tracker: data file path is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	t := &Tracker{
		path:     opts.Path,
		now:      opts.Now,
		rng:      opts.Rand,
		logger:   logger.With().Str("component", "tracker").Logger(),
		archiver: opts.Archiver,
	}

	st, found, err := ledger.LoadOrDefault(opts.Path, opts.Rand)
	if err != nil {
		return nil, fmt.Errorf("tracker: loading %s: %w", opts.Path, err)
	}
	t.state = st
	t.found = found

	t.logger.Debug().
		Str("path", opts.Path).
		Bool("found", found).
		Int("total_units", st.TotalUnits).
		Int("total_days", st.TotalDays).
		Int("history", len(st.History)).
		Msg("state loaded")
	return t, nil
}

func (t *Tracker) Path() string { return t.path }

// Loaded reports whether the state came from an existing file.
func (t *Tracker) Loaded() bool { return t.found }

func (t *Tracker) State() quota.State { return t.state.Clone() }

func (t *Tracker) Alerts() quota.Alert { return quota.CheckThresholds(t.state) }

// StartupEvents returns the alerts to show when a session begins.
func (t *Tracker) StartupEvents() []quota.Event { return quota.ThresholdEvents(t.state) }

// SetTotals stores new quota totals without touching the remaining balance;
// they take effect on the next reset.
func (t *Tracker) SetTotals(units, days int) {
	t.state.TotalUnits = units
	t.state.TotalDays = days
}

func (t *Tracker) Record(units float64) ([]quota.Event, error) {
	next, events, err := quota.RecordUsage(t.state, units, t.now())
	if err != nil {
		t.logger.Debug().Err(err).Float64("units", units).Msg("usage rejected")
		return nil, err
	}
	t.state = next
	t.logUsage(units, "manual")
	return events, nil
}

// Meter records a simulated smart-meter reading and returns the amount drawn.
func (t *Tracker) Meter() (float64, []quota.Event, error) {
	next, units, events, err := quota.SimulateMeter(t.state, t.rng, t.now())
	if err != nil {
		t.logger.Debug().Err(err).Float64("units", units).Msg("meter reading rejected")
		return units, nil, err
	}
	t.state = next
	t.logUsage(units, "meter")
	return units, events, nil
}

// Reset archives the current cycle when an archiver is configured and the
// cycle has usage, starts a new one and saves it.
func (t *Tracker) Reset(ctx context.Context, units, days int) ([]quota.Event, error) {
	if t.archiver != nil && len(t.state.History) > 0 {
		cycle, err := t.archiver.ArchiveCycle(ctx, t.state)
		if err != nil {
			return nil, fmt.Errorf("tracker: archiving cycle: %w", err)
		}
		t.logger.Debug().Str("cycle_id", cycle.ID).Int("events", cycle.Events).Msg("cycle archived")
	}

	next, events := quota.Reset(t.state, units, days)
	t.state = next
	t.logger.Debug().Int("total_units", units).Int("total_days", days).Msg("cycle reset")

	if err := t.Save(); err != nil {
		return events, err
	}
	return events, nil
}

func (t *Tracker) Save() error {
	if err := ledger.Save(t.path, t.state); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	t.found = true
	t.logger.Debug().Str("path", t.path).Int("history", len(t.state.History)).Msg("state saved")
	return nil
}

// Close releases the archiver when it holds resources. It does not save.
func (t *Tracker) Close() error {
	if c, ok := t.archiver.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *Tracker) logUsage(units float64, source string) {
	t.logger.Debug().
		Str("source", source).
		Float64("units", units).
		Float64("remaining_units", t.state.RemainingUnits).
		Int("remaining_days", t.state.RemainingDays).
		Stringer("alerts", quota.CheckThresholds(t.state)).
		Msg("usage recorded")
}
