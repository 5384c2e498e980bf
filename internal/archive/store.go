package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/janekbaraniewski/powerusage/internal/quota"
	_ "github.com/mattn/go-sqlite3"
)

// Cycle is a quota cycle that ended with a reset.
type Cycle struct {
	ID             string
	ArchivedAt     time.Time
	TotalUnits     int
	TotalDays      int
	RemainingUnits float64
	RemainingDays  int
	Events         int
	UnitsUsed      float64
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("archive: opening DB: %w", err)
	}
	if err := configureSQLiteConnection(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: %w", err)
	}

	store := NewStore(db)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS quota_cycles (
			cycle_id TEXT PRIMARY KEY,
			archived_at TEXT NOT NULL,
			total_units INTEGER NOT NULL,
			total_days INTEGER NOT NULL,
			remaining_units REAL NOT NULL,
			remaining_days INTEGER NOT NULL,
			events INTEGER NOT NULL,
			units_used REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_quota_cycles_archived_at ON quota_cycles(archived_at);`,
		`CREATE TABLE IF NOT EXISTS cycle_usage (
			cycle_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			units REAL NOT NULL,
			PRIMARY KEY (cycle_id, seq),
			FOREIGN KEY(cycle_id) REFERENCES quota_cycles(cycle_id) ON DELETE CASCADE
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("archive: init schema: %w", err)
		}
	}
	return nil
}

// ArchiveCycle stores st and its usage rows in one transaction.
func (s *Store) ArchiveCycle(ctx context.Context, st quota.State) (Cycle, error) {
	cycle := Cycle{
		ID:             uuid.NewString(),
		ArchivedAt:     s.now().UTC().Truncate(time.Second),
		TotalUnits:     st.TotalUnits,
		TotalDays:      st.TotalDays,
		RemainingUnits: st.RemainingUnits,
		RemainingDays:  st.RemainingDays,
		Events:         len(st.History),
		UnitsUsed:      st.UsedUnits(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Cycle{}, fmt.Errorf("archive: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO quota_cycles (
			cycle_id, archived_at, total_units, total_days,
			remaining_units, remaining_days, events, units_used
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cycle.ID,
		cycle.ArchivedAt.Format(time.RFC3339),
		cycle.TotalUnits,
		cycle.TotalDays,
		cycle.RemainingUnits,
		cycle.RemainingDays,
		cycle.Events,
		cycle.UnitsUsed,
	); err != nil {
		return Cycle{}, fmt.Errorf("archive: insert cycle: %w", err)
	}

	for i, rec := range st.History {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cycle_usage (cycle_id, seq, recorded_at, units) VALUES (?, ?, ?, ?)
		`, cycle.ID, i, rec.Timestamp.Format(time.RFC3339), rec.Units); err != nil {
			return Cycle{}, fmt.Errorf("archive: insert usage row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Cycle{}, fmt.Errorf("archive: commit tx: %w", err)
	}
	return cycle, nil
}

// ListCycles returns archived cycles, newest first. limit <= 0 returns all.
func (s *Store) ListCycles(ctx context.Context, limit int) ([]Cycle, error) {
	query := `
		SELECT cycle_id, archived_at, total_units, total_days,
			remaining_units, remaining_days, events, units_used
		FROM quota_cycles
		ORDER BY archived_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: list cycles: %w", err)
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		var (
			c          Cycle
			archivedAt string
		)
		if err := rows.Scan(&c.ID, &archivedAt, &c.TotalUnits, &c.TotalDays,
			&c.RemainingUnits, &c.RemainingDays, &c.Events, &c.UnitsUsed); err != nil {
			return nil, fmt.Errorf("archive: scan cycle: %w", err)
		}
		if c.ArchivedAt, err = time.Parse(time.RFC3339, archivedAt); err != nil {
			return nil, fmt.Errorf("archive: parse archived_at for %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: list cycles: %w", err)
	}
	return out, nil
}

// CycleUsage returns the usage rows of one cycle in recording order.
func (s *Store) CycleUsage(ctx context.Context, cycleID string) ([]quota.UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recorded_at, units FROM cycle_usage WHERE cycle_id = ? ORDER BY seq
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("archive: cycle usage: %w", err)
	}
	defer rows.Close()

	var out []quota.UsageRecord
	for rows.Next() {
		var (
			recordedAt string
			rec        quota.UsageRecord
		)
		if err := rows.Scan(&recordedAt, &rec.Units); err != nil {
			return nil, fmt.Errorf("archive: scan usage row: %w", err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339, recordedAt); err != nil {
			return nil, fmt.Errorf("archive: parse recorded_at: %w", err)
		}
		rec.Timestamp = rec.Timestamp.Local()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: cycle usage: %w", err)
	}
	return out, nil
}
