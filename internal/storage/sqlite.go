package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	logx "goalcoach/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	opCount    atomic.Uint64
	pruneEvery uint64
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, pruneEvery: 500}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadReminder(ctx context.Context) (ReminderState, error) {
	if s == nil || s.db == nil {
		return DefaultReminderState(), ErrDisabled
	}
	var (
		goal     string
		interval int
		running  int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT goal, interval_minutes, running FROM reminder_state WHERE id = 1`,
	).Scan(&goal, &interval, &running)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultReminderState(), nil
	}
	if err != nil {
		return DefaultReminderState(), err
	}
	if interval < 1 {
		interval = DefaultReminderState().IntervalMinutes
	}
	return ReminderState{Goal: goal, IntervalMinutes: interval, Running: running != 0}, nil
}

func (s *sqliteStore) SaveReminder(ctx context.Context, st ReminderState) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	running := 0
	if st.Running {
		running = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminder_state(id, goal, interval_minutes, running, updated_at)
		 VALUES(1,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   goal=excluded.goal,
		   interval_minutes=excluded.interval_minutes,
		   running=excluded.running,
		   updated_at=excluded.updated_at`,
		st.Goal, st.IntervalMinutes, running, time.Now().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) AppendFire(ctx context.Context, rec FireRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fires(at_ms, goal, interval_minutes) VALUES(?,?,?)`,
		rec.At.UnixMilli(), rec.Goal, rec.Interval,
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_ = s.pruneOldFires(pctx)
		cancel()
	}
	return err
}

func (s *sqliteStore) RecentFires(ctx context.Context, since time.Time) ([]FireRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at_ms, goal, interval_minutes FROM fires WHERE at_ms >= ? ORDER BY at_ms ASC`,
		since.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FireRecord
	for rows.Next() {
		var (
			ms       int64
			goal     string
			interval int
		)
		if err := rows.Scan(&ms, &goal, &interval); err != nil {
			return nil, err
		}
		out = append(out, FireRecord{At: time.UnixMilli(ms), Goal: goal, Interval: interval})
	}
	return out, rows.Err()
}

func (s *sqliteStore) pruneOldFires(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	cutoff := time.Now().Add(-fireRetention).UnixMilli()
	_, err := s.db.ExecContext(ctx, `DELETE FROM fires WHERE at_ms < ?`, cutoff)
	return err
}
