package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	domain "github.com/gtu-cse396/sdbelt/internal/domain/system"
)

// systemLayout is fixed width in UTC so text order is time order.
const systemLayout = "2006-01-02T15:04:05.000000Z07:00"

// SystemRepository keeps detector host status and logs in SQLite.
type SystemRepository struct {
	db *sql.DB
}

func NewSystemRepository(db *sql.DB) *SystemRepository {
	return &SystemRepository{db: db}
}

func (r *SystemRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS belt_system_status (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  reported_at  TEXT NOT NULL,
  cpu_degree   REAL NOT NULL,
  cpu_usage    REAL NOT NULL,
  memory_usage TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_belt_system_status_time ON belt_system_status (reported_at);
CREATE TABLE IF NOT EXISTS belt_system_logs (
  id        INTEGER PRIMARY KEY AUTOINCREMENT,
  logged_at TEXT NOT NULL,
  level     TEXT NOT NULL,
  message   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_belt_system_logs_time ON belt_system_logs (logged_at);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *SystemRepository) SaveStatus(ctx context.Context, s domain.Status) error {
	const q = `
INSERT INTO belt_system_status (reported_at, cpu_degree, cpu_usage, memory_usage)
VALUES (?,?,?,?);`
	_, err := r.db.ExecContext(ctx, q, s.Timestamp.UTC().Format(systemLayout), s.CPUDegree, s.CPUUsage, string(s.MemoryUsage))
	return err
}

func (r *SystemRepository) LatestStatus(ctx context.Context) (domain.Status, error) {
	const q = `
SELECT reported_at, cpu_degree, cpu_usage, memory_usage
FROM belt_system_status
ORDER BY reported_at DESC, id DESC
LIMIT 1;`
	var (
		s        domain.Status
		reported string
	)
	err := r.db.QueryRowContext(ctx, q).Scan(&reported, &s.CPUDegree, &s.CPUUsage, &s.MemoryUsage)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Status{}, domain.ErrNoStatus
	}
	if err != nil {
		return domain.Status{}, err
	}
	if s.Timestamp, err = time.Parse(systemLayout, reported); err != nil {
		return domain.Status{}, err
	}
	return s, nil
}

func (r *SystemRepository) SaveLog(ctx context.Context, e domain.LogEntry) error {
	const q = `INSERT INTO belt_system_logs (logged_at, level, message) VALUES (?,?,?);`
	_, err := r.db.ExecContext(ctx, q, e.Timestamp.UTC().Format(systemLayout), string(e.Level), e.Message)
	return err
}

func (r *SystemRepository) Logs(ctx context.Context, f domain.LogFilter) ([]domain.LogEntry, error) {
	var (
		conds []string
		args  []any
	)
	if f.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, string(f.Level))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "logged_at > ?")
		args = append(args, f.Since.UTC().Format(systemLayout))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit)

	q := `
SELECT logged_at, level, message FROM (
  SELECT id, logged_at, level, message FROM belt_system_logs` + where + `
  ORDER BY logged_at DESC, id DESC LIMIT ?
) AS recent
ORDER BY logged_at, id;`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LogEntry
	for rows.Next() {
		var (
			e      domain.LogEntry
			logged string
		)
		if err := rows.Scan(&logged, &e.Level, &e.Message); err != nil {
			return nil, err
		}
		if e.Timestamp, err = time.Parse(systemLayout, logged); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
