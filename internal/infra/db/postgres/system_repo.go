package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domain "github.com/gtu-cse396/sdbelt/internal/domain/system"
)

// SystemRepository keeps detector host status and logs in PostgreSQL.
type SystemRepository struct {
	db *sql.DB
}

func NewSystemRepository(db *sql.DB) *SystemRepository {
	return &SystemRepository{db: db}
}

func (r *SystemRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS belt_system_status (
  id           BIGSERIAL PRIMARY KEY,
  reported_at  TIMESTAMPTZ(6) NOT NULL,
  cpu_degree   DOUBLE PRECISION NOT NULL,
  cpu_usage    DOUBLE PRECISION NOT NULL,
  memory_usage VARCHAR(128) NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_belt_system_status_time ON belt_system_status (reported_at);
CREATE TABLE IF NOT EXISTS belt_system_logs (
  id        BIGSERIAL PRIMARY KEY,
  logged_at TIMESTAMPTZ(6) NOT NULL,
  level     VARCHAR(16) NOT NULL,
  message   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_belt_system_logs_time ON belt_system_logs (logged_at);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *SystemRepository) SaveStatus(ctx context.Context, s domain.Status) error {
	const q = `
INSERT INTO belt_system_status (reported_at, cpu_degree, cpu_usage, memory_usage)
VALUES ($1,$2,$3,$4);`
	_, err := r.db.ExecContext(ctx, q, s.Timestamp.UTC(), s.CPUDegree, s.CPUUsage, string(s.MemoryUsage))
	return err
}

func (r *SystemRepository) LatestStatus(ctx context.Context) (domain.Status, error) {
	const q = `
SELECT reported_at, cpu_degree, cpu_usage, memory_usage
FROM belt_system_status
ORDER BY reported_at DESC, id DESC
LIMIT 1;`
	var s domain.Status
	err := r.db.QueryRowContext(ctx, q).Scan(&s.Timestamp, &s.CPUDegree, &s.CPUUsage, &s.MemoryUsage)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Status{}, domain.ErrNoStatus
	}
	if err != nil {
		return domain.Status{}, err
	}
	s.Timestamp = s.Timestamp.UTC()
	return s, nil
}

func (r *SystemRepository) SaveLog(ctx context.Context, e domain.LogEntry) error {
	const q = `INSERT INTO belt_system_logs (logged_at, level, message) VALUES ($1,$2,$3);`
	_, err := r.db.ExecContext(ctx, q, e.Timestamp.UTC(), string(e.Level), e.Message)
	return err
}

// Logs returns the newest entries matching f, oldest first
func (r *SystemRepository) Logs(ctx context.Context, f domain.LogFilter) ([]domain.LogEntry, error) {
	var (
		conds []string
		args  []any
	)
	if f.Level != "" {
		args = append(args, string(f.Level))
		conds = append(conds, "level = "+dialect.Placeholder(len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since.UTC())
		conds = append(conds, "logged_at > "+dialect.Placeholder(len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit)

	q := `
SELECT logged_at, level, message FROM (
  SELECT id, logged_at, level, message FROM belt_system_logs` + where + `
  ORDER BY logged_at DESC, id DESC LIMIT ` + dialect.Placeholder(len(args)) + `
) AS recent
ORDER BY logged_at, id;`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LogEntry
	for rows.Next() {
		var e domain.LogEntry
		if err := rows.Scan(&e.Timestamp, &e.Level, &e.Message); err != nil {
			return nil, err
		}
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
