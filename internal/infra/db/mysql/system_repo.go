package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domain "github.com/gtu-cse396/sdbelt/internal/domain/system"
)

// SystemRepository keeps detector host status and logs in MySQL.
type SystemRepository struct {
	db *sql.DB
}

func NewSystemRepository(db *sql.DB) *SystemRepository {
	return &SystemRepository{db: db}
}

func (r *SystemRepository) Migrate(ctx context.Context) error {
	// one statement per Exec; the DSN does not enable multiStatements
	stmts := []string{`
CREATE TABLE IF NOT EXISTS belt_system_status (
  id           BIGINT AUTO_INCREMENT PRIMARY KEY,
  reported_at  DATETIME(6) NOT NULL,
  cpu_degree   DOUBLE NOT NULL,
  cpu_usage    DOUBLE NOT NULL,
  memory_usage VARCHAR(128) NOT NULL,
  INDEX idx_belt_system_status_time (reported_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`, `
CREATE TABLE IF NOT EXISTS belt_system_logs (
  id        BIGINT AUTO_INCREMENT PRIMARY KEY,
  logged_at DATETIME(6) NOT NULL,
  level     VARCHAR(16) NOT NULL,
  message   TEXT NOT NULL,
  INDEX idx_belt_system_logs_time (logged_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`}
	for _, q := range stmts {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (r *SystemRepository) SaveStatus(ctx context.Context, s domain.Status) error {
	const q = `
INSERT INTO belt_system_status (reported_at, cpu_degree, cpu_usage, memory_usage)
VALUES (?,?,?,?);`
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
	const q = `INSERT INTO belt_system_logs (logged_at, level, message) VALUES (?,?,?);`
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
		conds = append(conds, "level = ?")
		args = append(args, string(f.Level))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "logged_at > ?")
		args = append(args, f.Since.UTC())
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
		var e domain.LogEntry
		if err := rows.Scan(&e.Timestamp, &e.Level, &e.Message); err != nil {
			return nil, err
		}
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
