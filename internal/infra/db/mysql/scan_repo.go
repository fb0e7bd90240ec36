package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/gtu-cse396/sdbelt/internal/domain/scans"
	"github.com/gtu-cse396/sdbelt/internal/infra/db/sqlutil"
)

var dialect = sqlutil.Dialect{
	Placeholder: sqlutil.QuestionMark,
	EncodeTime:  sqlutil.TimeValue,
}

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Migrate creates the belt_scans table when missing.
func (r *ScanRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS belt_scans (
  id            BIGINT AUTO_INCREMENT PRIMARY KEY,
  product_id    VARCHAR(128) NOT NULL,
  health_ratio  DOUBLE NULL,
  is_success    BOOLEAN NULL,
  error_message TEXT NULL,
  scanned_at    DATETIME(6) NULL,
  INDEX idx_belt_scans_product (product_id, scanned_at),
  INDEX idx_belt_scans_time (scanned_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

// Save inserts a scan and returns its id
func (r *ScanRepository) Save(ctx context.Context, s domain.Result) (domain.ID, error) {
	const q = `
INSERT INTO belt_scans (product_id, health_ratio, is_success, error_message, scanned_at)
VALUES (?,?,?,?,?);`
	res, err := r.db.ExecContext(ctx, q, dialect.InsertArgs(s)...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return domain.ID(id), nil
}

// Get by ID
func (r *ScanRepository) Get(ctx context.Context, id domain.ID) (domain.Result, error) {
	q := "SELECT " + sqlutil.ScanColumns + " FROM belt_scans WHERE id=? LIMIT 1;"
	_, s, err := sqlutil.ScanResult(r.db.QueryRowContext(ctx, q, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Result{}, domain.ErrNotFound
	}
	return s, err
}

// List returns the newest scans matching f
func (r *ScanRepository) List(ctx context.Context, f domain.Filter) ([]domain.Result, error) {
	where, args := dialect.Where(f)
	q := "SELECT " + sqlutil.ScanColumns + " FROM belt_scans" + where + sqlutil.OrderNewest + " LIMIT ?"
	args = append(args, f.NormalizedLimit())
	return r.query(ctx, q, args...)
}

// Paginate with offset + limit (classic pagination)
func (r *ScanRepository) Paginate(ctx context.Context, f domain.Filter, page, pageSize int) (domain.Page, error) {
	page, pageSize = domain.NormalizePage(page, pageSize)
	offset := (page - 1) * pageSize

	where, args := dialect.Where(f)
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM belt_scans"+where, args...).Scan(&total); err != nil {
		return domain.Page{}, fmt.Errorf("getting total count: %w", err)
	}

	q := "SELECT " + sqlutil.ScanColumns + " FROM belt_scans" + where + sqlutil.OrderNewest + " LIMIT ? OFFSET ?"
	list, err := r.query(ctx, q, append(args, pageSize, offset)...)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.NewPage(list, page, pageSize, total), nil
}

func (r *ScanRepository) query(ctx context.Context, q string, args ...any) ([]domain.Result, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		_, s, err := sqlutil.ScanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
