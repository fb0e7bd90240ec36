package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/gtu-cse396/sdbelt/internal/domain/diagnosis"
)

// createdLayout is fixed width so ORDER BY created_at sorts chronologically.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

type DiagnosisRepository struct {
	db *sql.DB
}

func NewDiagnosisRepository(db *sql.DB) *DiagnosisRepository {
	return &DiagnosisRepository{db: db}
}

func (r *DiagnosisRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS belt_diagnoses (
  id          TEXT PRIMARY KEY,
  product_id  TEXT NOT NULL,
  failures    INTEGER NOT NULL,
  result_json TEXT NOT NULL,
  created_at  TEXT NOT NULL
);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *DiagnosisRepository) Save(ctx context.Context, d *domain.Diagnosis) error {
	const q = `
INSERT INTO belt_diagnoses (id, product_id, failures, result_json, created_at)
VALUES (?,?,?,?,?)
ON CONFLICT (id) DO UPDATE SET
  product_id=excluded.product_id,
  failures=excluded.failures,
  result_json=excluded.result_json;`
	result := d.Result
	if strings.TrimSpace(result) == "" {
		result = "{}"
	}
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, string(d.ID), d.ProductID, d.Failures, result,
		createdAt.UTC().Format(createdLayout))
	return err
}

func (r *DiagnosisRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Diagnosis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, product_id, failures, result_json, created_at
FROM belt_diagnoses
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Diagnosis
	for rows.Next() {
		var (
			d       domain.Diagnosis
			created string
		)
		if err := rows.Scan(&d.ID, &d.ProductID, &d.Failures, &d.Result, &created); err != nil {
			return nil, err
		}
		if d.CreatedAt, err = time.Parse(createdLayout, created); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
