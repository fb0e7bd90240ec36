package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/gtu-cse396/sdbelt/internal/domain/diagnosis"
)

type DiagnosisRepository struct {
	db *sql.DB
}

func NewDiagnosisRepository(db *sql.DB) *DiagnosisRepository {
	return &DiagnosisRepository{db: db}
}

func (r *DiagnosisRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS belt_diagnoses (
  id          VARCHAR(64) PRIMARY KEY,
  product_id  VARCHAR(128) NOT NULL,
  failures    INT NOT NULL,
  result_json JSON NOT NULL,
  created_at  DATETIME(6) NOT NULL,
  INDEX idx_belt_diagnoses_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

// Save inserts a diagnosis record
func (r *DiagnosisRepository) Save(ctx context.Context, d *domain.Diagnosis) error {
	const q = `
INSERT INTO belt_diagnoses
  (id, product_id, failures, result_json, created_at)
VALUES (?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  product_id=VALUES(product_id), failures=VALUES(failures), result_json=VALUES(result_json);
`
	result := d.Result
	if strings.TrimSpace(result) == "" {
		// result_json column requires valid JSON; use empty object
		result = "{}"
	}
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q, d.ID, d.ProductID, d.Failures, result, createdAt)
	return err
}

// Paginate returns a page of diagnoses ordered by created_at desc
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
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Diagnosis
	for rows.Next() {
		var d domain.Diagnosis
		if err := rows.Scan(&d.ID, &d.ProductID, &d.Failures, &d.Result, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
