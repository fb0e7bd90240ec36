package scans

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("scan not found")
	ErrArchiveDisabled = errors.New("archive store not configured")
)

// Repository port (persistence)
type Repository interface {
	Migrate(ctx context.Context) error
	Save(ctx context.Context, r Result) (ID, error)
	Get(ctx context.Context, id ID) (Result, error)
	List(ctx context.Context, f Filter) ([]Result, error)
	Paginate(ctx context.Context, f Filter, page, pageSize int) (Page, error)
}

// ArchiveStore port (object storage for exported batches)
type ArchiveStore interface {
	PutJSON(ctx context.Context, key string, body []byte) (string, error)
}
