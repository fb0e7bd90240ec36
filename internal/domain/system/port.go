package system

import (
	"context"
	"errors"
)

var (
	ErrNoStatus     = errors.New("no system status reported yet")
	ErrInvalidLevel = errors.New("invalid log level")
	ErrEmptyMessage = errors.New("log message is empty")
)

// Repository port for system status snapshots and log entries
type Repository interface {
	Migrate(ctx context.Context) error
	SaveStatus(ctx context.Context, s Status) error
	LatestStatus(ctx context.Context) (Status, error)
	SaveLog(ctx context.Context, e LogEntry) error
	// Logs returns the newest entries matching f in chronological order.
	Logs(ctx context.Context, f LogFilter) ([]LogEntry, error)
}
