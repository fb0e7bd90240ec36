package system

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gtu-cse396/sdbelt/internal/application"
	domain "github.com/gtu-cse396/sdbelt/internal/domain/system"
)

const (
	DefaultLogLimit   = 100
	MaxLogLimit       = 1000
	DefaultStaleAfter = 30 * time.Second
)

// Service stores what the detector host reports about itself.
type Service struct {
	repo       domain.Repository
	clock      application.Clock
	staleAfter time.Duration
	logger     *zap.Logger
}

// NewService wires the service. A non-positive staleAfter uses DefaultStaleAfter.
func NewService(repo domain.Repository, clock application.Clock, staleAfter time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Service{repo: repo, clock: clock, staleAfter: staleAfter, logger: logger}
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func stamp(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC().Truncate(time.Microsecond)
}

// ReportStatus stores a snapshot. A missing timestamp is set to the receive time.
func (s *Service) ReportStatus(ctx context.Context, st domain.Status) (domain.Status, error) {
	st.Timestamp = stamp(st.Timestamp, s.now())
	if err := s.repo.SaveStatus(ctx, st); err != nil {
		return domain.Status{}, fmt.Errorf("saving system status: %w", err)
	}
	s.logger.Debug("system status",
		zap.Float64("cpu_degree", st.CPUDegree),
		zap.Float64("cpu_usage", st.CPUUsage),
		zap.String("memory_usage", string(st.MemoryUsage)))
	return st, nil
}

// Info returns the latest snapshot and whether the host still reports.
func (s *Service) Info(ctx context.Context) (domain.Info, error) {
	st, err := s.repo.LatestStatus(ctx)
	if errors.Is(err, domain.ErrNoStatus) {
		return domain.NewInfo(nil, s.now(), s.staleAfter), nil
	}
	if err != nil {
		return domain.Info{}, fmt.Errorf("loading system status: %w", err)
	}
	return domain.NewInfo(&st, s.now(), s.staleAfter), nil
}

// Log stores a log entry sent by the detector host.
func (s *Service) Log(ctx context.Context, e domain.LogEntry) (domain.LogEntry, error) {
	level, err := domain.ParseLevel(string(e.Level))
	if err != nil {
		return domain.LogEntry{}, err
	}
	e.Level = level
	e.Message = strings.TrimSpace(e.Message)
	if e.Message == "" {
		return domain.LogEntry{}, domain.ErrEmptyMessage
	}
	e.Timestamp = stamp(e.Timestamp, s.now())
	if err := s.repo.SaveLog(ctx, e); err != nil {
		return domain.LogEntry{}, fmt.Errorf("saving system log: %w", err)
	}
	if e.Level == domain.LevelError {
		s.logger.Warn("detector reported error", zap.String("message", e.Message))
	}
	return e, nil
}

// Logs returns the newest entries matching f, oldest first.
func (s *Service) Logs(ctx context.Context, f domain.LogFilter) ([]domain.LogEntry, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLogLimit
	case f.Limit > MaxLogLimit:
		f.Limit = MaxLogLimit
	}
	list, err := s.repo.Logs(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("loading system logs: %w", err)
	}
	if list == nil {
		list = []domain.LogEntry{}
	}
	return list, nil
}
