package scans

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gtu-cse396/sdbelt/internal/application"
	domain "github.com/gtu-cse396/sdbelt/internal/domain/scans"
)

// Service implements the scan use-cases.
// Service is safe for concurrent use once constructed.
type Service struct {
	Repo      domain.Repository
	Archiver  domain.ArchiveStore // nil disables archiving
	Clock     application.Clock
	Location  *time.Location
	Threshold float64 // initial acceptance threshold, see SetThreshold
	Logger    *zap.Logger

	override atomic.Pointer[float64]
}

// CurrentThreshold is the acceptance threshold Ingest applies right now.
func (s *Service) CurrentThreshold() float64 {
	if v := s.override.Load(); v != nil {
		return *v
	}
	return s.Threshold
}

// SetThreshold changes the acceptance threshold for subsequent batches.
func (s *Service) SetThreshold(v float64) error {
	if err := domain.ValidateThreshold(v); err != nil {
		return err
	}
	prev := s.CurrentThreshold()
	s.override.Store(&v)
	s.log().Info("acceptance threshold changed", zap.Float64("from", prev), zap.Float64("to", v))
	return nil
}

func (s *Service) now() domain.LocalDateTime {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return domain.NewLocalDateTime(s.Clock.Now().In(loc))
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// IngestResult is what the detector gets back after posting a batch.
type IngestResult struct {
	ID       domain.ID     `json:"id"`
	Scan     domain.Result `json:"scan"`
	Score    float64       `json:"score"`
	Accepted bool          `json:"accepted"`
}

// Ingest evaluates a batch of detector frames and stores the resulting scan.
// An unusable batch is still stored, as a failed scan.
func (s *Service) Ingest(ctx context.Context, frames []domain.ScanRequest) (IngestResult, error) {
	ev := domain.Evaluate(frames, s.CurrentThreshold(), s.now())

	id, err := s.Repo.Save(ctx, ev.Result)
	if err != nil {
		return IngestResult{}, fmt.Errorf("saving scan: %w", err)
	}

	fields := []zap.Field{
		zap.Int64("id", int64(id)),
		zap.String("product_id", ev.Result.ProductID()),
		zap.Int("frames", len(frames)),
	}
	if ev.Result.Succeeded() {
		ratio, _ := ev.Result.HealthRatio()
		s.log().Info("scan recorded", append(fields,
			zap.Float64("health_ratio", ratio),
			zap.Float64("score", ev.Score),
			zap.Bool("accepted", ev.Accepted))...)
	} else {
		msg, _ := ev.Result.ErrorMessage()
		s.log().Warn("scan failed", append(fields, zap.String("error_message", msg))...)
	}

	return IngestResult{ID: id, Scan: ev.Result, Score: ev.Score, Accepted: ev.Accepted}, nil
}

// Record stores a result exactly as given; absent fields stay absent.
func (s *Service) Record(ctx context.Context, r domain.Result) (domain.ID, error) {
	if issues := r.SoftCheck(); len(issues) > 0 {
		s.log().Debug("recording scan with soft issues",
			zap.String("product_id", r.ProductID()), zap.Strings("issues", issues))
	}
	id, err := s.Repo.Save(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("saving scan: %w", err)
	}
	return id, nil
}

// Get fetches a single stored scan.
func (s *Service) Get(ctx context.Context, id domain.ID) (domain.Result, error) {
	return s.Repo.Get(ctx, id)
}

// List returns the newest scans matching f.
func (s *Service) List(ctx context.Context, f domain.Filter) ([]domain.Result, error) {
	return s.Repo.List(ctx, f)
}

// Paginate returns one page of scans matching f.
func (s *Service) Paginate(ctx context.Context, f domain.Filter, page, pageSize int) (domain.Page, error) {
	page, pageSize = domain.NormalizePage(page, pageSize)
	return s.Repo.Paginate(ctx, f, page, pageSize)
}

// Statistics summarizes every scan matching f; the limit is ignored.
func (s *Service) Statistics(ctx context.Context, f domain.Filter) (domain.Statistics, error) {
	f.Limit = domain.MaxLimit
	var all []domain.Result
	for page := 1; ; page++ {
		p, err := s.Repo.Paginate(ctx, f, page, domain.MaxLimit)
		if err != nil {
			return domain.Statistics{}, fmt.Errorf("loading scans: %w", err)
		}
		all = append(all, p.Data...)
		if page >= p.TotalPages {
			break
		}
	}
	return domain.Compute(all), nil
}

// ArchiveResult describes an exported batch.
type ArchiveResult struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// Archive exports the scans matching f to the archive store as a JSON array.
func (s *Service) Archive(ctx context.Context, f domain.Filter) (ArchiveResult, error) {
	if s.Archiver == nil {
		return ArchiveResult{}, domain.ErrArchiveDisabled
	}
	list, err := s.Repo.List(ctx, f)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("loading scans: %w", err)
	}
	if list == nil {
		list = []domain.Result{}
	}
	body, err := json.Marshal(list)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("encoding archive: %w", err)
	}

	now := s.now().Time()
	key := fmt.Sprintf("archives/%04d/%02d/%02d/%s.json", now.Year(), now.Month(), now.Day(), uuid.New().String())
	url, err := s.Archiver.PutJSON(ctx, key, body)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("uploading archive: %w", err)
	}

	s.log().Info("scans archived", zap.String("key", key), zap.Int("count", len(list)))
	return ArchiveResult{Key: key, URL: url, Count: len(list)}, nil
}
