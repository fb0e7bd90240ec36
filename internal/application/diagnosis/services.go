package diagnosis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gtu-cse396/sdbelt/internal/application"
	domain "github.com/gtu-cse396/sdbelt/internal/domain/diagnosis"
	"github.com/gtu-cse396/sdbelt/internal/domain/scans"
)

// Service explains recent scan failures with an AI client and keeps the answers.
type Service struct {
	client domain.Client
	repo   domain.Repository
	scans  scans.Repository
	clock  application.Clock
	logger *zap.Logger
}

// NewService wires the service. client may be nil, which disables DiagnoseRecent.
func NewService(client domain.Client, repo domain.Repository, scanRepo scans.Repository, clock application.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, repo: repo, scans: scanRepo, clock: clock, logger: logger}
}

// DiagnoseRecent sends the error messages of failed scans matching f to the model.
func (s *Service) DiagnoseRecent(ctx context.Context, f scans.Filter) (*domain.Diagnosis, error) {
	if s.client == nil {
		return nil, domain.ErrDisabled
	}
	list, err := s.scans.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("loading scans: %w", err)
	}

	var failures []string
	for _, r := range list {
		if r.Succeeded() {
			continue
		}
		msg, ok := r.ErrorMessage()
		if !ok || msg == "" {
			msg = "unknown error"
		}
		failures = append(failures, fmt.Sprintf("[%s] %s: %s", timestampOf(r), r.ProductID(), msg))
	}
	if len(failures) == 0 {
		return nil, domain.ErrNothingToDiagnose
	}

	out, err := s.client.Diagnose(ctx, f.ProductID, failures)
	if err != nil {
		return nil, err
	}

	d := &domain.Diagnosis{
		ID:        domain.DiagnosisID(uuid.New().String()),
		ProductID: f.ProductID,
		Failures:  len(failures),
		Result:    out,
		CreatedAt: s.clock.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("saving diagnosis: %w", err)
	}
	s.logger.Info("diagnosis stored", zap.String("id", string(d.ID)), zap.Int("failures", d.Failures))
	return d, nil
}

// List returns stored diagnoses, newest first.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]*domain.Diagnosis, error) {
	page, pageSize = scans.NormalizePage(page, pageSize)
	list, err := s.repo.Paginate(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Diagnosis{}
	}
	return list, nil
}

func timestampOf(r scans.Result) string {
	if ts, ok := r.Timestamp(); ok {
		return ts.String()
	}
	return "-"
}
