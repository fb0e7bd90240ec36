package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gtu-cse396/sdbelt/internal/application"
	appdiag "github.com/gtu-cse396/sdbelt/internal/application/diagnosis"
	appscans "github.com/gtu-cse396/sdbelt/internal/application/scans"
	appsystem "github.com/gtu-cse396/sdbelt/internal/application/system"
	"github.com/gtu-cse396/sdbelt/internal/config"
	"github.com/gtu-cse396/sdbelt/internal/domain/diagnosis"
	"github.com/gtu-cse396/sdbelt/internal/domain/scans"
	"github.com/gtu-cse396/sdbelt/internal/domain/system"
	"github.com/gtu-cse396/sdbelt/internal/infra/ai/openai"
	"github.com/gtu-cse396/sdbelt/internal/infra/ai/prompt"
	mysqlp "github.com/gtu-cse396/sdbelt/internal/infra/db/mysql"
	postgresp "github.com/gtu-cse396/sdbelt/internal/infra/db/postgres"
	sqlitep "github.com/gtu-cse396/sdbelt/internal/infra/db/sqlite"
	"github.com/gtu-cse396/sdbelt/internal/infra/storage"
	"github.com/gtu-cse396/sdbelt/internal/middleware"
)

// Container holds the wired services for one process.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sql.DB
	ScanRepo  scans.Repository
	DiagRepo  diagnosis.Repository
	SysRepo   system.Repository
	Archive   *storage.Store // nil when minio is not configured
	Scans     *appscans.Service
	Diagnoses *appdiag.Service
	System    *appsystem.Service
	Checkers  map[string]middleware.HealthChecker
}

// BuildContainer opens the database, connects optional backends and wires the services.
func BuildContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{Config: cfg, Logger: logger, Checkers: map[string]middleware.HealthChecker{}}

	db, repos, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	scanRepo, diagRepo := repos.scans, repos.diag
	c.DB, c.ScanRepo, c.DiagRepo, c.SysRepo = db, scanRepo, diagRepo, repos.system
	c.Checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	logger.Info("database connected", zap.String("driver", cfg.Database.Driver))

	svc := &appscans.Service{
		Repo:      scanRepo,
		Clock:     application.SystemClock{},
		Location:  cfg.Location(),
		Threshold: cfg.AcceptanceThreshold(),
		Logger:    logger.Named("scans"),
	}

	if cfg.ArchiveEnabled() {
		store, err := storage.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
			cfg.Minio.PresignTTL,
		)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
		c.Archive = store
		svc.Archiver = store
		c.Checkers["minio"] = store
		logger.Info("archive enabled", zap.String("bucket", cfg.Minio.BucketName))
	}
	c.Scans = svc

	var client diagnosis.Client = prompt.HeuristicClient{}
	if cfg.AI.APIKey != "" {
		client = openai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
		logger.Info("openai diagnosis enabled", zap.String("model", cfg.AI.Model))
	}
	c.Diagnoses = appdiag.NewService(client, diagRepo, scanRepo, application.SystemClock{}, logger.Named("diagnosis"))
	c.System = appsystem.NewService(repos.system, application.SystemClock{}, cfg.System.StaleAfter, logger.Named("system"))

	return c, nil
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// Migrate creates the tables of every repository.
func (c *Container) Migrate(ctx context.Context) error {
	for _, m := range []migrator{c.ScanRepo, c.DiagRepo, c.SysRepo} {
		if err := m.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (c *Container) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

type repositories struct {
	scans  scans.Repository
	diag   diagnosis.Repository
	system system.Repository
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, repositories{}, fmt.Errorf("mysql connect: %w", err)
		}
		return db, repositories{
			scans:  mysqlp.NewScanRepository(db),
			diag:   mysqlp.NewDiagnosisRepository(db),
			system: mysqlp.NewSystemRepository(db),
		}, nil
	case config.DriverPostgres:
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, repositories{}, fmt.Errorf("postgres connect: %w", err)
		}
		return db, repositories{
			scans:  postgresp.NewScanRepository(db),
			diag:   postgresp.NewDiagnosisRepository(db),
			system: postgresp.NewSystemRepository(db),
		}, nil
	case config.DriverSQLite:
		db, err := sqlitep.Connect(ctx, cfg.Database.Path)
		if err != nil {
			return nil, repositories{}, fmt.Errorf("sqlite connect: %w", err)
		}
		return db, repositories{
			scans:  sqlitep.NewScanRepository(db),
			diag:   sqlitep.NewDiagnosisRepository(db),
			system: sqlitep.NewSystemRepository(db),
		}, nil
	}
	return nil, repositories{}, errors.New("unsupported database driver " + cfg.Database.Driver)
}
