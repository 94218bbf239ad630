package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/budgetbook-dev/budgetbook/internal/domain/account"
	accounthandler "github.com/budgetbook-dev/budgetbook/internal/domain/account/handler"
	"github.com/budgetbook-dev/budgetbook/internal/domain/category"
	categoryhandler "github.com/budgetbook-dev/budgetbook/internal/domain/category/handler"
	ingesthandler "github.com/budgetbook-dev/budgetbook/internal/domain/ingest/handler"
	ingestrepo "github.com/budgetbook-dev/budgetbook/internal/domain/ingest/repository"
	ingestservice "github.com/budgetbook-dev/budgetbook/internal/domain/ingest/service"
	"github.com/budgetbook-dev/budgetbook/internal/domain/plan"
	planhandler "github.com/budgetbook-dev/budgetbook/internal/domain/plan/handler"
	"github.com/budgetbook-dev/budgetbook/internal/domain/summary"
	summaryhandler "github.com/budgetbook-dev/budgetbook/internal/domain/summary/handler"
	"github.com/budgetbook-dev/budgetbook/pkg/config"
	"github.com/budgetbook-dev/budgetbook/pkg/db"
	"github.com/budgetbook-dev/budgetbook/pkg/metrics"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	DB       *db.DB
	Logger   *slog.Logger
	Registry *prometheus.Registry

	// Repositories
	AccountRepo  account.Repository
	CategoryRepo category.Repository
	ImportRepo   ingestrepo.ImportRepository
	PlanRepo     plan.Repository
	SummaryRepo  summary.Repository

	// Services
	CategoryResolver *category.Resolver
	ImportService    *ingestservice.ImportService
	PlanService      *plan.Service
	SummaryService   *summary.Service
	Metrics          *metrics.Metrics

	// Handlers
	AccountHandler  *accounthandler.AccountHandler
	CategoryHandler *categoryhandler.CategoryHandler
	ImportHandler   *ingesthandler.ImportHandler
	PlanHandler     *planhandler.PlanHandler
	SummaryHandler  *summaryhandler.SummaryHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()
	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.AccountRepo = account.NewPostgresRepository(d.DB.Pool)
	d.CategoryRepo = category.NewPostgresRepository(d.DB.Pool)
	d.ImportRepo = ingestrepo.NewPostgresImportRepository(d.DB.Pool)
	d.PlanRepo = plan.NewPostgresRepository(d.DB.Pool)
	d.SummaryRepo = summary.NewPostgresRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() {
	d.Metrics = metrics.New(d.Registry)

	d.CategoryResolver = category.NewResolver(d.CategoryRepo)

	d.ImportService = ingestservice.NewImportService(d.ImportRepo, d.CategoryResolver, d.Logger).
		WithMetrics(d.Metrics)

	d.PlanService = plan.NewService(d.PlanRepo, d.CategoryRepo, d.Logger)

	d.SummaryService = summary.NewService(d.SummaryRepo, d.Config.Import.DisplayCurrency, d.Logger)

	d.Logger.Info("services initialized")
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.AccountHandler = accounthandler.NewAccountHandler(d.AccountRepo, d.Logger)
	d.CategoryHandler = categoryhandler.NewCategoryHandler(d.CategoryRepo, d.Logger)
	d.ImportHandler = ingesthandler.NewImportHandler(d.ImportService, d.Config.Import.MaxUploadBytes, d.Logger)
	d.PlanHandler = planhandler.NewPlanHandler(d.PlanService, d.Logger)
	d.SummaryHandler = summaryhandler.NewSummaryHandler(d.SummaryService, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
