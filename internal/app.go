// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"guildbank/internal/config"
	"guildbank/internal/repository"
	"guildbank/internal/repository/sqlite"
	"guildbank/internal/service"
	"guildbank/internal/util"
	"guildbank/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB

	// Storage access
	Queue     *db.Queue
	TxManager *db.TransactionManager

	// Repositories
	LedgerRepository repository.LedgerRepository
	StatsRepository  repository.StatsRepository

	// Services
	LedgerService service.LedgerService
	ReportService service.ReportService
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Open the database and migrate the schema
	database, err := db.NewSQLiteDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database opened.", "path", app.Config.DB.Path)

	// 4. Initialize the execution queue and transaction coordinator
	app.Queue = db.NewQueue(db.QueueConfig{
		MaxRetries:     app.Config.DB.MaxRetries,
		BaseRetryDelay: app.Config.DB.BaseRetryDelay,
		Buffer:         app.Config.QueueBuffer,
	}, app.Logger)
	app.TxManager = db.NewTransactionManager(app.DB, app.Queue, app.Logger)
	app.Logger.Info("Execution queue started.")

	// 5. Initialize Repositories
	app.LedgerRepository = sqlite.NewLedgerRepository()
	app.StatsRepository = sqlite.NewStatsRepository()
	app.Logger.Info("Repositories initialized.")

	// 6. Initialize Services
	app.LedgerService = service.NewLedgerService(
		app.DB, // This is the DBExecutor for queue-routed reads
		app.Queue,
		app.TxManager,
		app.LedgerRepository,
		app.StatsRepository,
		app.Logger,
	)
	app.ReportService = service.NewReportService(
		app.DB,
		app.Queue,
		app.LedgerRepository,
		app.LedgerService,
	)
	app.Logger.Info("Services initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources. The queue drains
// before the database closes so no accepted operation is dropped.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.Queue != nil {
		app.Queue.Close()
		app.Logger.Info("Execution queue drained.")
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database", "error", err)
			return fmt.Errorf("failed to close database: %w", err)
		}
		app.Logger.Info("Database closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
