// Package app wires configuration, storage and services into the shared core
// used by cmd/partsdesk-server and cmd/partsdesk.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/services/claims"
	"github.com/bobmcallan/partsdesk/internal/services/expenses"
	"github.com/bobmcallan/partsdesk/internal/services/inventory"
	"github.com/bobmcallan/partsdesk/internal/services/parties"
	"github.com/bobmcallan/partsdesk/internal/services/purchases"
	"github.com/bobmcallan/partsdesk/internal/services/repairs"
	"github.com/bobmcallan/partsdesk/internal/services/report"
	"github.com/bobmcallan/partsdesk/internal/services/sales"
	"github.com/bobmcallan/partsdesk/internal/services/users"
	"github.com/bobmcallan/partsdesk/internal/storage"
)

// App holds all initialized services and storage.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	InventoryService interfaces.InventoryService
	PartyService     interfaces.PartyService
	SaleService      interfaces.SaleService
	PurchaseService  interfaces.PurchaseService
	ClaimService     interfaces.ClaimService
	RepairService    interfaces.RepairService
	ExpenseService   interfaces.ExpenseService
	ReportService    interfaces.ReportService
	UserService      interfaces.UserService
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: explicit path, PARTSDESK_CONFIG,
// partsdesk.toml next to the binary, then config/partsdesk.toml.
func ResolveConfigPath(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("PARTSDESK_CONFIG"); env != "" {
		return env
	}
	path := filepath.Join(getBinaryDir(), "partsdesk.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return "config/partsdesk.toml" // fallback for development
}

// NewApp loads configuration and initializes storage and services.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Relative data and log paths live next to the binary
	binDir := getBinaryDir()
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	if missing := config.ValidateRequired(); len(missing) > 0 && config.IsProduction() {
		return nil, fmt.Errorf("production config is missing required settings: %v", missing)
	}

	return New(config, logger)
}

// New initializes storage and services from an already loaded config.
func New(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	checkSchemaVersion(context.Background(), storageManager, logger)

	inventoryService := inventory.NewService(storageManager, config, logger)
	partyService := parties.NewService(storageManager, logger)
	saleService := sales.NewService(storageManager, config, logger)
	purchaseService := purchases.NewService(storageManager, logger)
	claimService := claims.NewService(storageManager, saleService, config, logger)
	repairService := repairs.NewService(storageManager, config, logger)
	expenseService := expenses.NewService(storageManager, logger)
	reportService := report.NewService(
		inventoryService,
		partyService,
		saleService,
		purchaseService,
		claimService,
		repairService,
		expenseService,
		logger,
	)
	userService := users.NewService(storageManager, logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		InventoryService: inventoryService,
		PartyService:     partyService,
		SaleService:      saleService,
		PurchaseService:  purchaseService,
		ClaimService:     claimService,
		RepairService:    repairService,
		ExpenseService:   expenseService,
		ReportService:    reportService,
		UserService:      userService,
		StartupTime:      startupStart,
	}

	logger.Info().
		Str("backend", storageManager.Backend()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")
	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}
