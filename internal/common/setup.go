package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"profit-distribution-go/internal/database"
	"profit-distribution-go/internal/formance"
	"profit-distribution-go/internal/models"
	"profit-distribution-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		// Only log if the file exists but couldn't be read
		// (godotenv returns an error if .env doesn't exist)
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Mirror    *formance.Service
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database and, when LEDGER_MIRROR=formance, the
// Formance mirror.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	services := &Services{DbService: dbService}

	if cfg.Mirror.Backend == "formance" {
		zap.L().Info("Initializing Formance ledger mirror")
		mirror, err := formance.NewService(ctx, cfg.Mirror.Formance)
		if err != nil {
			dbService.Close()
			return nil, fmt.Errorf("unable to initialize ledger mirror: %w", err)
		}
		services.Mirror = mirror
	} else {
		zap.L().Info("Ledger mirror disabled (LEDGER_MIRROR=none)")
	}

	return services, nil
}

// InitializeDatabaseOnly initializes just the database service without the ledger mirror
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// EventMirror returns the configured mirror, or nil when mirroring is off.
func (cs *Services) EventMirror() store.EventMirror {
	if cs.Mirror == nil {
		return nil
	}
	return cs.Mirror
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
