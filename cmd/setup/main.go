package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"profit-distribution-go/internal/common"
	"profit-distribution-go/internal/config"
	"profit-distribution-go/internal/distribution"
	"profit-distribution-go/internal/models"
	"profit-distribution-go/internal/store"

	"go.uber.org/zap"
)

func seedSchemas(ctx context.Context, portfolio store.PortfolioStore, schemasFile string) (int, error) {
	zap.L().Info("Loading investment schemas", zap.String("file", schemasFile))
	schemas, err := common.LoadSchemaConfig(schemasFile)
	if err != nil {
		return 0, err
	}

	for _, schema := range schemas {
		if err := portfolio.UpsertSchema(ctx, schema); err != nil {
			return 0, fmt.Errorf("unable to store schema %s: %w", schema.Id, err)
		}
	}
	return len(schemas), nil
}

func applyMode(ctx context.Context, portfolio store.PortfolioStore, mode string) error {
	if mode == "" {
		return nil
	}
	value := "0"
	if distribution.ModeFromSetting(mode) == models.ModeLocked {
		value = "1"
	}
	zap.L().Info("Setting distribution mode", zap.String("mode", mode), zap.String("value", value))
	return portfolio.SetSetting(ctx, models.SettingProfitDistributionLocked, value)
}

func printSchemas(schemas []models.InvestmentSchema) {
	common.PrintHeader(os.Stdout, "INVESTMENT SCHEMAS", common.DefaultWidth)
	for i, schema := range schemas {
		status := "active"
		if !schema.Active {
			status = "inactive"
		}
		fmt.Printf("%s %-12s %-16s %6s%%/day x %3d days  %s - %s  (%s)\n",
			common.BoxPrefix(i == len(schemas)-1),
			schema.Id,
			schema.Name,
			schema.DailyRate.String(),
			schema.DurationDays,
			common.FormatUSD(schema.MinAmount),
			common.FormatUSD(schema.MaxAmount),
			status)
	}
	common.PrintSeparator(os.Stdout, "=", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	modeFlag := flag.String("mode", "", "Distribution mode to store: locked or immediate (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	count, err := seedSchemas(ctx, dbService, cfg.Distribution.SchemasFile)
	if err != nil {
		zap.L().Fatal("Failed to seed investment schemas", zap.Error(err))
	}
	zap.L().Info("Investment schemas seeded", zap.Int("count", count))

	if err := applyMode(ctx, dbService, *modeFlag); err != nil {
		zap.L().Fatal("Failed to store distribution mode", zap.Error(err))
	}

	schemas, err := dbService.ListSchemas(ctx)
	if err != nil {
		zap.L().Fatal("Failed to list schemas", zap.Error(err))
	}
	printSchemas(schemas)

	zap.L().Info("Initialization complete")
}
