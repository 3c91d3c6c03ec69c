package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"profit-distribution-go/internal/common"
	"profit-distribution-go/internal/config"
	"profit-distribution-go/internal/distribution"
	"profit-distribution-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id or email (required)")
	schemaFlag := flag.String("schema", "", "Investment schema id (required)")
	amountFlag := flag.String("amount", "", "Amount to invest in USD (required)")
	backdateFlag := flag.Duration("backdate", 0, "Open the investment this long in the past (testing aid)")
	flag.Parse()

	if *userFlag == "" || *schemaFlag == "" || *amountFlag == "" {
		zap.L().Fatal("Flags --user, --schema and --amount are required")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.String("amount", *amountFlag), zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	user, err := common.ResolveUser(ctx, dbService, *userFlag)
	if err != nil {
		zap.L().Fatal("Unknown user", zap.String("user", *userFlag), zap.Error(err))
	}

	investment, err := dbService.CreateInvestment(ctx, store.CreateInvestmentParams{
		UserId:    user.Id,
		SchemaId:  *schemaFlag,
		Amount:    amount,
		CreatedAt: time.Now().Add(-*backdateFlag),
	})
	switch {
	case errors.Is(err, store.ErrAmountOutOfRange), errors.Is(err, store.ErrInvalidAmount):
		zap.L().Fatal("Amount rejected by schema limits", zap.String("amount", amount.String()), zap.Error(err))
	case errors.Is(err, store.ErrSchemaNotFound):
		zap.L().Fatal("Unknown schema", zap.String("schema_id", *schemaFlag), zap.Error(err))
	case err != nil:
		zap.L().Fatal("Failed to open investment", zap.Error(err))
	}

	schema, err := dbService.GetSchemaById(ctx, investment.SchemaId)
	if err != nil {
		zap.L().Fatal("Failed to read schema", zap.Error(err))
	}

	common.PrintHeader(os.Stdout, "INVESTMENT OPENED", common.DefaultWidth)
	fmt.Printf("ID:              %s\n", investment.Id)
	fmt.Printf("User:            %s (%s)\n", user.Name, user.Email)
	fmt.Printf("Schema:          %s, %s%%/day for %d days\n", schema.Name, schema.DailyRate.String(), schema.DurationDays)
	fmt.Printf("Amount:          %s\n", common.FormatUSD(investment.InvestAmount))
	fmt.Printf("Expected profit: %s\n", common.FormatUSD(distribution.ExpectedTotalReturn(*schema, investment.InvestAmount)))
	fmt.Printf("Opened at:       %s\n", investment.CreatedAt.Format(time.RFC3339))
	common.PrintSeparator(os.Stdout, "=", common.DefaultWidth)
	fmt.Println()
}
