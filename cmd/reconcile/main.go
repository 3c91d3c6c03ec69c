package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"profit-distribution-go/internal/common"
	"profit-distribution-go/internal/config"
	"profit-distribution-go/internal/formance"
	"profit-distribution-go/internal/models"
	"profit-distribution-go/internal/store"

	"go.uber.org/zap"
)

type reconcileStats struct {
	checked    int
	mismatched []string
	failed     int
}

func reconcileInvestments(ctx context.Context, portfolio store.PortfolioStore, investments []models.Investment) reconcileStats {
	stats := reconcileStats{}
	for _, inv := range investments {
		stats.checked++
		err := portfolio.ReconcileInvestment(ctx, inv.Id)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrReconciliationMismatch):
			stats.mismatched = append(stats.mismatched, inv.Id)
			fmt.Printf("✗ %s: %v\n", inv.Id, err)
		default:
			stats.failed++
			zap.L().Error("Failed to reconcile investment", zap.String("investment_id", inv.Id), zap.Error(err))
		}
	}
	return stats
}

// compareMirror checks the local balance fields against the mirrored ledger accounts.
func compareMirror(ctx context.Context, portfolio store.PortfolioStore, mirror *formance.Service) (int, error) {
	users, err := portfolio.GetUsers(ctx)
	if err != nil {
		return 0, err
	}

	drift := 0
	for _, user := range users {
		mirrored, err := mirror.GetUserBalance(ctx, user.Id)
		if err != nil {
			return drift, err
		}
		if mirrored.Available.Equal(user.Balance) && mirrored.Locked.Equal(user.LockedBalance) {
			continue
		}
		drift++
		fmt.Printf("✗ %s (%s): local %s/%s locked, mirror %s/%s locked\n",
			user.Name, user.Email,
			user.Balance.String(), user.LockedBalance.String(),
			mirrored.Available.String(), mirrored.Locked.String())
		zap.L().Warn("Mirrored balance drift",
			zap.String("user_id", user.Id),
			zap.String("balance", user.Balance.String()),
			zap.String("locked_balance", user.LockedBalance.String()),
			zap.String("mirror_available", mirrored.Available.String()),
			zap.String("mirror_locked", mirrored.Locked.String()))
	}
	return drift, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	mirrorFlag := flag.Bool("mirror", false, "Also compare user balances with the Formance mirror")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}
	if !*mirrorFlag {
		cfg.Mirror.Backend = "none"
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	completed, err := services.DbService.GetCompletedInvestments(ctx)
	if err != nil {
		zap.L().Fatal("Failed to load completed investments", zap.Error(err))
	}

	common.PrintHeader(os.Stdout, "PROFIT RECONCILIATION", common.DefaultWidth)
	stats := reconcileInvestments(ctx, services.DbService, completed)

	drift := 0
	if services.Mirror != nil {
		drift, err = compareMirror(ctx, services.DbService, services.Mirror)
		if err != nil {
			zap.L().Error("Failed to compare mirrored balances", zap.Error(err))
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d completed investments checked, %d mismatched, %d failed",
		stats.checked, len(stats.mismatched), stats.failed)
	if services.Mirror != nil {
		summary += fmt.Sprintf(", %d users drifted from mirror", drift)
	}
	common.PrintFooter(os.Stdout, summary, common.DefaultWidth)

	zap.L().Info("Reconciliation completed",
		zap.Int("checked", stats.checked),
		zap.Int("mismatched", len(stats.mismatched)),
		zap.Int("failed", stats.failed),
		zap.Int("mirror_drift", drift))

	if len(stats.mismatched) > 0 || stats.failed > 0 || drift > 0 {
		loggerCleanup()
		os.Exit(1)
	}
}
