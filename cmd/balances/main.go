/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"profit-distribution-go/internal/api"
	"profit-distribution-go/internal/common"
	"profit-distribution-go/internal/config"
	"profit-distribution-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers       int
	usersWithActive  int
	totalBalance     decimal.Decimal
	totalLocked      decimal.Decimal
	totalEarned      decimal.Decimal
	activeInvestment int
}

func printUserHeader(user models.User, balance *models.UserBalance) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Balance: %s   Locked: %s   Earned: %s\n",
		common.FormatUSD(balance.Balance),
		common.FormatUSD(balance.LockedBalance),
		common.FormatUSD(balance.TotalEarned))
	common.PrintBoxSeparator(os.Stdout, 78)
}

func printInvestment(inv models.InvestmentRecord, isLast bool) {
	next := "-"
	if inv.NextProfitTime != nil {
		next = inv.NextProfitTime.Format("2006-01-02 15:04")
	}
	fmt.Printf("%s %-14s %-9s %12s  profit %10s / %-10s next: %s\n",
		common.BoxPrefix(isLast),
		inv.SchemaName,
		inv.Status,
		common.FormatUSD(inv.InvestAmount),
		common.FormatUSD(inv.TotalProfitAmount),
		common.FormatUSD(inv.ExpectedTotalProfit),
		next)
}

func processUser(ctx context.Context, reports *api.ReportService, user models.User, stats *balanceStats) error {
	balance, err := reports.GetUserBalance(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	investments, err := reports.GetUserInvestments(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to get investments: %w", err)
	}

	stats.totalBalance = stats.totalBalance.Add(balance.Balance)
	stats.totalLocked = stats.totalLocked.Add(balance.LockedBalance)
	stats.totalEarned = stats.totalEarned.Add(balance.TotalEarned)

	printUserHeader(user, balance)
	if len(investments) == 0 {
		fmt.Printf("%s no investments\n", common.BoxPrefix(true))
		return nil
	}

	hasActive := false
	for i, inv := range investments {
		if inv.Status == string(models.InvestmentActive) {
			hasActive = true
			stats.activeInvestment++
		}
		printInvestment(inv, i == len(investments)-1)
	}
	if hasActive {
		stats.usersWithActive++
	}
	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	reports := api.NewReportService(dbService)
	if err := reports.HealthCheck(ctx); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	users, err := common.InitializeUsers(ctx, dbService, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader(os.Stdout, "USER BALANCE REPORT", common.DefaultWidth)

	stats := balanceStats{}
	for _, user := range users {
		stats.totalUsers++
		if err := processUser(ctx, reports, user, &stats); err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d users, %d with active investments (%d active) | balance %s, locked %s, earned %s",
		stats.totalUsers, stats.usersWithActive, stats.activeInvestment,
		common.FormatUSD(stats.totalBalance), common.FormatUSD(stats.totalLocked), common.FormatUSD(stats.totalEarned))
	common.PrintFooter(os.Stdout, summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_active_investments", stats.usersWithActive))
}
