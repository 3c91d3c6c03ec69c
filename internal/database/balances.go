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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"profit-distribution-go/internal/models"
	"profit-distribution-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (e executor) GetLockedBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	var units int64
	if err := e.q.QueryRowContext(ctx, queryGetLockedBalance, userId).Scan(&units); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("user %s: %w", userId, store.ErrUserNotFound)
		}
		return decimal.Zero, fmt.Errorf("unable to read locked balance: %w", err)
	}
	return fromUnits(units), nil
}

// ApplyProfit credits one day's profit. Locked mode accrues it in
// locked_balance, immediate mode in balance; total_earned grows either way.
func (e executor) ApplyProfit(ctx context.Context, userId string, amount decimal.Decimal, mode models.DistributionMode) error {
	if amount.IsNegative() {
		return fmt.Errorf("profit %s: %w", amount.String(), store.ErrInvalidAmount)
	}

	var query string
	switch mode {
	case models.ModeLocked:
		query = queryApplyProfitLocked
	case models.ModeImmediate:
		query = queryApplyProfitImmediate
	default:
		return fmt.Errorf("unknown distribution mode %q", mode)
	}

	units := toUnits(amount)
	result, err := e.q.ExecContext(ctx, query, units, units, formatTime(time.Now()), userId)
	if err != nil {
		return fmt.Errorf("failed to apply profit to user %s: %w", userId, err)
	}
	if err := requireOneRow(result, fmt.Errorf("user %s: %w", userId, store.ErrUserNotFound)); err != nil {
		return err
	}

	zap.L().Debug("Profit applied",
		zap.String("user_id", userId),
		zap.String("mode", string(mode)),
		zap.String("amount", amount.String()))
	return nil
}

// ApplyMaturity pays out principal plus final profit. In locked mode the
// accrued locked_balance is released into balance in the same statement.
func (e executor) ApplyMaturity(ctx context.Context, userId string, finalProfit, principal decimal.Decimal, mode models.DistributionMode) error {
	if finalProfit.IsNegative() || principal.IsNegative() {
		return fmt.Errorf("maturity payout %s + %s: %w", finalProfit.String(), principal.String(), store.ErrInvalidAmount)
	}

	var query string
	switch mode {
	case models.ModeLocked:
		query = queryApplyMaturityLocked
	case models.ModeImmediate:
		query = queryApplyMaturityImmediate
	default:
		return fmt.Errorf("unknown distribution mode %q", mode)
	}

	result, err := e.q.ExecContext(ctx, query,
		toUnits(finalProfit.Add(principal)), toUnits(finalProfit), formatTime(time.Now()), userId)
	if err != nil {
		return fmt.Errorf("failed to apply maturity to user %s: %w", userId, err)
	}
	if err := requireOneRow(result, fmt.Errorf("user %s: %w", userId, store.ErrUserNotFound)); err != nil {
		return err
	}

	zap.L().Debug("Maturity applied",
		zap.String("user_id", userId),
		zap.String("mode", string(mode)),
		zap.String("final_profit", finalProfit.String()),
		zap.String("principal", principal.String()))
	return nil
}
