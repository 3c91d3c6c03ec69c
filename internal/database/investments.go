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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// firstProfitDelay is how old a never-credited investment must be to become due.
const firstProfitDelay = 24 * time.Hour

func scanInvestment(row rowScanner) (*models.Investment, error) {
	var (
		inv                       models.Investment
		investAmount, totalProfit int64
		status                    string
		createdAt, updatedAt      string
		lastProfit, nextProfit    sql.NullString
	)
	if err := row.Scan(&inv.Id, &inv.UserId, &inv.SchemaId, &investAmount, &totalProfit, &status,
		&createdAt, &lastProfit, &nextProfit, &updatedAt); err != nil {
		return nil, err
	}

	inv.InvestAmount = fromUnits(investAmount)
	inv.TotalProfitAmount = fromUnits(totalProfit)
	inv.Status = models.InvestmentStatus(status)

	var err error
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if inv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if inv.LastProfitTime, err = parseNullTime(lastProfit); err != nil {
		return nil, err
	}
	if inv.NextProfitTime, err = parseNullTime(nextProfit); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Service) queryInvestments(ctx context.Context, query string, args ...any) ([]models.Investment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query investments: %w", err)
	}
	defer closeRows(rows)

	var investments []models.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan investment row: %w", err)
		}
		investments = append(investments, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investment rows: %w", err)
	}
	return investments, nil
}

// FindDueForDistribution lists active investments whose next profit time has
// passed, plus never-credited ones at least a day old, oldest first.
func (s *Service) FindDueForDistribution(ctx context.Context, now time.Time) ([]models.Investment, error) {
	investments, err := s.queryInvestments(ctx, queryFindDueInvestments,
		formatTime(now), formatTime(now.Add(-firstProfitDelay)))
	if err != nil {
		zap.L().Error("Failed to query due investments", zap.Error(err))
		return nil, err
	}

	zap.L().Info("Retrieved due investments", zap.Int("count", len(investments)))
	return investments, nil
}

// LockDueInvestment re-reads the investment inside the caller's transaction and
// returns store.ErrInvestmentNotDue if another run already advanced or completed it.
func (e executor) LockDueInvestment(ctx context.Context, investmentId string, now time.Time) (*models.Investment, error) {
	inv, err := scanInvestment(e.q.QueryRowContext(ctx, queryLockDueInvestment,
		investmentId, formatTime(now), formatTime(now.Add(-firstProfitDelay))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("investment %s: %w", investmentId, store.ErrInvestmentNotDue)
		}
		return nil, fmt.Errorf("unable to lock investment %s: %w", investmentId, err)
	}
	return inv, nil
}

func (e executor) AdvanceProfit(ctx context.Context, investmentId string, lastProfitTime, nextProfitTime time.Time, increment decimal.Decimal) error {
	if increment.IsNegative() {
		return fmt.Errorf("profit increment %s: %w", increment.String(), store.ErrInvalidAmount)
	}

	result, err := e.q.ExecContext(ctx, queryAdvanceProfit,
		toUnits(increment), formatTime(lastProfitTime), formatTime(nextProfitTime),
		formatTime(lastProfitTime), investmentId)
	if err != nil {
		return fmt.Errorf("failed to advance investment %s: %w", investmentId, err)
	}
	return requireOneRow(result, fmt.Errorf("investment %s: %w", investmentId, store.ErrInvestmentNotFound))
}

// MarkCompleted moves the investment to its terminal state and books the final
// profit. It affects at most one active row, so completion happens once.
func (e executor) MarkCompleted(ctx context.Context, investmentId string, lastProfitTime time.Time, finalProfit decimal.Decimal) error {
	if finalProfit.IsNegative() {
		return fmt.Errorf("final profit %s: %w", finalProfit.String(), store.ErrInvalidAmount)
	}

	result, err := e.q.ExecContext(ctx, queryMarkCompleted,
		toUnits(finalProfit), formatTime(lastProfitTime), formatTime(lastProfitTime), investmentId)
	if err != nil {
		return fmt.Errorf("failed to complete investment %s: %w", investmentId, err)
	}
	return requireOneRow(result, fmt.Errorf("investment %s: %w", investmentId, store.ErrInvestmentNotFound))
}

func requireOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

// CreateInvestment opens a position against an active plan after checking the
// amount against the plan limits.
func (s *Service) CreateInvestment(ctx context.Context, params store.CreateInvestmentParams) (*models.Investment, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("investment amount %s: %w", params.Amount.String(), store.ErrInvalidAmount)
	}
	if !params.Amount.Equal(params.Amount.Round(models.PrincipalScale)) {
		return nil, fmt.Errorf("investment amount %s has more than %d decimals: %w",
			params.Amount.String(), models.PrincipalScale, store.ErrInvalidAmount)
	}

	schema, err := s.GetSchemaById(ctx, params.SchemaId)
	if err != nil {
		return nil, err
	}
	if !schema.Active {
		return nil, fmt.Errorf("investment schema %s is not active", schema.Id)
	}
	if params.Amount.LessThan(schema.MinAmount) || params.Amount.GreaterThan(schema.MaxAmount) {
		return nil, fmt.Errorf("%w: %s not within [%s, %s] for %s", store.ErrAmountOutOfRange,
			params.Amount.String(), schema.MinAmount.String(), schema.MaxAmount.String(), schema.Name)
	}

	if _, err := s.GetUserById(ctx, params.UserId); err != nil {
		return nil, err
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	investmentId := uuid.New().String()
	_, err = s.db.ExecContext(ctx, queryInsertInvestment,
		investmentId, params.UserId, schema.Id, toUnits(params.Amount),
		formatTime(createdAt), formatTime(createdAt))
	if err != nil {
		zap.L().Error("Failed to insert investment", zap.String("user_id", params.UserId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert investment: %w", err)
	}

	zap.L().Info("Investment created",
		zap.String("investment_id", investmentId),
		zap.String("user_id", params.UserId),
		zap.String("schema", schema.Name),
		zap.String("amount", params.Amount.String()))

	return s.GetInvestment(ctx, investmentId)
}

func (s *Service) GetInvestment(ctx context.Context, investmentId string) (*models.Investment, error) {
	inv, err := scanInvestment(s.db.QueryRowContext(ctx, queryGetInvestment, investmentId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("investment %s: %w", investmentId, store.ErrInvestmentNotFound)
		}
		return nil, fmt.Errorf("unable to query investment: %w", err)
	}
	return inv, nil
}

func (s *Service) GetUserInvestments(ctx context.Context, userId string) ([]models.Investment, error) {
	return s.queryInvestments(ctx, queryGetUserInvestments, userId)
}

func (s *Service) GetCompletedInvestments(ctx context.Context) ([]models.Investment, error) {
	return s.queryInvestments(ctx, queryGetCompletedInvestments)
}

// ReconcileInvestment checks that total_profit_amount equals the sum of the
// profit transactions recorded for the investment.
func (s *Service) ReconcileInvestment(ctx context.Context, investmentId string) error {
	inv, err := s.GetInvestment(ctx, investmentId)
	if err != nil {
		return err
	}

	var profitUnits int64
	if err := s.db.QueryRowContext(ctx, querySumProfitForInvestment, investmentId).Scan(&profitUnits); err != nil {
		return fmt.Errorf("unable to sum profit transactions: %w", err)
	}
	recorded := fromUnits(profitUnits)

	if !recorded.Equal(inv.TotalProfitAmount) {
		zap.L().Warn("Investment profit mismatch",
			zap.String("investment_id", investmentId),
			zap.String("total_profit_amount", inv.TotalProfitAmount.String()),
			zap.String("transactions_sum", recorded.String()))
		return fmt.Errorf("%w: investment %s has total %s, transactions sum %s",
			store.ErrReconciliationMismatch, investmentId, inv.TotalProfitAmount.String(), recorded.String())
	}

	zap.L().Debug("Investment reconciled",
		zap.String("investment_id", investmentId),
		zap.String("total_profit_amount", inv.TotalProfitAmount.String()))
	return nil
}
