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

package api

import (
	"context"
	"errors"
	"fmt"

	"profit-distribution-go/internal/distribution"
	"profit-distribution-go/internal/models"
	"profit-distribution-go/internal/store"

	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// GetUserBalance returns the three ledger-owned balance fields for a user
func (s *ReportService) GetUserBalance(ctx context.Context, userId string) (*models.UserBalance, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	user, err := s.store.GetUserById(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, err
		}
		zap.L().Error("Failed to get user balance", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balance")
	}

	return &models.UserBalance{
		UserId:        user.Id,
		Balance:       user.Balance,
		LockedBalance: user.LockedBalance,
		TotalEarned:   user.TotalEarned,
	}, nil
}

// GetUserInvestments lists a user's investments with the profit each is expected to pay in total
func (s *ReportService) GetUserInvestments(ctx context.Context, userId string) ([]models.InvestmentRecord, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	investments, err := s.store.GetUserInvestments(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get user investments", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve investments")
	}

	schemas := make(map[string]*models.InvestmentSchema)
	result := make([]models.InvestmentRecord, len(investments))
	for i, inv := range investments {
		record := models.InvestmentRecord{
			Id:                inv.Id,
			SchemaName:        inv.SchemaId,
			InvestAmount:      inv.InvestAmount,
			TotalProfitAmount: inv.TotalProfitAmount,
			Status:            string(inv.Status),
			NextProfitTime:    inv.NextProfitTime,
		}

		schema, ok := schemas[inv.SchemaId]
		if !ok {
			schema, err = s.store.GetSchemaById(ctx, inv.SchemaId)
			if err != nil && !errors.Is(err, store.ErrSchemaNotFound) {
				zap.L().Error("Failed to get investment schema",
					zap.String("investment_id", inv.Id),
					zap.String("schema_id", inv.SchemaId),
					zap.Error(err))
				return nil, fmt.Errorf("failed to retrieve investments")
			}
			schemas[inv.SchemaId] = schema
		}
		if schema != nil {
			record.SchemaName = schema.Name
			record.ExpectedTotalProfit = distribution.ExpectedTotalReturn(*schema, inv.InvestAmount)
		}

		result[i] = record
	}

	return result, nil
}

// GetTransactionHistory returns paginated transaction history for a user
func (s *ReportService) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.TransactionRecord, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	transactions, err := s.store.GetTransactionHistory(ctx, userId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history")
	}

	result := make([]models.TransactionRecord, len(transactions))
	for i, tx := range transactions {
		result[i] = models.TransactionRecord{
			Id:          tx.Id,
			Type:        tx.Type,
			Amount:      tx.Amount,
			ReferenceId: tx.ReferenceId,
			Description: tx.Description,
			Status:      tx.Status,
			ProcessedAt: tx.ProcessedAt,
		}
	}

	return result, nil
}
