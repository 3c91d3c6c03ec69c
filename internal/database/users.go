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

	"go.uber.org/zap"
)

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user                                models.User
		balance, lockedBalance, totalEarned int64
		createdAt, updatedAt                string
	)
	if err := row.Scan(&user.Id, &user.Name, &user.Email, &balance, &lockedBalance, &totalEarned,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	user.Balance = fromUnits(balance)
	user.LockedBalance = fromUnits(lockedBalance)
	user.TotalEarned = fromUnits(totalEarned)

	var err error
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying active users")

	rows, err := s.db.QueryContext(ctx, queryGetActiveUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}

		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserById, "id", userId)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserByEmail, "email", email)
}

func (s *Service) getUser(ctx context.Context, query, field, key string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", key, store.ErrUserNotFound)
		}
		zap.L().Error("Failed to query user", zap.String(field, key), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by %s: %w", field, err)
	}

	zap.L().Debug("Retrieved user", zap.String(field, key), zap.String("user_id", user.Id))
	return user, nil
}

// CreateUser registers a user with all three balance fields at zero.
func (s *Service) CreateUser(ctx context.Context, userId, name, email string) (*models.User, error) {
	zap.L().Info("Creating user", zap.String("id", userId), zap.String("name", name), zap.String("email", email))

	now := formatTime(time.Now())
	result, err := s.db.ExecContext(ctx, queryInsertUser, userId, name, email, now, now)
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		zap.L().Error("Failed to get rows affected", zap.Error(err))
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, fmt.Errorf("user with email %s already exists", email)
	}

	return s.GetUserById(ctx, userId)
}
