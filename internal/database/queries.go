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

const (
	// User queries
	queryGetActiveUsers = `
		SELECT id, name, email, balance, locked_balance, total_earned, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, balance, locked_balance, total_earned, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, name, email, balance, locked_balance, total_earned, created_at, updated_at
		FROM users
		WHERE email = ? AND active = 1`

	// Schema queries
	queryGetSchemaById = `
		SELECT id, name, daily_rate, duration_days, min_amount, max_amount, total_return, active, created_at
		FROM investment_schemas
		WHERE id = ?`

	queryListSchemas = `
		SELECT id, name, daily_rate, duration_days, min_amount, max_amount, total_return, active, created_at
		FROM investment_schemas
		ORDER BY min_amount, name`

	queryUpsertSchema = `
		INSERT INTO investment_schemas (id, name, daily_rate, duration_days, min_amount, max_amount, total_return, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			daily_rate = excluded.daily_rate,
			duration_days = excluded.duration_days,
			min_amount = excluded.min_amount,
			max_amount = excluded.max_amount,
			total_return = excluded.total_return,
			active = excluded.active`

	// Settings queries
	queryGetSetting = `
		SELECT value FROM settings WHERE key = ?`

	queryUpsertSetting = `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	// Investment queries
	investmentColumns = `id, user_id, schema_id, invest_amount, total_profit_amount, status,
		       created_at, last_profit_time, next_profit_time, updated_at`

	queryFindDueInvestments = `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE status = 'active'
		  AND (next_profit_time <= ? OR (next_profit_time IS NULL AND created_at <= ?))
		ORDER BY created_at, id`

	queryLockDueInvestment = `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE id = ?
		  AND status = 'active'
		  AND (next_profit_time <= ? OR (next_profit_time IS NULL AND created_at <= ?))`

	queryGetInvestment = `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE id = ?`

	queryGetUserInvestments = `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE user_id = ?
		ORDER BY created_at DESC`

	queryGetCompletedInvestments = `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE status = 'completed'
		ORDER BY updated_at`

	queryInsertInvestment = `
		INSERT INTO investments (id, user_id, schema_id, invest_amount, total_profit_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 'active', ?, ?)`

	queryAdvanceProfit = `
		UPDATE investments
		SET total_profit_amount = total_profit_amount + ?,
		    last_profit_time = ?,
		    next_profit_time = ?,
		    updated_at = ?
		WHERE id = ? AND status = 'active'`

	queryMarkCompleted = `
		UPDATE investments
		SET status = 'completed',
		    total_profit_amount = total_profit_amount + ?,
		    last_profit_time = ?,
		    next_profit_time = NULL,
		    updated_at = ?
		WHERE id = ? AND status = 'active'`

	// Balance queries: every mutation is a single increment statement
	queryGetLockedBalance = `
		SELECT locked_balance FROM users WHERE id = ?`

	queryApplyProfitLocked = `
		UPDATE users
		SET locked_balance = locked_balance + ?, total_earned = total_earned + ?, updated_at = ?
		WHERE id = ?`

	queryApplyProfitImmediate = `
		UPDATE users
		SET balance = balance + ?, total_earned = total_earned + ?, updated_at = ?
		WHERE id = ?`

	queryApplyMaturityLocked = `
		UPDATE users
		SET balance = balance + locked_balance + ?, locked_balance = 0, total_earned = total_earned + ?, updated_at = ?
		WHERE id = ?`

	queryApplyMaturityImmediate = `
		UPDATE users
		SET balance = balance + ?, total_earned = total_earned + ?, updated_at = ?
		WHERE id = ?`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO transactions (
			id, user_id, type, amount, fee, net_amount, currency, payment_method,
			status, reference_id, description, processed_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	transactionColumns = `id, user_id, type, amount, fee, net_amount, currency, payment_method,
		       status, reference_id, description, processed_at, created_at`

	queryGetTransactionHistory = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	queryGetInvestmentTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE reference_id = ?
		ORDER BY created_at, id`

	querySumProfitForInvestment = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE reference_id = ? AND type = 'profit' AND status = 'completed'`
)
