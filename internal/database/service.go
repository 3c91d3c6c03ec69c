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
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time checks: *Service must satisfy both store contracts, and the
// transaction-scoped executor must satisfy store.LedgerTx.
var (
	_ store.DistributionStore = (*Service)(nil)
	_ store.PortfolioStore    = (*Service)(nil)
	_ store.LedgerTx          = executor{}
)

const defaultBusyTimeout = 5 * time.Second

// queryer is the subset of *sql.DB and *sql.Tx the executor needs.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// executor runs queries either directly against the pool or inside a transaction.
type executor struct {
	q queryer
}

type Service struct {
	db *sql.DB
	executor
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	if cfg.BusyTimeout < 0 {
		return nil, fmt.Errorf("busy timeout cannot be negative, got %v", cfg.BusyTimeout)
	}
	busyTimeout := cfg.BusyTimeout
	if busyTimeout == 0 {
		busyTimeout = defaultBusyTimeout
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))

	// _txlock=immediate makes every BeginTx a BEGIN IMMEDIATE: the write lock is
	// taken before the first read, so a due re-check cannot race another writer.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=%d&_txlock=immediate",
		cfg.Path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db, executor: executor{q: db}}
	if err := service.initSchema(ctx, cfg.CreateDummyUsers); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// WithinTx runs fn inside one database transaction. The transaction commits
// only when fn returns nil; an error or a panic rolls back every write.
func (s *Service) WithinTx(ctx context.Context, fn func(tx store.LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				zap.L().Error("Failed to roll back after panic", zap.Error(rbErr))
			}
			panic(p)
		}
	}()

	if err := fn(executor{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			zap.L().Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Service) initSchema(ctx context.Context, createDummyUsers bool) error {
	schema := `
	-- Users and their three ledger fields (INTEGER fixed-point, 8 decimals)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		locked_balance INTEGER NOT NULL DEFAULT 0 CHECK (locked_balance >= 0),
		total_earned INTEGER NOT NULL DEFAULT 0 CHECK (total_earned >= 0),
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	-- Investment plans
	CREATE TABLE IF NOT EXISTS investment_schemas (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		daily_rate INTEGER NOT NULL CHECK (daily_rate >= 0),
		duration_days INTEGER NOT NULL CHECK (duration_days >= 1),
		min_amount INTEGER NOT NULL CHECK (min_amount >= 0),
		max_amount INTEGER NOT NULL CHECK (max_amount >= min_amount),
		total_return INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	-- Investments
	CREATE TABLE IF NOT EXISTS investments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		schema_id TEXT NOT NULL,
		invest_amount INTEGER NOT NULL CHECK (invest_amount > 0),
		total_profit_amount INTEGER NOT NULL DEFAULT 0 CHECK (total_profit_amount >= 0),
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'cancelled')),
		created_at TEXT NOT NULL,
		last_profit_time TEXT,
		next_profit_time TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_investments_due ON investments(status, next_profit_time);
	CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id, created_at);

	-- Completed and cancelled investments are terminal
	CREATE TRIGGER IF NOT EXISTS trg_investments_terminal
	BEFORE UPDATE ON investments
	WHEN OLD.status <> 'active'
	BEGIN
		SELECT RAISE(ABORT, 'investment is in a terminal state');
	END;

	-- Money-movement records
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		fee INTEGER NOT NULL DEFAULT 0,
		net_amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL,
		reference_id TEXT NOT NULL,
		description TEXT NOT NULL,
		processed_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference ON transactions(reference_id, type);

	-- Transactions are append-only
	CREATE TRIGGER IF NOT EXISTS trg_transactions_no_update
	BEFORE UPDATE ON transactions
	BEGIN
		SELECT RAISE(ABORT, 'transactions are append-only');
	END;

	CREATE TRIGGER IF NOT EXISTS trg_transactions_no_delete
	BEFORE DELETE ON transactions
	BEGIN
		SELECT RAISE(ABORT, 'transactions are append-only');
	END;

	-- Operational flags
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	// Insert 3 dummy users for testing if configured to do so
	if createDummyUsers {
		users := []struct {
			id    string
			name  string
			email string
		}{
			{uuid.New().String(), "Alice Johnson", "alice.johnson@example.com"},
			{uuid.New().String(), "Bob Smith", "bob.smith@example.com"},
			{uuid.New().String(), "Carol Williams", "carol.williams@example.com"},
		}

		now := formatTime(time.Now())
		for _, user := range users {
			_, err := s.db.ExecContext(ctx, queryInsertUser, user.id, user.name, user.email, now, now)
			if err != nil {
				zap.L().Error("Failed to insert dummy user", zap.String("name", user.name), zap.Error(err))
			} else {
				zap.L().Info("Dummy user created", zap.String("id", user.id), zap.String("name", user.name))
			}
		}
	} else {
		zap.L().Info("Skipping dummy user creation (CREATE_DUMMY_USERS=false)")
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}
