package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"profit-distribution-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrSchemaNotFound         = errors.New("investment schema not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvestmentNotFound     = errors.New("investment not found")
	ErrInvestmentNotDue       = errors.New("investment not due for distribution")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrAmountOutOfRange       = errors.New("amount outside schema limits")
	ErrReconciliationMismatch = errors.New("profit total does not match transaction log")
)

// SchemaNotFoundError carries the id of the missing schema.
type SchemaNotFoundError struct {
	SchemaId string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("investment schema not found: %s", e.SchemaId)
}

func (e *SchemaNotFoundError) Unwrap() error {
	return ErrSchemaNotFound
}

// CreateInvestmentParams contains the parameters for opening an investment.
type CreateInvestmentParams struct {
	UserId    string
	SchemaId  string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// LedgerTx is the set of operations available to one investment's distribution
// inside a single database transaction.
type LedgerTx interface {
	// --- Investment state ---
	LockDueInvestment(ctx context.Context, investmentId string, now time.Time) (*models.Investment, error)
	AdvanceProfit(ctx context.Context, investmentId string, lastProfitTime, nextProfitTime time.Time, increment decimal.Decimal) error
	MarkCompleted(ctx context.Context, investmentId string, lastProfitTime time.Time, finalProfit decimal.Decimal) error

	// --- Schema registry ---
	GetSchemaById(ctx context.Context, schemaId string) (*models.InvestmentSchema, error)

	// --- Settings ---
	GetSetting(ctx context.Context, key, defaultValue string) (string, error)

	// --- Balances ---
	GetLockedBalance(ctx context.Context, userId string) (decimal.Decimal, error)
	ApplyProfit(ctx context.Context, userId string, amount decimal.Decimal, mode models.DistributionMode) error
	ApplyMaturity(ctx context.Context, userId string, finalProfit, principal decimal.Decimal, mode models.DistributionMode) error

	// --- Transactions ---
	RecordProfit(ctx context.Context, userId string, amount decimal.Decimal, investmentId string, profitDay int, at time.Time) (*models.Transaction, error)
	RecordPrincipalReturn(ctx context.Context, userId string, amount decimal.Decimal, investmentId, schemaName string, at time.Time) (*models.Transaction, error)
}

// DistributionStore defines the contract the distribution run needs from a backend.
type DistributionStore interface {
	FindDueForDistribution(ctx context.Context, now time.Time) ([]models.Investment, error)

	// WithinTx runs fn in one database transaction. fn returning an error (or panicking)
	// rolls back every write it made.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// EventMirror receives committed distribution events (e.g. an external ledger).
type EventMirror interface {
	MirrorDistribution(ctx context.Context, event models.DistributionEvent) error
}

// PortfolioStore is the read/admin side used by reporting and setup tools.
type PortfolioStore interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, userId, name, email string) (*models.User, error)

	// --- Schemas ---
	GetSchemaById(ctx context.Context, schemaId string) (*models.InvestmentSchema, error)
	ListSchemas(ctx context.Context) ([]models.InvestmentSchema, error)
	UpsertSchema(ctx context.Context, schema models.InvestmentSchema) error

	// --- Settings ---
	GetSetting(ctx context.Context, key, defaultValue string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// --- Investments ---
	CreateInvestment(ctx context.Context, params CreateInvestmentParams) (*models.Investment, error)
	GetInvestment(ctx context.Context, investmentId string) (*models.Investment, error)
	GetUserInvestments(ctx context.Context, userId string) ([]models.Investment, error)
	GetCompletedInvestments(ctx context.Context) ([]models.Investment, error)
	ReconcileInvestment(ctx context.Context, investmentId string) error

	// --- Transactions ---
	GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error)
	GetInvestmentTransactions(ctx context.Context, investmentId string) ([]models.Transaction, error)

	// --- Lifecycle ---
	Close()
}
