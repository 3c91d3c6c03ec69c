package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentStatus is the lifecycle state of an investment
type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
	InvestmentCancelled InvestmentStatus = "cancelled"
)

// Transaction types written by the distribution engine
const (
	TransactionTypeProfit          = "profit"
	TransactionTypePrincipalReturn = "principal_return"
)

// AmountScale is the number of fractional digits the ledger keeps for every
// amount. Principals are limited to cents.
const (
	AmountScale    = 8
	PrincipalScale = 2
)

const (
	TransactionStatusCompleted = "completed"
	CurrencyUSD                = "USD"
	PaymentMethodSystem        = "system"
)

// User represents a user and the three balance fields owned by the ledger
type User struct {
	Id            string          `db:"id"`
	Name          string          `db:"name"`
	Email         string          `db:"email"`
	Balance       decimal.Decimal `db:"balance"`
	LockedBalance decimal.Decimal `db:"locked_balance"`
	TotalEarned   decimal.Decimal `db:"total_earned"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// InvestmentSchema is an investment plan. DailyRate is a percentage, TotalReturn a fraction (0.60 = 60%).
type InvestmentSchema struct {
	Id           string          `db:"id"`
	Name         string          `db:"name"`
	DailyRate    decimal.Decimal `db:"daily_rate"`
	DurationDays int             `db:"duration_days"`
	MinAmount    decimal.Decimal `db:"min_amount"`
	MaxAmount    decimal.Decimal `db:"max_amount"`
	TotalReturn  decimal.Decimal `db:"total_return"`
	Active       bool            `db:"active"`
	CreatedAt    time.Time       `db:"created_at"`
}

// Investment is a user's position in a schema
type Investment struct {
	Id                string           `db:"id"`
	UserId            string           `db:"user_id"`
	SchemaId          string           `db:"schema_id"`
	InvestAmount      decimal.Decimal  `db:"invest_amount"`
	TotalProfitAmount decimal.Decimal  `db:"total_profit_amount"`
	Status            InvestmentStatus `db:"status"`
	CreatedAt         time.Time        `db:"created_at"`
	LastProfitTime    *time.Time       `db:"last_profit_time"`
	NextProfitTime    *time.Time       `db:"next_profit_time"`
	UpdatedAt         time.Time        `db:"updated_at"`
}

// Transaction is an immutable money-movement record
type Transaction struct {
	Id            string          `db:"id"`
	UserId        string          `db:"user_id"`
	Type          string          `db:"type"`
	Amount        decimal.Decimal `db:"amount"`
	Fee           decimal.Decimal `db:"fee"`
	NetAmount     decimal.Decimal `db:"net_amount"`
	Currency      string          `db:"currency"`
	PaymentMethod string          `db:"payment_method"`
	Status        string          `db:"status"`
	ReferenceId   string          `db:"reference_id"`
	Description   string          `db:"description"`
	ProcessedAt   time.Time       `db:"processed_at"`
	CreatedAt     time.Time       `db:"created_at"`
}
