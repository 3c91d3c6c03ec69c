package distribution

import (
	"strings"
	"time"

	"profit-distribution-go/internal/models"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// ProfitResult is the outcome of one profit calculation.
type ProfitResult struct {
	DaysElapsed int
	DailyProfit decimal.Decimal
	IsMaturity  bool
	ProfitDay   int
	// NextProfitTime is the start of the next elapsed-day window.
	NextProfitTime time.Time
}

// CalculateProfit counts whole days elapsed since createdAt, independent of how
// many credits were already made. The profit keeps the ledger's full precision;
// display rounding happens elsewhere.
func CalculateProfit(investAmount, dailyRate decimal.Decimal, createdAt time.Time, durationDays int, now time.Time) ProfitResult {
	daysElapsed := 0
	if elapsed := now.Sub(createdAt); elapsed > 0 {
		daysElapsed = int(elapsed / day)
	}

	return ProfitResult{
		DaysElapsed:    daysElapsed,
		DailyProfit:    investAmount.Mul(dailyRate).Shift(-2).Round(models.AmountScale),
		IsMaturity:     daysElapsed >= durationDays,
		ProfitDay:      daysElapsed + 1,
		NextProfitTime: createdAt.Add(time.Duration(daysElapsed+1) * day),
	}
}

// ExpectedTotalReturn is the profit an investment earns over its full duration.
func ExpectedTotalReturn(schema models.InvestmentSchema, amount decimal.Decimal) decimal.Decimal {
	daily := amount.Mul(schema.DailyRate).Shift(-2).Round(models.AmountScale)
	return daily.Mul(decimal.NewFromInt(int64(schema.DurationDays)))
}

// ModeFromSetting maps the profit_distribution_locked setting to a mode.
// Anything other than a truthy value means immediate.
func ModeFromSetting(value string) models.DistributionMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on", "locked":
		return models.ModeLocked
	default:
		return models.ModeImmediate
	}
}
