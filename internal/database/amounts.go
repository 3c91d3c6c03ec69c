package database

import (
	"database/sql"
	"fmt"
	"time"

	"profit-distribution-go/internal/models"

	"github.com/shopspring/decimal"
)

// Amounts are stored as INTEGER units with models.AmountScale fractional
// digits so that SQL-side increments stay exact.
const amountScale = models.AmountScale

// timeLayout is fixed width so TEXT comparisons order chronologically.
const timeLayout = "2006-01-02 15:04:05.000000"

func toUnits(d decimal.Decimal) int64 {
	return d.Shift(amountScale).Round(0).IntPart()
}

func fromUnits(units int64) decimal.Decimal {
	return decimal.New(units, -amountScale)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
