package api

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"profit-distribution-go/internal/database"
	"profit-distribution-go/internal/models"
	"profit-distribution-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupReportService(t *testing.T) (*ReportService, *database.Service) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "report.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return NewReportService(db), db
}

func seedPortfolio(t *testing.T, db *database.Service) *models.Investment {
	t.Helper()
	ctx := context.Background()

	_, err := db.CreateUser(ctx, "u1", "Alice", "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, db.UpsertSchema(ctx, models.InvestmentSchema{
		Id:           "growth-30",
		Name:         "Growth",
		DailyRate:    decimal.NewFromInt(2),
		DurationDays: 30,
		MinAmount:    decimal.NewFromInt(100),
		MaxAmount:    decimal.NewFromInt(10000),
		TotalReturn:  decimal.RequireFromString("0.6"),
		Active:       true,
	}))

	inv, err := db.CreateInvestment(ctx, store.CreateInvestmentParams{
		UserId:   "u1",
		SchemaId: "growth-30",
		Amount:   decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	return inv
}

func TestHealthCheck(t *testing.T) {
	svc, _ := setupReportService(t)
	assert.NoError(t, svc.HealthCheck(context.Background()))
}

func TestGetUserBalance(t *testing.T) {
	svc, db := setupReportService(t)
	ctx := context.Background()
	inv := seedPortfolio(t, db)

	err := db.WithinTx(ctx, func(tx store.LedgerTx) error {
		if _, err := tx.RecordProfit(ctx, "u1", decimal.NewFromInt(20), inv.Id, 1, time.Now()); err != nil {
			return err
		}
		return tx.ApplyProfit(ctx, "u1", decimal.NewFromInt(20), models.ModeLocked)
	})
	require.NoError(t, err)

	balance, err := svc.GetUserBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.Balance.IsZero())
	assert.True(t, balance.LockedBalance.Equal(decimal.NewFromInt(20)))
	assert.True(t, balance.TotalEarned.Equal(decimal.NewFromInt(20)))

	_, err = svc.GetUserBalance(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = svc.GetUserBalance(ctx, "")
	assert.Error(t, err)
}

func TestGetUserInvestments(t *testing.T) {
	svc, db := setupReportService(t)
	ctx := context.Background()
	inv := seedPortfolio(t, db)

	records, err := svc.GetUserInvestments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, inv.Id, record.Id)
	assert.Equal(t, "Growth", record.SchemaName)
	assert.Equal(t, "active", record.Status)
	assert.True(t, record.ExpectedTotalProfit.Equal(decimal.NewFromInt(600)),
		"expected 600, got %s", record.ExpectedTotalProfit)
	assert.True(t, record.TotalProfitAmount.IsZero())
}

func TestGetTransactionHistory(t *testing.T) {
	svc, db := setupReportService(t)
	ctx := context.Background()
	inv := seedPortfolio(t, db)

	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	for day := 1; day <= 3; day++ {
		err := db.WithinTx(ctx, func(tx store.LedgerTx) error {
			_, err := tx.RecordProfit(ctx, "u1", decimal.NewFromInt(20), inv.Id, day, base.Add(time.Duration(day)*time.Hour))
			return err
		})
		require.NoError(t, err)
	}

	records, err := svc.GetTransactionHistory(ctx, "u1", 2, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.TransactionTypeProfit, records[0].Type)
	assert.Equal(t, inv.Id, records[0].ReferenceId)

	// out-of-range limit falls back to the default page size
	records, err = svc.GetTransactionHistory(ctx, "u1", 1000, -5)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
