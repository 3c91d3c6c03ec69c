package database

import (
	"context"
	"fmt"
	"time"

	"profit-distribution-go/internal/models"
	"profit-distribution-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordProfit appends the profit row for one distribution day.
func (e executor) RecordProfit(ctx context.Context, userId string, amount decimal.Decimal, investmentId string, profitDay int, at time.Time) (*models.Transaction, error) {
	return e.insertTransaction(ctx, userId, models.TransactionTypeProfit, amount, investmentId,
		fmt.Sprintf("Daily profit from investment #%s (day %d)", investmentId, profitDay), at)
}

// RecordPrincipalReturn appends the principal repayment row written at maturity.
func (e executor) RecordPrincipalReturn(ctx context.Context, userId string, amount decimal.Decimal, investmentId, schemaName string, at time.Time) (*models.Transaction, error) {
	return e.insertTransaction(ctx, userId, models.TransactionTypePrincipalReturn, amount, investmentId,
		fmt.Sprintf("Principal return from %s investment #%s", schemaName, investmentId), at)
}

func (e executor) insertTransaction(ctx context.Context, userId, txType string, amount decimal.Decimal, investmentId, description string, at time.Time) (*models.Transaction, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%s amount %s: %w", txType, amount.String(), store.ErrInvalidAmount)
	}

	transaction := &models.Transaction{
		Id:            uuid.New().String(),
		UserId:        userId,
		Type:          txType,
		Amount:        amount,
		Fee:           decimal.Zero,
		NetAmount:     amount,
		Currency:      models.CurrencyUSD,
		PaymentMethod: models.PaymentMethodSystem,
		Status:        models.TransactionStatusCompleted,
		ReferenceId:   investmentId,
		Description:   description,
		ProcessedAt:   at.UTC(),
		CreatedAt:     at.UTC(),
	}

	units := toUnits(amount)
	_, err := e.q.ExecContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.UserId, transaction.Type, units, int64(0), units,
		transaction.Currency, transaction.PaymentMethod, transaction.Status,
		transaction.ReferenceId, transaction.Description,
		formatTime(transaction.ProcessedAt), formatTime(transaction.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s transaction: %w", txType, err)
	}

	zap.L().Debug("Transaction recorded",
		zap.String("transaction_id", transaction.Id),
		zap.String("type", txType),
		zap.String("reference_id", investmentId),
		zap.String("amount", amount.String()))
	return transaction, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		tx                     models.Transaction
		amount, fee, netAmount int64
		processedAt, createdAt string
	)
	if err := row.Scan(&tx.Id, &tx.UserId, &tx.Type, &amount, &fee, &netAmount,
		&tx.Currency, &tx.PaymentMethod, &tx.Status, &tx.ReferenceId, &tx.Description,
		&processedAt, &createdAt); err != nil {
		return nil, err
	}

	tx.Amount = fromUnits(amount)
	tx.Fee = fromUnits(fee)
	tx.NetAmount = fromUnits(netAmount)

	var err error
	if tx.ProcessedAt, err = parseTime(processedAt); err != nil {
		return nil, err
	}
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Service) queryTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query transactions: %w", err)
	}
	defer closeRows(rows)

	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan transaction row: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

func (s *Service) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.queryTransactions(ctx, queryGetTransactionHistory, userId, limit, offset)
}

func (s *Service) GetInvestmentTransactions(ctx context.Context, investmentId string) ([]models.Transaction, error) {
	return s.queryTransactions(ctx, queryGetInvestmentTransactions, investmentId)
}
