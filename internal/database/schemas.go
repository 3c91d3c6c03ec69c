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

func scanSchema(row rowScanner) (*models.InvestmentSchema, error) {
	var (
		schema                                       models.InvestmentSchema
		dailyRate, minAmount, maxAmount, totalReturn int64
		createdAt                                    string
	)
	if err := row.Scan(&schema.Id, &schema.Name, &dailyRate, &schema.DurationDays,
		&minAmount, &maxAmount, &totalReturn, &schema.Active, &createdAt); err != nil {
		return nil, err
	}

	schema.DailyRate = fromUnits(dailyRate)
	schema.MinAmount = fromUnits(minAmount)
	schema.MaxAmount = fromUnits(maxAmount)
	schema.TotalReturn = fromUnits(totalReturn)

	var err error
	if schema.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &schema, nil
}

// GetSchemaById returns the plan or a *store.SchemaNotFoundError.
func (e executor) GetSchemaById(ctx context.Context, schemaId string) (*models.InvestmentSchema, error) {
	schema, err := scanSchema(e.q.QueryRowContext(ctx, queryGetSchemaById, schemaId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.SchemaNotFoundError{SchemaId: schemaId}
		}
		zap.L().Error("Failed to query schema", zap.String("schema_id", schemaId), zap.Error(err))
		return nil, fmt.Errorf("unable to query schema: %w", err)
	}
	return schema, nil
}

func (s *Service) ListSchemas(ctx context.Context) ([]models.InvestmentSchema, error) {
	rows, err := s.db.QueryContext(ctx, queryListSchemas)
	if err != nil {
		return nil, fmt.Errorf("unable to query schemas: %w", err)
	}
	defer closeRows(rows)

	var schemas []models.InvestmentSchema
	for rows.Next() {
		schema, err := scanSchema(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan schema row: %w", err)
		}
		schemas = append(schemas, *schema)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema rows: %w", err)
	}
	return schemas, nil
}

// UpsertSchema creates or replaces a plan definition.
func (s *Service) UpsertSchema(ctx context.Context, schema models.InvestmentSchema) error {
	if schema.Id == "" {
		return fmt.Errorf("schema id cannot be empty")
	}
	if schema.DurationDays < 1 {
		return fmt.Errorf("schema %s: duration must be at least 1 day, got %d", schema.Id, schema.DurationDays)
	}
	if schema.DailyRate.IsNegative() || schema.MinAmount.IsNegative() || schema.MaxAmount.LessThan(schema.MinAmount) {
		return fmt.Errorf("schema %s: %w", schema.Id, store.ErrInvalidAmount)
	}

	createdAt := schema.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, queryUpsertSchema,
		schema.Id, schema.Name, toUnits(schema.DailyRate), schema.DurationDays,
		toUnits(schema.MinAmount), toUnits(schema.MaxAmount), toUnits(schema.TotalReturn),
		schema.Active, formatTime(createdAt))
	if err != nil {
		zap.L().Error("Failed to upsert schema", zap.String("schema_id", schema.Id), zap.Error(err))
		return fmt.Errorf("unable to upsert schema: %w", err)
	}

	zap.L().Info("Investment schema saved",
		zap.String("schema_id", schema.Id),
		zap.String("name", schema.Name),
		zap.String("daily_rate", schema.DailyRate.String()),
		zap.Int("duration_days", schema.DurationDays))
	return nil
}
