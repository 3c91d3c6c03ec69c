package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// GetSetting returns the stored value for key, or defaultValue when unset.
func (e executor) GetSetting(ctx context.Context, key, defaultValue string) (string, error) {
	var value string
	err := e.q.QueryRowContext(ctx, queryGetSetting, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaultValue, nil
		}
		return "", fmt.Errorf("unable to read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Service) SetSetting(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertSetting, key, value, formatTime(time.Now())); err != nil {
		return fmt.Errorf("unable to write setting %s: %w", key, err)
	}
	zap.L().Info("Setting updated", zap.String("key", key), zap.String("value", value))
	return nil
}
