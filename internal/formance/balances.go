package formance

import (
	"context"
	"fmt"
	"math/big"

	"profit-distribution-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MirroredBalance is a user's position as seen by the ledger mirror.
type MirroredBalance struct {
	Available decimal.Decimal
	Locked    decimal.Decimal
}

// GetUserBalance reads users:{userId}:available and users:{userId}:locked.
// Accounts that were never used read as zero.
func (s *Service) GetUserBalance(ctx context.Context, userId string) (MirroredBalance, error) {
	zap.L().Debug("Getting mirrored user balance from Formance", zap.String("user_id", userId))

	available, err := s.accountBalance(ctx, fmt.Sprintf("users:%s:available", userId))
	if err != nil {
		return MirroredBalance{}, err
	}
	locked, err := s.accountBalance(ctx, fmt.Sprintf("users:%s:locked", userId))
	if err != nil {
		return MirroredBalance{}, err
	}
	return MirroredBalance{Available: available, Locked: locked}, nil
}

func (s *Service) accountBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if isNotFoundError(err) {
			return decimal.Zero, nil
		}
		zap.L().Warn("Failed to get account volumes", zap.String("address", address), zap.Error(err))
		return decimal.Zero, fmt.Errorf("unable to read account %s: %w", address, err)
	}

	bal := volumeBalance(resp.V2AccountResponse.Data.Volumes, formanceAsset(models.CurrencyUSD))
	return bigIntToDecimal(bal, models.CurrencyUSD), nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// bigIntToDecimal converts a *big.Int in smallest-unit to a human-readable decimal.
func bigIntToDecimal(raw *big.Int, symbol string) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(precisionFor(symbol)))
}
