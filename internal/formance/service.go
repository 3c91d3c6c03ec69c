package formance

import (
	"context"
	"errors"
	"fmt"

	"profit-distribution-go/internal/models"
	"profit-distribution-go/internal/store"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

var _ store.EventMirror = (*Service)(nil)

const defaultLedgerName = "investment-profit-distribution"

// Payouts are mirrored at the local ledger's precision so every posting is exact.
var assetPrecision = map[string]int{
	models.CurrencyUSD: models.AmountScale,
}

// Service posts committed profit and principal events to a Formance ledger
// as a read-only copy of the SQLite books.
type Service struct {
	client *v3.Formance
	ledger string
}

// NewService builds the mirror client and makes sure the distribution ledger exists.
func NewService(ctx context.Context, cfg models.FormanceConfig) (*Service, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("ledger mirror requires FORMANCE_STACK_URL, FORMANCE_CLIENT_ID and FORMANCE_CLIENT_SECRET")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = defaultLedgerName
	}

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	mirror := &Service{client: client, ledger: cfg.LedgerName}
	if err := mirror.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("unable to prepare distribution ledger %s: %w", cfg.LedgerName, err)
	}

	zap.L().Info("Distribution mirror ready",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))
	return mirror, nil
}

// ensureLedger creates the distribution ledger on first use. An existing
// ledger is reused as is.
func (s *Service) ensureLedger(ctx context.Context) error {
	_, err := s.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: s.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": defaultLedgerName,
				"source":      "sqlite-profit-ledger",
				"asset":       formanceAsset(models.CurrencyUSD),
			},
		},
	})
	var apiErr *sdkerrors.V2ErrorResponse
	switch {
	case err == nil:
		zap.L().Info("Created distribution ledger", zap.String("ledger", s.ledger))
		return nil
	case errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists:
		zap.L().Debug("Reusing distribution ledger", zap.String("ledger", s.ledger))
		return nil
	default:
		return err
	}
}

// formanceAsset returns the ledger asset code, e.g. "USD/8".
func formanceAsset(symbol string) string {
	return fmt.Sprintf("%s/%d", symbol, precisionFor(symbol))
}

func precisionFor(symbol string) int {
	if p, ok := assetPrecision[symbol]; ok {
		return p
	}
	return 2
}

// isConflictError reports a posting whose reference was already used, i.e. a
// payout that is already mirrored.
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}

// isNotFoundError reports an account that never received a mirrored payout.
func isNotFoundError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumNotFound
}

func strPtr(s string) *string { return &s }
