package formance

import (
	"context"
	"fmt"
	"strconv"

	"profit-distribution-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Numscript templates. Metadata is set inside the script via set_tx_meta() so
// each Formance transaction is self-describing.
// ---------------------------------------------------------------------------

const numscriptDailyProfit = `vars {
  asset $asset
  number $profit
  account $user_id
  account $bucket
  string $investment_id
  string $profit_day
  string $mode
  string $profit_human
}

send [$asset $profit] (
  source = @platform:investments:payouts allowing unbounded overdraft
  destination = @users:$user_id:$bucket
)

set_tx_meta("event_type", "daily_profit")
set_tx_meta("investment_id", $investment_id)
set_tx_meta("profit_day", $profit_day)
set_tx_meta("mode", $mode)
set_tx_meta("profit_human", $profit_human)
`

const numscriptMaturityImmediate = `vars {
  asset $asset
  number $profit
  number $principal
  account $user_id
  string $investment_id
  string $profit_day
  string $schema_name
  string $profit_human
  string $principal_human
}

send [$asset $principal] (
  source = @platform:investments:principal allowing unbounded overdraft
  destination = @users:$user_id:available
)

send [$asset $profit] (
  source = @platform:investments:payouts allowing unbounded overdraft
  destination = @users:$user_id:available
)

set_tx_meta("event_type", "maturity")
set_tx_meta("investment_id", $investment_id)
set_tx_meta("profit_day", $profit_day)
set_tx_meta("schema_name", $schema_name)
set_tx_meta("mode", "immediate")
set_tx_meta("profit_human", $profit_human)
set_tx_meta("principal_human", $principal_human)
`

// The locked variant also drains the user's whole locked account, matching
// locked_balance being reset to zero.
const numscriptMaturityLocked = `vars {
  asset $asset
  number $profit
  number $principal
  account $user_id
  string $investment_id
  string $profit_day
  string $schema_name
  string $profit_human
  string $principal_human
  string $released_human
}

send [$asset *] (
  source = @users:$user_id:locked
  destination = @users:$user_id:available
)

send [$asset $principal] (
  source = @platform:investments:principal allowing unbounded overdraft
  destination = @users:$user_id:available
)

send [$asset $profit] (
  source = @platform:investments:payouts allowing unbounded overdraft
  destination = @users:$user_id:available
)

set_tx_meta("event_type", "maturity")
set_tx_meta("investment_id", $investment_id)
set_tx_meta("profit_day", $profit_day)
set_tx_meta("schema_name", $schema_name)
set_tx_meta("mode", "locked")
set_tx_meta("profit_human", $profit_human)
set_tx_meta("principal_human", $principal_human)
set_tx_meta("released_human", $released_human)
`

// MirrorDistribution posts one committed distribution event. The reference is
// derived from the investment and day, so a retried event is a no-op.
func (s *Service) MirrorDistribution(ctx context.Context, event models.DistributionEvent) error {
	postTx := buildPostTransaction(event)

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Distribution already mirrored", zap.String("reference", *postTx.Reference))
			return nil // idempotent
		}
		return fmt.Errorf("error mirroring distribution for investment %s: %w", event.InvestmentId, err)
	}

	zap.L().Info("Distribution mirrored in Formance",
		zap.String("reference", *postTx.Reference),
		zap.String("user_id", event.UserId),
		zap.String("profit", event.Profit.String()),
		zap.Bool("matured", event.Matured))
	return nil
}

// referenceFor returns the idempotency reference of an event.
func referenceFor(event models.DistributionEvent) string {
	if event.Matured {
		return event.InvestmentId + "-maturity"
	}
	return fmt.Sprintf("%s-day-%d", event.InvestmentId, event.ProfitDay)
}

// bucketFor is the user sub-account that receives a daily profit.
func bucketFor(mode models.DistributionMode) string {
	if mode == models.ModeLocked {
		return "locked"
	}
	return "available"
}

func smallestUnits(amount decimal.Decimal) string {
	return amount.Shift(int32(precisionFor(models.CurrencyUSD))).Round(0).BigInt().String()
}

func buildPostTransaction(event models.DistributionEvent) shared.V2PostTransaction {
	asset := formanceAsset(models.CurrencyUSD)

	vars := map[string]string{
		"asset":         asset,
		"profit":        smallestUnits(event.Profit),
		"user_id":       event.UserId,
		"investment_id": event.InvestmentId,
		"profit_day":    strconv.Itoa(event.ProfitDay),
		"profit_human":  event.Profit.String(),
	}

	var script string
	switch {
	case !event.Matured:
		script = numscriptDailyProfit
		vars["bucket"] = bucketFor(event.Mode)
		vars["mode"] = string(event.Mode)
	case event.Mode == models.ModeLocked:
		script = numscriptMaturityLocked
		vars["principal"] = smallestUnits(event.Principal)
		vars["schema_name"] = event.SchemaName
		vars["principal_human"] = event.Principal.String()
		vars["released_human"] = event.ReleasedLocked.String()
	default:
		script = numscriptMaturityImmediate
		vars["principal"] = smallestUnits(event.Principal)
		vars["schema_name"] = event.SchemaName
		vars["principal_human"] = event.Principal.String()
	}

	postTx := shared.V2PostTransaction{
		Reference: strPtr(referenceFor(event)),
		Script: &shared.V2PostTransactionScript{
			Plain: script,
			Vars:  vars,
		},
	}
	if !event.OccurredAt.IsZero() {
		ts := event.OccurredAt.UTC()
		postTx.Timestamp = &ts
	}
	return postTx
}
