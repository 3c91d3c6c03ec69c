/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package distribution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"profit-distribution-go/internal/models"
	"profit-distribution-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultItemDelay   = 100 * time.Millisecond
	DefaultItemTimeout = 30 * time.Second
)

// ErrFatalSetup marks failures that abort the whole run before any item is touched.
var ErrFatalSetup = errors.New("distribution setup failed")

// ItemError is a per-investment failure. The item's transaction was rolled back.
type ItemError struct {
	InvestmentId string
	Err          error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("investment %s: %v", e.InvestmentId, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// ANSI color helpers for console output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

type Options struct {
	// ItemDelay is the pause after each committed investment.
	ItemDelay time.Duration
	// ItemTimeout bounds one investment's transaction. Zero means DefaultItemTimeout.
	ItemTimeout time.Duration
	// RunLogFile receives one summary line per run when set.
	RunLogFile string
	// Mirror, when set, is notified after each commit.
	Mirror store.EventMirror
	Out    io.Writer
	Clock  func() time.Time
}

type Distributor struct {
	store      store.DistributionStore
	opts       Options
	itemErrors []*ItemError
}

func NewDistributor(s store.DistributionStore, opts Options) *Distributor {
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = DefaultItemTimeout
	}
	if opts.ItemDelay < 0 {
		opts.ItemDelay = 0
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Distributor{store: s, opts: opts}
}

// Run distributes profit to every due investment, one transaction per item.
// Item failures are counted and the run continues; only a failure to list
// due investments aborts it. The returned summary is non-nil unless that
// setup step failed.
func (d *Distributor) Run(ctx context.Context) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		StartedAt:         d.opts.Clock(),
		TotalDistributed:  decimal.Zero,
		PrincipalReturned: decimal.Zero,
	}

	d.itemErrors = nil

	zap.L().Info("Starting profit distribution", zap.Time("started_at", summary.StartedAt))

	due, err := d.store.FindDueForDistribution(ctx, summary.StartedAt)
	if err != nil {
		zap.L().Error("Failed to fetch due investments", zap.Error(err))
		return nil, fmt.Errorf("%w: unable to fetch due investments: %w", ErrFatalSetup, err)
	}
	summary.Due = len(due)

	fmt.Fprintf(d.opts.Out, "\n%s[%s] Distributing profit to %d due investments%s\n",
		colorCyan, summary.StartedAt.Format("15:04:05"), len(due), colorReset)

	var runErr error
	for i, inv := range due {
		if err := ctx.Err(); err != nil {
			zap.L().Warn("Distribution interrupted", zap.Int("remaining", len(due)-i), zap.Error(err))
			runErr = err
			break
		}

		event, err := d.processInvestment(ctx, inv)
		switch {
		case errors.Is(err, store.ErrInvestmentNotDue):
			summary.Skipped++
			fmt.Fprintf(d.opts.Out, "  %s- %s already distributed, skipping%s\n", colorGray, inv.Id, colorReset)
			zap.L().Info("Investment no longer due, skipping", zap.String("investment_id", inv.Id))
			continue
		case err != nil:
			itemErr := &ItemError{InvestmentId: inv.Id, Err: err}
			d.itemErrors = append(d.itemErrors, itemErr)
			summary.Errors++
			summary.Failures = append(summary.Failures, models.ItemFailure{InvestmentId: inv.Id, Error: err.Error()})
			fmt.Fprintf(d.opts.Out, "  %s✗ %s: %s%s\n", colorRed, inv.Id, err, colorReset)
			zap.L().Error("Failed to distribute profit",
				zap.String("investment_id", inv.Id),
				zap.String("user_id", inv.UserId),
				zap.Error(itemErr))
			continue
		}

		summary.Processed++
		summary.TotalDistributed = summary.TotalDistributed.Add(event.Profit)
		if event.Matured {
			summary.Matured++
			summary.PrincipalReturned = summary.PrincipalReturned.Add(event.Principal)
			fmt.Fprintf(d.opts.Out, "  %s✓ %s matured | day %d profit %s + principal %s (%s)%s\n",
				colorYellow, inv.Id, event.ProfitDay, event.Profit.StringFixed(2),
				event.Principal.StringFixed(2), event.Mode, colorReset)
		} else {
			fmt.Fprintf(d.opts.Out, "  %s✓ %s | day %d profit %s (%s)%s\n",
				colorGreen, inv.Id, event.ProfitDay, event.Profit.StringFixed(2), event.Mode, colorReset)
		}

		d.publish(ctx, *event)

		if d.opts.ItemDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.opts.ItemDelay):
			}
		}
	}

	summary.FinishedAt = d.opts.Clock()
	d.report(summary)
	return summary, runErr
}

// ItemErrors returns the per-investment failures of the last Run.
func (d *Distributor) ItemErrors() []*ItemError {
	return d.itemErrors
}

// processInvestment runs one investment's distribution in its own transaction.
// It returns store.ErrInvestmentNotDue when another run got there first.
func (d *Distributor) processInvestment(ctx context.Context, candidate models.Investment) (*models.DistributionEvent, error) {
	itemCtx, cancel := context.WithTimeout(ctx, d.opts.ItemTimeout)
	defer cancel()

	now := d.opts.Clock()
	var event *models.DistributionEvent

	err := d.store.WithinTx(itemCtx, func(tx store.LedgerTx) error {
		inv, err := tx.LockDueInvestment(itemCtx, candidate.Id, now)
		if err != nil {
			return err
		}

		schema, err := tx.GetSchemaById(itemCtx, inv.SchemaId)
		if err != nil {
			return err
		}

		setting, err := tx.GetSetting(itemCtx, models.SettingProfitDistributionLocked, "0")
		if err != nil {
			return err
		}
		mode := ModeFromSetting(setting)

		result := CalculateProfit(inv.InvestAmount, schema.DailyRate, inv.CreatedAt, schema.DurationDays, now)

		ev := &models.DistributionEvent{
			InvestmentId:   inv.Id,
			UserId:         inv.UserId,
			SchemaName:     schema.Name,
			Mode:           mode,
			ProfitDay:      result.ProfitDay,
			Profit:         result.DailyProfit,
			Principal:      decimal.Zero,
			ReleasedLocked: decimal.Zero,
			OccurredAt:     now,
		}

		if result.IsMaturity {
			if mode == models.ModeLocked {
				if ev.ReleasedLocked, err = tx.GetLockedBalance(itemCtx, inv.UserId); err != nil {
					return err
				}
			}
			if _, err := tx.RecordPrincipalReturn(itemCtx, inv.UserId, inv.InvestAmount, inv.Id, schema.Name, now); err != nil {
				return err
			}
			if _, err := tx.RecordProfit(itemCtx, inv.UserId, result.DailyProfit, inv.Id, result.ProfitDay, now); err != nil {
				return err
			}
			if err := tx.ApplyMaturity(itemCtx, inv.UserId, result.DailyProfit, inv.InvestAmount, mode); err != nil {
				return err
			}
			if err := tx.MarkCompleted(itemCtx, inv.Id, now, result.DailyProfit); err != nil {
				return err
			}
			ev.Principal = inv.InvestAmount
			ev.Matured = true
		} else {
			if _, err := tx.RecordProfit(itemCtx, inv.UserId, result.DailyProfit, inv.Id, result.ProfitDay, now); err != nil {
				return err
			}
			if err := tx.ApplyProfit(itemCtx, inv.UserId, result.DailyProfit, mode); err != nil {
				return err
			}
			if err := tx.AdvanceProfit(itemCtx, inv.Id, now, result.NextProfitTime, result.DailyProfit); err != nil {
				return err
			}
		}

		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Profit distributed",
		zap.String("investment_id", event.InvestmentId),
		zap.String("user_id", event.UserId),
		zap.String("mode", string(event.Mode)),
		zap.Int("profit_day", event.ProfitDay),
		zap.String("profit", event.Profit.String()),
		zap.Bool("matured", event.Matured))
	return event, nil
}

// publish forwards a committed event to the mirror. Failures are only logged.
func (d *Distributor) publish(ctx context.Context, event models.DistributionEvent) {
	if d.opts.Mirror == nil {
		return
	}
	if err := d.opts.Mirror.MirrorDistribution(ctx, event); err != nil {
		zap.L().Warn("Failed to mirror distribution event",
			zap.String("investment_id", event.InvestmentId),
			zap.Int("profit_day", event.ProfitDay),
			zap.Error(err))
	}
}

func (d *Distributor) report(summary *models.RunSummary) {
	color := colorGreen
	if summary.Errors > 0 {
		color = colorRed
	}
	fmt.Fprintf(d.opts.Out, "%sProcessed %d/%d investments (%d matured, %d skipped, %d errors) | profit $%s, principal $%s%s\n",
		color, summary.Processed, summary.Due, summary.Matured, summary.Skipped, summary.Errors,
		summary.TotalDistributed.StringFixed(2), summary.PrincipalReturned.StringFixed(2), colorReset)

	zap.L().Info("Profit distribution finished",
		zap.Int("due", summary.Due),
		zap.Int("processed", summary.Processed),
		zap.Int("matured", summary.Matured),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.String("total_distributed", summary.TotalDistributed.String()),
		zap.String("principal_returned", summary.PrincipalReturned.String()),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))

	if d.opts.RunLogFile == "" {
		return
	}
	if err := AppendRunLog(d.opts.RunLogFile, summary); err != nil {
		zap.L().Error("Failed to append run log", zap.String("path", d.opts.RunLogFile), zap.Error(err))
	}
}
