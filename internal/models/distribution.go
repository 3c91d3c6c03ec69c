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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DistributionMode decides where profit lands on the user row
type DistributionMode string

const (
	// ModeLocked accrues profit in locked_balance until maturity
	ModeLocked DistributionMode = "locked"
	// ModeImmediate credits profit straight to the withdrawable balance
	ModeImmediate DistributionMode = "immediate"
)

// SettingProfitDistributionLocked is the settings key toggling locked mode ("1") or immediate mode ("0")
const SettingProfitDistributionLocked = "profit_distribution_locked"

// DistributionEvent describes one committed per-investment distribution
type DistributionEvent struct {
	InvestmentId   string
	UserId         string
	SchemaName     string
	Mode           DistributionMode
	ProfitDay      int
	Profit         decimal.Decimal
	Principal      decimal.Decimal // zero unless Matured
	ReleasedLocked decimal.Decimal // accrued locked profit moved to balance at maturity
	Matured        bool
	OccurredAt     time.Time
}

// ItemFailure records an investment that could not be processed in a run
type ItemFailure struct {
	InvestmentId string `json:"investment_id"`
	Error        string `json:"error"`
}

// RunSummary is the outcome of one distribution run
type RunSummary struct {
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        time.Time       `json:"finished_at"`
	Due               int             `json:"due"`
	Processed         int             `json:"processed"`
	Matured           int             `json:"matured"`
	Skipped           int             `json:"skipped"`
	Errors            int             `json:"errors"`
	TotalDistributed  decimal.Decimal `json:"total_distributed"`
	PrincipalReturned decimal.Decimal `json:"principal_returned"`
	Failures          []ItemFailure   `json:"failures,omitempty"`
}
