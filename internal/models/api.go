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

// UserBalance represents a user's balance fields for reporting
type UserBalance struct {
	UserId        string          `json:"user_id"`
	Balance       decimal.Decimal `json:"balance"`
	LockedBalance decimal.Decimal `json:"locked_balance"`
	TotalEarned   decimal.Decimal `json:"total_earned"`
}

// InvestmentRecord represents an investment in the user's portfolio report
type InvestmentRecord struct {
	Id                  string          `json:"id"`
	SchemaName          string          `json:"schema_name"`
	InvestAmount        decimal.Decimal `json:"invest_amount"`
	TotalProfitAmount   decimal.Decimal `json:"total_profit_amount"`
	ExpectedTotalProfit decimal.Decimal `json:"expected_total_profit"`
	Status              string          `json:"status"`
	NextProfitTime      *time.Time      `json:"next_profit_time,omitempty"`
}

// TransactionRecord represents a transaction in the user's history
type TransactionRecord struct {
	Id          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	ReferenceId string          `json:"reference_id"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	ProcessedAt time.Time       `json:"processed_at"`
}
