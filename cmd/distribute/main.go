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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"profit-distribution-go/internal/common"
	"profit-distribution-go/internal/config"
	"profit-distribution-go/internal/distribution"

	"go.uber.org/zap"
)

const usage = `usage: distribute

Pays one day of profit to every due investment and settles the ones that have
reached maturity. Takes no arguments; configure it through the environment
(see .env.example). Intended to be triggered by cron or another scheduler.
`

func main() {
	if len(os.Args) > 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	distributor := distribution.NewDistributor(services.DbService, distribution.Options{
		ItemDelay:   cfg.Distribution.ItemDelay,
		ItemTimeout: cfg.Distribution.ItemTimeout,
		RunLogFile:  cfg.Distribution.RunLogFile,
		Mirror:      services.EventMirror(),
		Out:         os.Stdout,
	})

	_, err = distributor.Run(ctx)
	services.Close()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Warn("Profit distribution interrupted", zap.Error(err))
	default:
		logger.Error("Profit distribution failed", zap.Error(err))
		loggerCleanup()
		os.Exit(1)
	}
}
