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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"profit-distribution-go/internal/models"
)

// Load reads the configuration from the environment. The first malformed
// value aborts loading.
func Load() (*models.Config, error) {
	env := &envReader{}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:             getEnvString("DATABASE_PATH", "investments.db"),
			MaxOpenConns:     env.integer("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     env.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  env.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime:  env.duration("DB_CONN_MAX_IDLE_TIME", 30*time.Second),
			PingTimeout:      env.duration("DB_PING_TIMEOUT", 5*time.Second),
			BusyTimeout:      env.duration("DB_BUSY_TIMEOUT", 5*time.Second),
			CreateDummyUsers: env.boolean("CREATE_DUMMY_USERS", false),
		},
		Distribution: models.DistributionConfig{
			ItemDelay:   env.duration("DISTRIBUTION_ITEM_DELAY", 100*time.Millisecond),
			ItemTimeout: env.duration("DISTRIBUTION_ITEM_TIMEOUT", 30*time.Second),
			RunLogFile:  getEnvString("DISTRIBUTION_LOG_FILE", "profit_distribution.log"),
			SchemasFile: getEnvString("SCHEMAS_FILE", "schemas.yaml"),
		},
		Mirror: models.MirrorConfig{
			Backend: strings.ToLower(getEnvString("LEDGER_MIRROR", "none")),
			Formance: models.FormanceConfig{
				StackURL:     os.Getenv("FORMANCE_STACK_URL"),
				ClientID:     os.Getenv("FORMANCE_CLIENT_ID"),
				ClientSecret: os.Getenv("FORMANCE_CLIENT_SECRET"),
				LedgerName:   os.Getenv("FORMANCE_LEDGER"),
			},
		},
	}
	if env.err != nil {
		return nil, env.err
	}

	switch cfg.Mirror.Backend {
	case "none", "formance":
	default:
		return nil, fmt.Errorf("invalid LEDGER_MIRROR %q: expected none or formance", cfg.Mirror.Backend)
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and keeps the first parse error.
type envReader struct {
	err error
}

func (r *envReader) lookup(key string) (string, bool) {
	value := os.Getenv(key)
	return value, value != "" && r.err == nil
}

func (r *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		r.err = fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		return defaultValue
	}
	return duration
}

func (r *envReader) integer(key string, defaultValue int) int {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		r.err = fmt.Errorf("invalid integer for %s: %q (%w)", key, value, err)
		return defaultValue
	}
	return intValue
}

func (r *envReader) boolean(key string, defaultValue bool) bool {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		r.err = fmt.Errorf("invalid boolean for %s: %q (%w)", key, value, err)
		return defaultValue
	}
	return boolValue
}
