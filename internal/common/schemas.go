package common

import (
	"fmt"
	"os"
	"path/filepath"

	"profit-distribution-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// SchemaConfig is one investment plan as written in schemas.yaml. Amounts are
// strings so they parse exactly into decimals.
type SchemaConfig struct {
	Id           string `yaml:"id"`
	Name         string `yaml:"name"`
	DailyRate    string `yaml:"daily_rate"`
	DurationDays int    `yaml:"duration_days"`
	MinAmount    string `yaml:"min_amount"`
	MaxAmount    string `yaml:"max_amount"`
	TotalReturn  string `yaml:"total_return"`
	Active       *bool  `yaml:"active"`
}

type SchemasConfig struct {
	Schemas []SchemaConfig `yaml:"schemas"`
}

func LoadSchemaConfig(schemasFile string) ([]models.InvestmentSchema, error) {
	var schemasPath string
	if filepath.IsAbs(schemasFile) {
		schemasPath = schemasFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		schemasPath = filepath.Join(wd, schemasFile)
	}

	data, err := os.ReadFile(schemasPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", schemasFile, err)
	}

	return ParseSchemaConfig(data)
}

func ParseSchemaConfig(data []byte) ([]models.InvestmentSchema, error) {
	var config SchemasConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse schemas: %w", err)
	}

	schemas := make([]models.InvestmentSchema, 0, len(config.Schemas))
	for i, sc := range config.Schemas {
		if sc.Id == "" {
			return nil, fmt.Errorf("schema at index %d missing id", i)
		}
		if sc.Name == "" {
			return nil, fmt.Errorf("schema %s missing name", sc.Id)
		}
		if sc.DurationDays < 1 {
			return nil, fmt.Errorf("schema %s: duration_days must be at least 1", sc.Id)
		}

		schema := models.InvestmentSchema{
			Id:           sc.Id,
			Name:         sc.Name,
			DurationDays: sc.DurationDays,
			Active:       sc.Active == nil || *sc.Active,
		}

		fields := []struct {
			name  string
			raw   string
			dest  *decimal.Decimal
			maybe bool
		}{
			{"daily_rate", sc.DailyRate, &schema.DailyRate, false},
			{"min_amount", sc.MinAmount, &schema.MinAmount, false},
			{"max_amount", sc.MaxAmount, &schema.MaxAmount, false},
			{"total_return", sc.TotalReturn, &schema.TotalReturn, true},
		}
		for _, f := range fields {
			if f.raw == "" {
				if f.maybe {
					continue
				}
				return nil, fmt.Errorf("schema %s missing %s", sc.Id, f.name)
			}
			value, err := decimal.NewFromString(f.raw)
			if err != nil {
				return nil, fmt.Errorf("schema %s: invalid %s %q: %w", sc.Id, f.name, f.raw, err)
			}
			*f.dest = value
		}

		if schema.MaxAmount.LessThan(schema.MinAmount) {
			return nil, fmt.Errorf("schema %s: max_amount below min_amount", sc.Id)
		}

		// total_return defaults to rate x duration, as a fraction of principal
		if sc.TotalReturn == "" {
			schema.TotalReturn = schema.DailyRate.Mul(decimal.NewFromInt(int64(sc.DurationDays))).Shift(-2)
		}

		schemas = append(schemas, schema)
	}

	return schemas, nil
}
