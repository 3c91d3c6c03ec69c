package models

import "time"

// Config represents the application configuration
type Config struct {
	Database     DatabaseConfig
	Distribution DistributionConfig
	Mirror       MirrorConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	BusyTimeout      time.Duration
	CreateDummyUsers bool
}

// DistributionConfig holds profit distribution batch settings
type DistributionConfig struct {
	ItemDelay   time.Duration
	ItemTimeout time.Duration
	RunLogFile  string
	SchemasFile string
}

// MirrorConfig selects the optional external ledger that committed distribution events are copied to
type MirrorConfig struct {
	Backend  string // "none" or "formance"
	Formance FormanceConfig
}

// FormanceConfig holds Formance Stack connection settings
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}
