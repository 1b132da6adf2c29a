package config

import "time"

// Config is the root configuration for one analytics engine instance.
type Config struct {
	Job      JobConfig      `yaml:"job"`
	Database DatabaseConfig `yaml:"database"`
}

// JobConfig holds the analytics run parameters.
type JobConfig struct {
	// Windows are the trailing analytics windows in calendar days
	// (correlation and risk rows are produced once per window).
	Windows []int `yaml:"windows"`

	// TopAssets caps the correlation candidate set, selected by market-cap
	// rank. Risk metrics always cover every ranked asset.
	TopAssets int `yaml:"top_assets"`

	// MinDataPoints is the minimum number of daily closes (and common dates
	// for a pair) required before a row is computed.
	MinDataPoints int `yaml:"min_data_points"`

	// LookbackDays bounds the raw-snapshot scan for bar aggregation. Wide
	// enough that late-arriving snapshots keep correcting recent bars;
	// independent of Windows.
	LookbackDays int `yaml:"lookback_days"`

	// Concurrency is the per-engine worker fan-out.
	Concurrency int `yaml:"concurrency"`

	// Timeout bounds one whole invocation.
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds the warehouse connection for facts and analytics.
type DatabaseConfig struct {
	Warehouse DBConfig `yaml:"warehouse"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
