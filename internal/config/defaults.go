package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultTopAssets     = 15
	DefaultMinDataPoints = 5
	DefaultLookbackDays  = 90
	DefaultConcurrency   = 8
	DefaultTimeout       = 10 * time.Minute
	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 10
	DefaultMinConns      = 2
)

// DefaultWindows are the trailing analytics windows used when the config
// omits them.
var DefaultWindows = []int{30, 90}

func (c *Config) applyDefaults() {
	if len(c.Job.Windows) == 0 {
		c.Job.Windows = append([]int(nil), DefaultWindows...)
	}
	if c.Job.TopAssets == 0 {
		c.Job.TopAssets = DefaultTopAssets
	}
	if c.Job.MinDataPoints == 0 {
		c.Job.MinDataPoints = DefaultMinDataPoints
	}
	if c.Job.LookbackDays == 0 {
		c.Job.LookbackDays = DefaultLookbackDays
	}
	if c.Job.Concurrency == 0 {
		c.Job.Concurrency = DefaultConcurrency
	}
	if c.Job.Timeout == 0 {
		c.Job.Timeout = DefaultTimeout
	}

	applyDBDefaults(&c.Database.Warehouse)
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
