package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if len(c.Job.Windows) == 0 {
		return errors.New("job.windows must not be empty")
	}
	for _, w := range c.Job.Windows {
		if w < 1 {
			return fmt.Errorf("job.windows entries must be >= 1, got %d", w)
		}
	}

	if c.Job.TopAssets < 2 {
		return errors.New("job.top_assets must be >= 2")
	}
	if c.Job.MinDataPoints < 2 {
		return errors.New("job.min_data_points must be >= 2")
	}
	if c.Job.LookbackDays < 1 {
		return errors.New("job.lookback_days must be >= 1")
	}
	if c.Job.Concurrency < 1 {
		return errors.New("job.concurrency must be >= 1")
	}
	if c.Job.Timeout <= 0 {
		return errors.New("job.timeout must be positive")
	}

	return c.Database.Warehouse.validate("database.warehouse")
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
