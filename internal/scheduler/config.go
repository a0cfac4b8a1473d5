package scheduler

import (
	"time"

	"github.com/smallbiznis/idadmin/internal/config"
)

// Config controls the grant cleanup interval and batch sizes.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	// MaxBatches bounds the work done in one run; leftovers wait for the
	// next tick.
	MaxBatches int
	JobTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		BatchSize:   100,
		MaxBatches:  50,
		JobTimeout:  time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: time.Duration(cfg.GrantCleanup.IntervalSeconds) * time.Second,
		BatchSize:   cfg.GrantCleanup.BatchSize,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.MaxBatches <= 0 {
		c.MaxBatches = defaults.MaxBatches
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
