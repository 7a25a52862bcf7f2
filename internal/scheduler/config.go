package scheduler

import (
	"time"

	"github.com/smallbiznis/laudo/internal/config"
)

// Config controls maintenance intervals.
type Config struct {
	RunInterval   time.Duration
	JobTimeout    time.Duration
	StagingMaxAge time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:   15 * time.Minute,
		JobTimeout:    time.Minute,
		StagingMaxAge: time.Hour,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:   time.Duration(cfg.MaintenanceIntervalSeconds) * time.Second,
		StagingMaxAge: time.Duration(cfg.StagingMaxAgeSeconds) * time.Second,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.StagingMaxAge <= 0 {
		c.StagingMaxAge = defaults.StagingMaxAge
	}
	return c
}
