package tasks

import (
	"time"

	"github.com/mikestefanello/backlite"
)

// Config sizes the worker pool. Zero fields take the defaults below.
type Config struct {
	Workers         int
	ReleaseAfter    time.Duration // a claimed task is handed out again after this
	CleanupInterval time.Duration // sweep of finished tasks
}

const (
	defaultWorkers         = 2
	defaultReleaseAfter    = 15 * time.Minute
	defaultCleanupInterval = time.Hour

	// finished tasks stay visible to /api/tasks/:id for a day; payloads are
	// only kept for failures
	taskRetention = 24 * time.Hour
)

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = defaultReleaseAfter
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = defaultCleanupInterval
	}
	return c
}

// queueConfig describes a queue with the shared retention policy.
func queueConfig(name string, attempts int, backoff, timeout time.Duration) backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        name,
		MaxAttempts: attempts,
		Backoff:     backoff,
		Timeout:     timeout,
		Retention: &backlite.Retention{
			Duration: taskRetention,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}
