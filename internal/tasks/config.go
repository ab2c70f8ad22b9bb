package tasks

import "time"

// Config holds configuration for the task queue system.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 1
	//
	// Library jobs serialize on the library coordinator anyway; more
	// workers only help when several libraries are busy at once.
	Workers int

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 2h
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed tasks. Default: 1h
	CleanupInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         1,
		ReleaseAfter:    2 * time.Hour,
		CleanupInterval: 1 * time.Hour,
	}
}
