// Package worker provides background job processing: dispatched broker
// scans and the periodic re-listing monitor.
package worker

import "time"

// MonitorConfig holds configuration for the re-listing monitor job.
type MonitorConfig struct {
	// ReCheckAfter is how long a removed exposure may go unchecked
	// before the monitor probes it again.
	// Default: 7 days
	ReCheckAfter time.Duration

	// BatchSize caps how many exposures a single run re-checks.
	// Default: 200
	BatchSize int

	// Concurrency is the number of concurrent probes.
	// Default: 3
	Concurrency int

	// ProbeTimeout bounds each individual broker probe.
	// Default: 30 seconds
	ProbeTimeout time.Duration
}

// DefaultMonitorConfig returns the default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		ReCheckAfter: 7 * 24 * time.Hour,
		BatchSize:    200,
		Concurrency:  3,
		ProbeTimeout: 30 * time.Second,
	}
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	defaults := DefaultMonitorConfig()
	if c.ReCheckAfter <= 0 {
		c.ReCheckAfter = defaults.ReCheckAfter
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaults.ProbeTimeout
	}
	return c
}
