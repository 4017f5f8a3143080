// Package worker provides background job processing for careroster:
// materializing recurring booking series into concrete bookings, and
// auditing the roster for force-committed overlaps.
package worker

import (
	"time"
)

// MaterializeConfig holds configuration for the series materialization job.
type MaterializeConfig struct {
	// Concurrency is the number of instances committed in parallel.
	// Instances for the same carer still serialize at the store's overlap
	// constraint, so concurrency only buys throughput across carers.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for committing each instance.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxInstances caps how many bookings a single series may produce.
	// A series over a year with three daily windows is ~1100 instances;
	// anything far beyond that is almost certainly a bad request.
	// Default: 2000
	MaxInstances int
}

// DefaultMaterializeConfig returns the default materialization configuration.
func DefaultMaterializeConfig() MaterializeConfig {
	return MaterializeConfig{
		Concurrency:  3,
		Timeout:      30 * time.Second,
		MaxInstances: 2000,
	}
}

// AuditConfig holds configuration for the roster audit job.
type AuditConfig struct {
	// WindowDays is how many days from today the audit covers.
	// Default: 14
	WindowDays int

	// Concurrency is the number of days audited in parallel.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for auditing each day.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultAuditConfig returns the default audit configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		WindowDays:  14,
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}
