// Package telemetry provides telemetry adapter interfaces.
package telemetry

import (
	"context"
	"time"
)

// Telemetry defines the telemetry adapter interface.
type Telemetry interface {
	// RecordCompile records one filter compilation.
	RecordCompile(ctx context.Context, info CompileInfo)

	// RecordDrop records a filter fragment discarded by the forgiving policy.
	RecordDrop(ctx context.Context, info DropInfo)

	// Flush flushes any buffered telemetry data.
	Flush(ctx context.Context) error

	// Close closes the telemetry adapter.
	Close(ctx context.Context) error
}

// Outcome labels a compilation result.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

// CompileInfo contains information about a compilation.
type CompileInfo struct {
	// Entity is the entity the filter was compiled against.
	Entity string

	// Outcome is ok, rejected (a filter error) or error.
	Outcome Outcome

	// Kind is the filter error kind for rejected compilations.
	Kind string

	// Duration is how long parsing and compiling took.
	Duration time.Duration

	// Cached reports whether the parsed filter came from the cache.
	Cached bool
}

// DropInfo contains information about a dropped fragment.
type DropInfo struct {
	Entity string
	Reason string
}

// Config holds telemetry configuration.
type Config struct {
	// Type is the telemetry type (noop, prometheus).
	Type string

	// Namespace prefixes metric names.
	Namespace string
}
