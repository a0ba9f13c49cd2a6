package telemetry

import (
	"context"
)

// NoopTelemetry is a no-op implementation of the Telemetry interface.
// Use this when telemetry is disabled or not needed.
type NoopTelemetry struct{}

// NewNoopTelemetry creates a new no-op telemetry adapter.
func NewNoopTelemetry() *NoopTelemetry {
	return &NoopTelemetry{}
}

// RecordCompile does nothing.
func (n *NoopTelemetry) RecordCompile(ctx context.Context, info CompileInfo) {}

// RecordDrop does nothing.
func (n *NoopTelemetry) RecordDrop(ctx context.Context, info DropInfo) {}

// Flush does nothing.
func (n *NoopTelemetry) Flush(ctx context.Context) error {
	return nil
}

// Close does nothing.
func (n *NoopTelemetry) Close(ctx context.Context) error {
	return nil
}

// Ensure NoopTelemetry implements Telemetry interface.
var _ Telemetry = (*NoopTelemetry)(nil)
