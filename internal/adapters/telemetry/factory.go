package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// TelemetryType represents the type of telemetry.
type TelemetryType string

const (
	// TypeNoop is the no-op telemetry type.
	TypeNoop TelemetryType = "noop"

	// TypePrometheus is the Prometheus telemetry type.
	TypePrometheus TelemetryType = "prometheus"
)

// NewTelemetry creates a new telemetry adapter based on configuration.
// reg is only used by the Prometheus adapter.
func NewTelemetry(config *Config, reg prometheus.Registerer) (Telemetry, error) {
	if config == nil {
		return NewNoopTelemetry(), nil
	}

	switch TelemetryType(config.Type) {
	case TypeNoop, "":
		return NewNoopTelemetry(), nil

	case TypePrometheus:
		return NewPrometheusTelemetry(config, reg), nil

	default:
		return nil, fmt.Errorf("unknown telemetry type: %s", config.Type)
	}
}
