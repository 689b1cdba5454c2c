package services

import (
	"io"

	"urbanisme-platform/pkg/logging"
	"urbanisme-platform/pkg/metrics"
)

func newTestLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func newTestMetrics(name string) *metrics.Collector {
	return metrics.NewCollector(name)
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(s string) *string     { return &s }
