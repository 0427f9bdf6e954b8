// Package errs holds sentinel errors shared across packages.
package errs

import "errors"

var (
	ErrMetricNotFound  = errors.New("metric not found")
	ErrInvalidType     = errors.New("invalid metric type")
	ErrInvalidValue    = errors.New("invalid value")
	ErrInvalidLifetime = errors.New("invalid lifetime")
	ErrNotInitialized  = errors.New("telemetry state not initialized")
	ErrNoExperiment    = errors.New("experiment data is not set")
)
