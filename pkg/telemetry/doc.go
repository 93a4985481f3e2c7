// Package telemetry bundles the observability stack for the controller:
// structured logging (zerolog), Prometheus metrics for the frame loop, and
// OpenTelemetry tracing for round trips to the build.
package telemetry
