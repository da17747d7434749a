// Package otel binds dev backend metrics to an OpenTelemetry meter.
//
// [NewExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per latency bucket. One callback reads the backend
// snapshot on each collection cycle. The caller owns the MeterProvider.
package otel
