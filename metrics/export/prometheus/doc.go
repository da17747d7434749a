// Package prometheus renders dev backend metrics in the Prometheus text
// exposition format. Series are named notees_*_total plus the
// notees_request_latency_seconds histogram. Nothing is registered globally;
// callers mount [Exporter.Handler].
package prometheus
