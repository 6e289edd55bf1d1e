// Package metrics exposes runtime counters and gauges to Prometheus.
package metrics
