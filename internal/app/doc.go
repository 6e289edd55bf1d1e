// Package app bootstraps kubemcp for the CLI.
//
// NewApplication loads config.yaml (plus KUBEMCP_* environment overrides and
// flag overrides), configures logging and builds a disabled runtime manager.
// Initialize connects it to the cluster. Serve keeps it running: a status
// poller, a kubeconfig watcher that triggers Reload, the Prometheus endpoint
// and systemd readiness notifications.
package app
