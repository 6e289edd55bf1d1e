// Package logging provides subsystem-tagged structured logging for kubemcp.
//
// It is a thin layer over log/slog. Every entry carries a "subsystem" attribute
// (for example "RuntimeManager" or "Secrets") and, for errors, an "error"
// attribute. Output is text by default or JSON for log shippers.
//
// # Usage
//
//	logging.Init(logging.Options{Level: logging.LevelInfo, Format: logging.FormatJSON})
//
//	logging.Info("Bootstrap", "Loaded configuration from %s", path)
//	logging.Warn("Secrets", "Secret %s has no team label", name)
//	logging.Error("RuntimeManager", err, "Failed to stop server %s", id)
//
// # Cluster client output
//
// Init also installs the same handler as the controller-runtime logger and as
// the klog backend used by client-go, so messages from the Kubernetes client
// libraries end up in the same stream with subsystem "controller-runtime" or
// "client-go".
package logging
