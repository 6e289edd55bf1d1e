package config

import "time"

const (
	DefaultNamespace       = "default"
	DefaultImage           = "ghcr.io/kubemcp/mcp-server-base:latest"
	DefaultContainerPort   = 8080
	DefaultServicePort     = 80
	DefaultImagePullPolicy = "IfNotPresent"
	DefaultRequestTimeout  = 30 * time.Second
	DefaultPollInterval    = 5 * time.Second
	DefaultTailLines       = 100
	DefaultMetricsAddress  = ":9090"
)

// GetDefaultConfig returns the configuration used when no config file is present.
func GetDefaultConfig() Config {
	return Config{
		Kubernetes: KubernetesConfig{
			Namespace: DefaultNamespace,
		},
		Runtime: RuntimeConfig{
			Image:           DefaultImage,
			ContainerPort:   DefaultContainerPort,
			ServicePort:     DefaultServicePort,
			ImagePullPolicy: DefaultImagePullPolicy,
		},
		Timeouts: TimeoutConfig{
			Request: DefaultRequestTimeout,
		},
		Status: StatusConfig{
			PollInterval: DefaultPollInterval,
		},
		Logs: LogsConfig{
			TailLines: DefaultTailLines,
		},
		Metrics: MetricsConfig{
			Address: DefaultMetricsAddress,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
