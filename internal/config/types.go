package config

import "time"

// Config is the top-level configuration structure for kubemcp.
type Config struct {
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
	Status     StatusConfig     `yaml:"status"`
	Logs       LogsConfig       `yaml:"logs"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// KubernetesConfig describes how the cluster connection is established.
//
// Resolution order is: KubeconfigInline, Kubeconfig, InCluster, then the
// default client-go loading rules ($KUBECONFIG, ~/.kube/config).
type KubernetesConfig struct {
	Namespace        string `yaml:"namespace,omitempty"`
	Kubeconfig       string `yaml:"kubeconfig,omitempty"`       // Path to a kubeconfig file
	KubeconfigInline string `yaml:"kubeconfigInline,omitempty"` // Raw kubeconfig document
	InCluster        bool   `yaml:"inCluster,omitempty"`
	WatchKubeconfig  bool   `yaml:"watchKubeconfig,omitempty"` // Reload the runtime when the kubeconfig file changes
}

// RuntimeConfig holds the defaults applied to every MCP server workload.
type RuntimeConfig struct {
	Image           string `yaml:"image,omitempty"`
	ContainerPort   int32  `yaml:"containerPort,omitempty"`
	ServicePort     int32  `yaml:"servicePort,omitempty"`
	ImagePullPolicy string `yaml:"imagePullPolicy,omitempty"`
	// ToolsDiscovery enables the discovering_tools state: an available
	// deployment is reported as discovering tools until it is annotated as done.
	ToolsDiscovery bool `yaml:"toolsDiscovery,omitempty"`
}

// TimeoutConfig bounds cluster API calls.
type TimeoutConfig struct {
	Request time.Duration `yaml:"request,omitempty"`
}

// StatusConfig controls the background status snapshot.
type StatusConfig struct {
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`
}

// LogsConfig controls log streaming defaults.
type LogsConfig struct {
	TailLines int64 `yaml:"tailLines,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint started by `serve`.
type MetricsConfig struct {
	Address string `yaml:"address,omitempty"` // Empty disables the endpoint
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}
