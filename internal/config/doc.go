// Package config loads the kubemcp configuration.
//
// Configuration is read from a single YAML file, by default
// ~/.config/kubemcp/config.yaml. A missing file yields the defaults from
// GetDefaultConfig. KUBEMCP_* environment variables override file values and
// command line flags override both.
//
//	kubernetes:
//	  namespace: mcp-servers
//	  kubeconfig: /etc/kubemcp/kubeconfig
//	  watchKubeconfig: true
//	runtime:
//	  image: ghcr.io/example/mcp-server:1.4.0
//	  containerPort: 8080
//	  servicePort: 80
//	  toolsDiscovery: true
//	timeouts:
//	  request: 30s
//	status:
//	  pollInterval: 5s
//	logs:
//	  tailLines: 100
//	metrics:
//	  address: ":9090"
//
// The kubernetes connection is resolved in this order: kubeconfigInline,
// kubeconfig, inCluster, then the default client-go loading rules.
package config
