package kube

import (
	"fmt"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ConnectionOptions selects where cluster credentials come from. The first
// populated source wins: Inline, Path, InCluster, then the default loading
// rules ($KUBECONFIG, ~/.kube/config).
type ConnectionOptions struct {
	Inline    string
	Path      string
	InCluster bool
}

// Source describes which credential source was used, for logging.
func (o ConnectionOptions) Source() string {
	switch {
	case o.Inline != "":
		return "inline kubeconfig"
	case o.Path != "":
		return "kubeconfig " + o.Path
	case o.InCluster:
		return "in-cluster service account"
	default:
		return "default kubeconfig loading rules"
	}
}

// LoadRESTConfig resolves a REST config without contacting the cluster.
func LoadRESTConfig(opts ConnectionOptions) (*rest.Config, error) {
	var (
		cfg *rest.Config
		err error
	)

	switch {
	case opts.Inline != "":
		cfg, err = clientcmd.RESTConfigFromKubeConfig([]byte(opts.Inline))
	case opts.Path != "":
		cfg, err = clientcmd.BuildConfigFromFlags("", opts.Path)
	case opts.InCluster:
		cfg, err = rest.InClusterConfig()
	default:
		rules := clientcmd.NewDefaultClientConfigLoadingRules()
		cfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster config from %s: %w", opts.Source(), err)
	}

	cfg.UserAgent = "kubemcp"
	return cfg, nil
}
