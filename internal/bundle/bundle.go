package bundle

import (
	"slices"

	"kubemcp/internal/naming"
)

// Bundle identifies the cluster objects that make up one running MCP
// server. It only holds names; the objects themselves live in the cluster.
type Bundle struct {
	ServerID       string   `json:"serverId"`
	Namespace      string   `json:"namespace"`
	DeploymentName string   `json:"deploymentName"`
	ServiceName    string   `json:"serviceName"`
	SecretName     string   `json:"secretName"`
	RegcredNames   []string `json:"regcredNames,omitempty"`
}

// For returns the bundle for serverID. Names are derived deterministically
// so the same bundle can be rebuilt after a restart.
func For(serverID, namespace string) Bundle {
	return Bundle{
		ServerID:       serverID,
		Namespace:      namespace,
		DeploymentName: naming.DeploymentName(serverID),
		ServiceName:    naming.ServiceName(serverID),
		SecretName:     naming.SecretName(serverID),
	}
}

// WithRegcred returns a copy of b that also references the named regcred.
func (b Bundle) WithRegcred(name string) Bundle {
	if name == "" || slices.Contains(b.RegcredNames, name) {
		return b
	}
	b.RegcredNames = append(slices.Clone(b.RegcredNames), name)
	return b
}
