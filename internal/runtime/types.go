package runtime

import (
	"errors"
	"fmt"

	"kubemcp/internal/secrets"
)

// ErrRuntimeDisabled reports that no cluster connection is configured.
// Manager operations degrade instead of returning it; callers that must
// fail, such as the CLI, check IsEnabled and wrap it themselves.
var ErrRuntimeDisabled = errors.New("kubernetes runtime is not configured")

// ServerType tells whether a server runs on the cluster or elsewhere.
type ServerType string

const (
	ServerTypeLocal  ServerType = "local"
	ServerTypeRemote ServerType = "remote"
)

// ServerRecord is an installed MCP server as known to the data layer.
type ServerRecord struct {
	ID         string     `yaml:"id" json:"id"`
	CatalogID  string     `yaml:"catalogId" json:"catalogId"`
	OwnerID    string     `yaml:"ownerId" json:"ownerId"`
	TeamID     *string    `yaml:"teamId,omitempty" json:"teamId,omitempty"`
	SecretID   *string    `yaml:"secretId,omitempty" json:"secretId,omitempty"`
	ServerType ServerType `yaml:"serverType" json:"serverType"`

	// Optional workload overrides; the runtime config supplies defaults.
	Image   string   `yaml:"image,omitempty" json:"image,omitempty"`
	Command []string `yaml:"command,omitempty" json:"command,omitempty"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
	Port    int32    `yaml:"port,omitempty" json:"port,omitempty"`

	RegistryCredential *secrets.RegistryCredential `yaml:"registryCredential,omitempty" json:"registryCredential,omitempty"`
}

// IsLocal reports whether the record is managed by the runtime. Records
// without a type are treated as local.
func (r ServerRecord) IsLocal() bool {
	return r.ServerType != ServerTypeRemote
}

// Team returns the team id, or "" when the server has none.
func (r ServerRecord) Team() string {
	if r.TeamID == nil {
		return ""
	}
	return *r.TeamID
}

// State is the synthesized deployment state of a server.
type State string

const (
	StateNotCreated       State = "not_created"
	StatePending          State = "pending"
	StateDiscoveringTools State = "discovering_tools"
	StateRunning          State = "running"
	StateError            State = "error"
)

// DeploymentStatusEntry describes one server in the status summary.
type DeploymentStatusEntry struct {
	State          State  `json:"state"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
	ServerName     string `json:"serverName"`
	DeploymentName string `json:"deploymentName"`
	Namespace      string `json:"namespace"`
}

// Summary statuses.
const (
	SummaryDisabled     = "disabled"
	SummaryInitializing = "initializing"
	SummaryReady        = "ready"
)

// StatusSummary is the status of every known local server.
type StatusSummary struct {
	Status     string                           `json:"status"`
	MCPServers map[string]DeploymentStatusEntry `json:"mcpServers"`
}

// Step names one stage of tearing down a bundle.
type Step string

const (
	StepDeployment    Step = "deployment"
	StepService       Step = "service"
	StepGenericSecret Step = "generic-secret"
	StepRegcred       Step = "registry-secrets"
)

// StepError reports which step of starting or stopping a server failed.
type StepError struct {
	ServerID string
	Step     Step
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("server %s: %s step failed: %v", e.ServerID, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
