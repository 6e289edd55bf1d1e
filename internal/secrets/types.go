package secrets

import "time"

// EnvTypeSecret marks catalog environment entries holding secret values.
const EnvTypeSecret = "secret"

// CatalogEnvEntry is one environment variable declared by a catalog item.
type CatalogEnvEntry struct {
	Key                  string `yaml:"key" json:"key"`
	Type                 string `yaml:"type" json:"type"`
	PromptOnInstallation bool   `yaml:"promptOnInstallation" json:"promptOnInstallation"`
	Value                string `yaml:"value,omitempty" json:"value,omitempty"`
}

// RegistryCredential is a login for a private container registry.
type RegistryCredential struct {
	Registry string `yaml:"registry" json:"registry"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
	Email    string `yaml:"email,omitempty" json:"email,omitempty"`
}

// ListOptions scopes regcred listing. Without IsAdmin or a team the result
// is empty.
type ListOptions struct {
	IsAdmin bool
	TeamIDs []string
}

// RegcredInfo describes a regcred secret without its credential material.
type RegcredInfo struct {
	Name         string    `json:"name"`
	Namespace    string    `json:"namespace"`
	Registry     string    `json:"registry,omitempty"`
	ServerID     string    `json:"serverId,omitempty"`
	TeamID       string    `json:"teamId,omitempty"`
	ReferencedBy []string  `json:"referencedBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TeamAssignment pairs a server with the team that owns it.
type TeamAssignment struct {
	ServerID string
	TeamID   string
}

// BackfillResult summarizes a team label backfill.
type BackfillResult struct {
	Patched []string `json:"patched"`
	Skipped int      `json:"skipped"`
	Failed  []string `json:"failed,omitempty"`
}
