package inventory

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"kubemcp/internal/config"
	"kubemcp/internal/runtime"
	"kubemcp/internal/secrets"
	"kubemcp/pkg/logging"
)

// ErrServerNotFound is returned when an inventory has no server with the
// requested id.
var ErrServerNotFound = errors.New("server not found in inventory")

// Inventory lists installed MCP servers together with the catalog and
// secret data needed to start them.
type Inventory struct {
	Servers []runtime.ServerRecord `yaml:"servers"`
	Catalog map[string]CatalogItem `yaml:"catalog,omitempty"`
	// Secrets holds installation values keyed by secret id.
	Secrets map[string]map[string]string `yaml:"secrets,omitempty"`
}

// CatalogItem is the catalog entry a server was installed from.
type CatalogItem struct {
	Image string                    `yaml:"image,omitempty"`
	Env   []secrets.CatalogEnvEntry `yaml:"env,omitempty"`
}

// StartInput is everything StartServer needs for one server.
type StartInput struct {
	Record       runtime.ServerRecord
	SecretValues map[string]string
	CatalogEnv   []secrets.CatalogEnvEntry
}

// Load reads and validates an inventory file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory %s: %w", path, err)
	}
	inv, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid inventory %s: %w", path, err)
	}
	logging.Debug("Inventory", "Loaded %d servers from %s", len(inv.Servers), path)
	return inv, nil
}

// Parse decodes and validates an inventory document.
func Parse(data []byte) (*Inventory, error) {
	inv := &Inventory{}
	if err := yaml.Unmarshal(data, inv); err != nil {
		return nil, err
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// Validate checks that every server can be identified and started.
func (inv *Inventory) Validate() error {
	var errs config.ValidationErrors
	seen := make(map[string]bool, len(inv.Servers))

	for i, s := range inv.Servers {
		field := fmt.Sprintf("servers[%d]", i)
		if err := config.ValidateRequired(field+".id", s.ID, "server"); err != nil {
			errs = append(errs, err.(config.ValidationError))
			continue
		}
		if seen[s.ID] {
			errs.Add(field+".id", "is duplicated", s.ID)
		}
		seen[s.ID] = true

		if s.ServerType != "" {
			allowed := []string{string(runtime.ServerTypeLocal), string(runtime.ServerTypeRemote)}
			if err := config.ValidateOneOf(field+".serverType", string(s.ServerType), allowed); err != nil {
				errs = append(errs, err.(config.ValidationError))
			}
		}
		if s.Port < 0 || s.Port > 65535 {
			errs.Add(field+".port", "must be between 1 and 65535", s.Port)
		}
		if cred := s.RegistryCredential; cred != nil {
			if err := config.ValidateRequired(field+".registryCredential.registry", cred.Registry, "registry credential"); err != nil {
				errs = append(errs, err.(config.ValidationError))
			}
			if err := config.ValidateRequired(field+".registryCredential.username", cred.Username, "registry credential"); err != nil {
				errs = append(errs, err.(config.ValidationError))
			}
		}
		if s.SecretID != nil {
			if _, ok := inv.Secrets[*s.SecretID]; !ok {
				errs.Add(field+".secretId", "references an unknown secret", *s.SecretID)
			}
		}
	}

	if errs.HasErrors() {
		return config.FormatValidationError("inventory", "", errs)
	}
	return nil
}

// Server returns the server with the given id.
func (inv *Inventory) Server(id string) (runtime.ServerRecord, bool) {
	i := slices.IndexFunc(inv.Servers, func(s runtime.ServerRecord) bool { return s.ID == id })
	if i < 0 {
		return runtime.ServerRecord{}, false
	}
	return inv.Servers[i], true
}

// LocalServers returns the servers the runtime manages.
func (inv *Inventory) LocalServers() []runtime.ServerRecord {
	var out []runtime.ServerRecord
	for _, s := range inv.Servers {
		if s.IsLocal() {
			out = append(out, s)
		}
	}
	return out
}

// StartInput resolves the secret values and catalog environment of a
// server. A catalog image fills in a record without one.
func (inv *Inventory) StartInput(id string) (StartInput, error) {
	record, ok := inv.Server(id)
	if !ok {
		return StartInput{}, fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}

	in := StartInput{Record: record, SecretValues: map[string]string{}}
	if record.SecretID != nil {
		for k, v := range inv.Secrets[*record.SecretID] {
			in.SecretValues[k] = v
		}
	}
	if item, ok := inv.Catalog[record.CatalogID]; ok {
		in.CatalogEnv = item.Env
		if in.Record.Image == "" {
			in.Record.Image = item.Image
		}
	}
	return in, nil
}
