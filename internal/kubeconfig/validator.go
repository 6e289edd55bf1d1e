package kubeconfig

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validation failure categories. Errors returned by Validate and
// ValidateBytes wrap exactly one of these.
var (
	ErrNotFound               = errors.New("kubeconfig file not found")
	ErrMalformed              = errors.New("malformed kubeconfig: could not parse")
	ErrClustersMissing        = errors.New("clusters section missing")
	ErrContextsMissing        = errors.New("contexts section missing")
	ErrUsersMissing           = errors.New("users section missing")
	ErrClusterEntryIncomplete = errors.New("cluster entry is missing required fields")
)

// Validate structurally checks the kubeconfig at path. An empty path is
// accepted, the caller then falls back to in-cluster or default resolution.
// No connection to the cluster is attempted.
func Validate(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to read kubeconfig %s: %w", path, err)
	}

	if err := ValidateBytes(data); err != nil {
		return fmt.Errorf("invalid kubeconfig %s: %w", path, err)
	}
	return nil
}

// ValidateBytes applies the same checks as Validate to an in-memory document.
func ValidateBytes(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	clusters, ok := doc["clusters"].([]interface{})
	if !ok || len(clusters) == 0 {
		return ErrClustersMissing
	}
	if doc["contexts"] == nil {
		return ErrContextsMissing
	}
	if doc["users"] == nil {
		return ErrUsersMissing
	}

	if !clusterEntryComplete(clusters[0]) {
		return ErrClusterEntryIncomplete
	}
	return nil
}

// clusterEntryComplete accepts both the kubeconfig form, where server is
// nested under "cluster", and a flat {name, server} entry.
func clusterEntryComplete(entry interface{}) bool {
	m, ok := entry.(map[string]interface{})
	if !ok {
		return false
	}
	if name, _ := m["name"].(string); name == "" {
		return false
	}
	if server, _ := m["server"].(string); server != "" {
		return true
	}
	nested, ok := m["cluster"].(map[string]interface{})
	if !ok {
		return false
	}
	server, _ := nested["server"].(string)
	return server != ""
}
