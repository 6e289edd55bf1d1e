package secrets

import "maps"

// MergeSecretValues returns the generic secret content for an installation:
// the installation's own values plus every catalog entry of type secret that
// is not prompted for and has a value. Installation values always win.
func MergeSecretValues(installation map[string]string, env []CatalogEnvEntry) map[string]string {
	merged := make(map[string]string, len(installation)+len(env))
	maps.Copy(merged, installation)

	for _, entry := range env {
		if entry.Key == "" || entry.Type != EnvTypeSecret || entry.PromptOnInstallation || entry.Value == "" {
			continue
		}
		if _, exists := merged[entry.Key]; exists {
			continue
		}
		merged[entry.Key] = entry.Value
	}
	return merged
}
