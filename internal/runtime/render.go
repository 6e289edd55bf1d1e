package runtime

import (
	"errors"

	"sigs.k8s.io/controller-runtime/pkg/client"

	"kubemcp/internal/bundle"
	"kubemcp/internal/secrets"
)

// Manifests returns the objects StartServer would create for record, in
// creation order, without contacting the cluster.
func (m *Manager) Manifests(record ServerRecord, secretValues map[string]string, catalogEnv []secrets.CatalogEnvEntry) ([]client.Object, error) {
	if !record.IsLocal() {
		return nil, errors.New("remote servers have no cluster objects")
	}
	if record.ID == "" {
		return nil, errors.New("server id is required")
	}

	b := bundle.For(record.ID, m.Namespace())
	objs := []client.Object{
		secrets.BuildGenericSecret(b.SecretName, b.Namespace, record.ID, secrets.MergeSecretValues(secretValues, catalogEnv)),
	}

	if cred := record.RegistryCredential; cred != nil {
		regcred, err := secrets.BuildRegcred(b.Namespace, *cred, record.ID, record.Team())
		if err != nil {
			return nil, err
		}
		objs = append(objs, regcred)
		b = b.WithRegcred(regcred.Name)
	}

	spec := m.workloadSpec(record)
	return append(objs, bundle.BuildService(b, spec), bundle.BuildDeployment(b, spec)), nil
}
