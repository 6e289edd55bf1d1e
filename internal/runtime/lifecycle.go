package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"

	"kubemcp/internal/bundle"
	"kubemcp/internal/naming"
	"kubemcp/internal/secrets"
	"kubemcp/pkg/logging"
)

// stopAllConcurrency bounds how many servers StopAll tears down at once.
const stopAllConcurrency = 4

// StartServer provisions the bundle of a local server: its generic secret,
// its regcred when the record carries registry credentials, its Service and
// its Deployment. Objects that already exist are kept, so starting a running
// server is a no-op. Remote servers are ignored, and so is every server
// while the runtime is disabled.
//
// The bundle is indexed before the first object is created, so a server
// that failed half way can still be stopped.
func (m *Manager) StartServer(ctx context.Context, record ServerRecord, secretValues map[string]string, catalogEnv []secrets.CatalogEnvEntry) (err error) {
	if !record.IsLocal() {
		logging.Debug(subsystem, "Skipping remote server %s", record.ID)
		return nil
	}
	if record.ID == "" {
		return errors.New("server id is required")
	}

	c := m.current()
	if c == nil {
		logging.Warn(subsystem, "Kubernetes runtime is not configured, not starting MCP server %s", record.ID)
		return nil
	}
	defer func() { m.metrics.ObserveOperation("start", err) }()

	unlock := m.locks.Lock(record.ID)
	defer unlock()

	b, ok := m.Bundle(record.ID)
	if !ok {
		b = bundle.For(record.ID, c.client.Namespace())
	}
	m.register(b)

	data := secrets.MergeSecretValues(secretValues, catalogEnv)
	if err := c.secrets.EnsureGenericSecret(ctx, b.SecretName, record.ID, data); err != nil {
		return &StepError{ServerID: record.ID, Step: StepGenericSecret, Err: err}
	}

	if cred := record.RegistryCredential; cred != nil {
		name, err := c.secrets.EnsureRegcred(ctx, *cred, record.ID, record.Team())
		if err != nil {
			return &StepError{ServerID: record.ID, Step: StepRegcred, Err: err}
		}
		b = b.WithRegcred(name)
		m.register(b)
	}

	spec := m.workloadSpec(record)
	if _, err := c.provisioner.EnsureService(ctx, bundle.BuildService(b, spec)); err != nil {
		return &StepError{ServerID: record.ID, Step: StepService, Err: err}
	}
	created, err := c.provisioner.EnsureDeployment(ctx, bundle.BuildDeployment(b, spec))
	if err != nil {
		return &StepError{ServerID: record.ID, Step: StepDeployment, Err: err}
	}

	if created {
		logging.Info(subsystem, "Started MCP server %s as %s/%s", record.ID, b.Namespace, b.DeploymentName)
	} else {
		logging.Debug(subsystem, "MCP server %s already running", record.ID)
	}
	return nil
}

func (m *Manager) workloadSpec(record ServerRecord) bundle.WorkloadSpec {
	rt := m.cfg.Runtime
	spec := bundle.WorkloadSpec{
		Owner: naming.Owner{
			ServerID:  record.ID,
			CatalogID: record.CatalogID,
			OwnerID:   record.OwnerID,
			TeamID:    record.Team(),
		},
		Image:           rt.Image,
		Command:         record.Command,
		Args:            record.Args,
		ContainerPort:   rt.ContainerPort,
		ServicePort:     rt.ServicePort,
		ImagePullPolicy: corev1.PullPolicy(rt.ImagePullPolicy),
	}
	if record.Image != "" {
		spec.Image = record.Image
	}
	if record.Port > 0 {
		spec.ContainerPort = record.Port
	}
	return spec
}

// StopServer tears down the bundle of serverID in order: Deployment,
// Service, generic secret, then its references on shared regcreds. The
// first failing step aborts the teardown with a *StepError and the bundle
// stays indexed so the stop can be retried. Unknown ids are a no-op, as is
// any stop while the runtime is disabled.
func (m *Manager) StopServer(ctx context.Context, serverID string) (err error) {
	unlock := m.locks.Lock(serverID)
	defer unlock()

	b, ok := m.Bundle(serverID)
	if !ok {
		logging.Debug(subsystem, "No bundle registered for server %s, nothing to stop", serverID)
		return nil
	}

	c := m.current()
	if c == nil {
		logging.Warn(subsystem, "Kubernetes runtime is not configured, MCP server %s stays registered until it can be stopped", serverID)
		return nil
	}
	defer func() { m.metrics.ObserveOperation("stop", err) }()

	steps := []struct {
		step Step
		run  func(context.Context) error
	}{
		{StepDeployment, func(ctx context.Context) error { return c.provisioner.DeleteDeployment(ctx, b) }},
		{StepService, func(ctx context.Context) error { return c.provisioner.DeleteService(ctx, b) }},
		{StepGenericSecret, func(ctx context.Context) error { return c.secrets.DeleteGenericSecret(ctx, b.SecretName) }},
		{StepRegcred, func(ctx context.Context) error { return c.secrets.ReleaseRegcreds(ctx, serverID) }},
	}

	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			logging.Error(subsystem, err, "Stopping MCP server %s failed at step %s", serverID, s.step)
			return &StepError{ServerID: serverID, Step: s.step, Err: err}
		}
		logging.Debug(subsystem, "Stopped %s of MCP server %s", s.step, serverID)
	}

	m.unregister(serverID)
	logging.Info(subsystem, "Stopped MCP server %s", serverID)
	return nil
}

// StopAll stops every indexed server. Servers are torn down independently;
// the returned error joins every failure.
func (m *Manager) StopAll(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(stopAllConcurrency)

	for _, b := range m.Bundles() {
		g.Go(func() error {
			if err := m.StopServer(ctx, b.ServerID); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("failed to stop %d servers: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
