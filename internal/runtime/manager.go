package runtime

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"kubemcp/internal/bundle"
	"kubemcp/internal/config"
	"kubemcp/internal/keylock"
	"kubemcp/internal/kube"
	"kubemcp/internal/kubeconfig"
	"kubemcp/internal/logstream"
	"kubemcp/internal/metrics"
	"kubemcp/internal/naming"
	"kubemcp/internal/secrets"
	"kubemcp/pkg/logging"
)

const subsystem = "RuntimeManager"

// Option configures a Manager.
type Option func(*Manager)

// WithClient makes Initialize use client instead of building one from the
// kubeconfig settings.
func WithClient(client kube.ResourceClient) Option {
	return func(m *Manager) { m.injected = client }
}

// WithMetrics records operations and active streams in mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// components are the cluster-facing collaborators of an enabled manager.
type components struct {
	client      kube.ResourceClient
	provisioner *bundle.Provisioner
	secrets     *secrets.Coordinator
	streamer    *logstream.Streamer
}

// Manager runs installed MCP servers as Deployments on a Kubernetes cluster.
//
// Until Initialize succeeds the manager is disabled: read operations return
// empty results and mutating operations log a warning and do nothing.
type Manager struct {
	cfg      config.Config
	injected kube.ResourceClient
	metrics  *metrics.Metrics

	mu    sync.RWMutex
	comps *components

	bundlesMu sync.RWMutex
	bundles   map[string]bundle.Bundle

	locks keylock.Mutex

	statusMu   sync.RWMutex
	known      map[string]ServerRecord
	snapshot   map[string]DeploymentStatusEntry
	snapshotAt time.Time
	refresh    singleflight.Group

	loopsMu    sync.Mutex
	poller     *loop
	statusSubs map[string]*loop
}

// New returns a disabled manager. Call Initialize to connect it.
func New(cfg config.Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:        cfg,
		bundles:    make(map[string]bundle.Bundle),
		known:      make(map[string]ServerRecord),
		statusSubs: make(map[string]*loop),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize connects the manager to the cluster and rebuilds the bundle
// index from the Deployments already running there.
//
// A missing or invalid connection leaves the manager disabled rather than
// failing; the returned error only says why.
func (m *Manager) Initialize(ctx context.Context) error {
	client := m.injected
	if client == nil {
		c, err := m.connect()
		if err != nil {
			m.setComponents(nil)
			logging.Warn(subsystem, "Kubernetes runtime disabled: %v", err)
			return err
		}
		client = c
	}

	m.setComponents(m.newComponents(client))
	logging.Info(subsystem, "Kubernetes runtime enabled in namespace %s", client.Namespace())

	if n, err := m.Rehydrate(ctx); err != nil {
		logging.Warn(subsystem, "Failed to rebuild bundle index: %v", err)
	} else if n > 0 {
		logging.Info(subsystem, "Recovered %d MCP server bundles from the cluster", n)
	}
	return nil
}

func (m *Manager) connect() (kube.ResourceClient, error) {
	kcfg := m.cfg.Kubernetes
	opts := kube.ConnectionOptions{
		Inline:    kcfg.KubeconfigInline,
		Path:      kcfg.Kubeconfig,
		InCluster: kcfg.InCluster,
	}

	switch {
	case opts.Inline != "":
		if err := kubeconfig.ValidateBytes([]byte(opts.Inline)); err != nil {
			return nil, fmt.Errorf("inline kubeconfig: %w", err)
		}
	case opts.Path != "":
		if err := kubeconfig.Validate(opts.Path); err != nil {
			return nil, err
		}
	}

	restCfg, err := kube.LoadRESTConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("load cluster config from %s: %w", opts.Source(), err)
	}
	return kube.NewClientFromConfig(restCfg, kcfg.Namespace, m.cfg.Timeouts.Request)
}

func (m *Manager) newComponents(client kube.ResourceClient) *components {
	var streamOpts []logstream.Option
	if m.metrics != nil {
		streamOpts = append(streamOpts, logstream.WithGauge(m.metrics.LogStreamsActive))
	}
	return &components{
		client:      client,
		provisioner: bundle.NewProvisioner(client),
		secrets:     secrets.NewCoordinator(client),
		streamer:    logstream.NewStreamer(client, streamOpts...),
	}
}

// setComponents swaps the cluster collaborators and releases the log
// streams of the previous ones.
func (m *Manager) setComponents(c *components) {
	m.mu.Lock()
	prev := m.comps
	m.comps = c
	m.mu.Unlock()

	if prev != nil {
		prev.streamer.CancelAll()
	}
}

func (m *Manager) current() *components {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.comps
}

// IsEnabled reports whether the manager has a cluster connection.
func (m *Manager) IsEnabled() bool {
	return m.current() != nil
}

// Namespace returns the namespace servers run in.
func (m *Manager) Namespace() string {
	if c := m.current(); c != nil {
		return c.client.Namespace()
	}
	return m.cfg.Kubernetes.Namespace
}

// Reload reconnects with the current settings, e.g. after the kubeconfig
// changed on disk. Active log streams are closed.
func (m *Manager) Reload(ctx context.Context) error {
	logging.Info(subsystem, "Reloading Kubernetes connection")
	return m.Initialize(ctx)
}

// Shutdown stops background loops and log streams and disables the manager.
// Cluster objects are left running.
func (m *Manager) Shutdown() {
	m.loopsMu.Lock()
	loops := slices.Collect(maps.Values(m.statusSubs))
	clear(m.statusSubs)
	if m.poller != nil {
		loops = append(loops, m.poller)
		m.poller = nil
	}
	m.loopsMu.Unlock()

	for _, l := range loops {
		l.stop()
	}
	m.setComponents(nil)
	logging.Info(subsystem, "Kubernetes runtime shut down")
}

// Rehydrate adds a bundle for every managed Deployment in the namespace that
// is not indexed yet, and returns how many were added.
func (m *Manager) Rehydrate(ctx context.Context) (int, error) {
	c := m.current()
	if c == nil {
		return 0, nil
	}

	deployments, err := c.client.ListDeployments(ctx, naming.AppSelector())
	if err != nil {
		return 0, fmt.Errorf("list managed deployments: %w", err)
	}

	added := 0
	for _, d := range deployments {
		id := naming.ServerIDFromObject(d.Labels, d.Annotations)
		if id == "" {
			continue
		}
		b := bundle.For(id, c.client.Namespace())
		for _, ref := range d.Spec.Template.Spec.ImagePullSecrets {
			b = b.WithRegcred(ref.Name)
		}
		if m.registerIfAbsent(b) {
			added++
		}
	}
	return added, nil
}

// Bundles returns the indexed bundles sorted by server id.
func (m *Manager) Bundles() []bundle.Bundle {
	m.bundlesMu.RLock()
	out := slices.Collect(maps.Values(m.bundles))
	m.bundlesMu.RUnlock()

	slices.SortFunc(out, func(a, b bundle.Bundle) int {
		return cmp.Compare(a.ServerID, b.ServerID)
	})
	return out
}

// Bundle returns the indexed bundle for serverID.
func (m *Manager) Bundle(serverID string) (bundle.Bundle, bool) {
	m.bundlesMu.RLock()
	defer m.bundlesMu.RUnlock()
	b, ok := m.bundles[serverID]
	return b, ok
}

func (m *Manager) register(b bundle.Bundle) {
	m.bundlesMu.Lock()
	m.bundles[b.ServerID] = b
	n := len(m.bundles)
	m.bundlesMu.Unlock()
	m.metrics.SetActiveBundles(n)
}

func (m *Manager) registerIfAbsent(b bundle.Bundle) bool {
	m.bundlesMu.Lock()
	_, exists := m.bundles[b.ServerID]
	if !exists {
		m.bundles[b.ServerID] = b
	}
	n := len(m.bundles)
	m.bundlesMu.Unlock()
	m.metrics.SetActiveBundles(n)
	return !exists
}

func (m *Manager) unregister(serverID string) {
	m.bundlesMu.Lock()
	delete(m.bundles, serverID)
	n := len(m.bundles)
	m.bundlesMu.Unlock()
	m.metrics.SetActiveBundles(n)
}
