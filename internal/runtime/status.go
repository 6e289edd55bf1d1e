package runtime

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"kubemcp/internal/naming"
	"kubemcp/pkg/logging"
)

// Waiting reasons that will not resolve without intervention.
var fatalWaitingReasons = map[string]bool{
	"CrashLoopBackOff":           true,
	"ImagePullBackOff":           true,
	"ErrImagePull":               true,
	"CreateContainerConfigError": true,
	"InvalidImageName":           true,
}

// SetKnownServers replaces the servers the status summary reports on.
// Remote servers are ignored.
func (m *Manager) SetKnownServers(records []ServerRecord) {
	known := make(map[string]ServerRecord, len(records))
	for _, r := range records {
		if r.IsLocal() && r.ID != "" {
			known[r.ID] = r
		}
	}

	m.statusMu.Lock()
	m.known = known
	m.statusMu.Unlock()
}

// StatusSummary returns the status of every known server from the last
// snapshot. Known servers without a Deployment are reported as not_created.
func (m *Manager) StatusSummary() StatusSummary {
	enabled := m.IsEnabled()
	ns := m.Namespace()

	m.statusMu.RLock()
	defer m.statusMu.RUnlock()

	summary := StatusSummary{
		Status:     SummaryReady,
		MCPServers: make(map[string]DeploymentStatusEntry, len(m.known)),
	}
	switch {
	case !enabled:
		summary.Status = SummaryDisabled
	case m.snapshotAt.IsZero():
		summary.Status = SummaryInitializing
	}

	for id := range m.known {
		entry, ok := m.snapshot[id]
		if !ok || !enabled {
			entry = DeploymentStatusEntry{
				State:          StateNotCreated,
				ServerName:     id,
				DeploymentName: naming.DeploymentName(id),
				Namespace:      ns,
			}
		}
		summary.MCPServers[id] = entry
	}
	return summary
}

// SnapshotTime returns when the last status snapshot was taken.
func (m *Manager) SnapshotTime() time.Time {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.snapshotAt
}

// RefreshStatus takes a new snapshot of every managed Deployment.
// Concurrent callers share one snapshot. It does nothing while the runtime
// is disabled.
func (m *Manager) RefreshStatus(ctx context.Context) error {
	if !m.IsEnabled() {
		return nil
	}
	_, err, _ := m.refresh.Do("snapshot", func() (interface{}, error) {
		snapshot, err := m.takeSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		m.statusMu.Lock()
		m.snapshot = snapshot
		m.snapshotAt = time.Now()
		m.statusMu.Unlock()
		return nil, nil
	})
	return err
}

func (m *Manager) takeSnapshot(ctx context.Context) (map[string]DeploymentStatusEntry, error) {
	c := m.current()
	if c == nil {
		return nil, ErrRuntimeDisabled
	}

	deployments, err := c.client.ListDeployments(ctx, naming.AppSelector())
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	pods, err := c.client.ListPods(ctx, naming.AppSelector())
	if err != nil {
		return nil, fmt.Errorf("list pods: %w", err)
	}

	podsByServer := make(map[string][]corev1.Pod)
	for _, p := range pods {
		id := p.Labels[naming.LabelServerID]
		podsByServer[id] = append(podsByServer[id], p)
	}

	snapshot := make(map[string]DeploymentStatusEntry, len(deployments))
	for i := range deployments {
		d := &deployments[i]
		id := naming.ServerIDFromObject(d.Labels, d.Annotations)
		if id == "" {
			continue
		}
		snapshot[id] = synthesize(d, podsByServer[naming.LabelValue(id)], m.cfg.Runtime.ToolsDiscovery)
	}
	return snapshot, nil
}

// synthesize derives a server's state from its Deployment and pods.
//
// A Deployment with all desired replicas ready is running, or still
// discovering tools when discovery is enabled and not yet annotated as done.
// Otherwise a pod stuck in a fatal waiting state or a failed rollout is an
// error, and anything else is pending.
func synthesize(d *appsv1.Deployment, pods []corev1.Pod, toolsDiscovery bool) DeploymentStatusEntry {
	entry := DeploymentStatusEntry{
		ServerName:     naming.ServerIDFromObject(d.Labels, d.Annotations),
		DeploymentName: d.Name,
		Namespace:      d.Namespace,
	}

	desired := int32(1)
	if d.Spec.Replicas != nil {
		desired = *d.Spec.Replicas
	}
	ready := d.Status.ReadyReplicas
	entry.Message = fmt.Sprintf("%d/%d replicas ready", ready, desired)

	if desired > 0 && ready >= desired {
		entry.State = StateRunning
		if toolsDiscovery && d.Annotations[naming.AnnotationToolsDiscovered] != "true" {
			entry.State = StateDiscoveringTools
		}
		return entry
	}

	if reason, msg, ok := podFailure(pods); ok {
		entry.State = StateError
		entry.Error = reason
		if msg != "" {
			entry.Error = reason + ": " + msg
		}
		return entry
	}

	for _, cond := range d.Status.Conditions {
		if cond.Type == appsv1.DeploymentProgressing && cond.Status == corev1.ConditionFalse {
			entry.State = StateError
			entry.Error = cond.Reason
			if cond.Message != "" {
				entry.Error = cond.Reason + ": " + cond.Message
			}
			return entry
		}
	}

	entry.State = StatePending
	if desired == 0 {
		entry.Message = "scaled to zero replicas"
	}
	return entry
}

func podFailure(pods []corev1.Pod) (reason, message string, ok bool) {
	for _, p := range pods {
		if p.DeletionTimestamp != nil {
			continue
		}
		statuses := append(append([]corev1.ContainerStatus{}, p.Status.InitContainerStatuses...), p.Status.ContainerStatuses...)
		for _, cs := range statuses {
			if w := cs.State.Waiting; w != nil && fatalWaitingReasons[w.Reason] {
				return w.Reason, w.Message, true
			}
		}
	}
	return "", "", false
}

// loop is a cancellable background goroutine.
type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startLoop(ctx context.Context, interval time.Duration, fn func(context.Context)) *loop {
	ctx, cancel := context.WithCancel(ctx)
	l := &loop{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(l.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
	return l
}

func (l *loop) stop() {
	l.cancel()
	<-l.done
}

func (m *Manager) pollInterval(interval time.Duration) time.Duration {
	if interval > 0 {
		return interval
	}
	if m.cfg.Status.PollInterval > 0 {
		return m.cfg.Status.PollInterval
	}
	return 5 * time.Second
}

// StartStatusPoller refreshes the snapshot every interval until ctx ends or
// the manager shuts down. Starting it again replaces the running poller.
func (m *Manager) StartStatusPoller(ctx context.Context, interval time.Duration) {
	interval = m.pollInterval(interval)
	l := startLoop(ctx, interval, func(ctx context.Context) {
		if !m.IsEnabled() {
			return
		}
		if err := m.RefreshStatus(ctx); err != nil && ctx.Err() == nil {
			logging.Warn(subsystem, "Status refresh failed: %v", err)
		}
	})

	m.loopsMu.Lock()
	prev := m.poller
	m.poller = l
	m.loopsMu.Unlock()

	if prev != nil {
		prev.stop()
	}
	logging.Debug(subsystem, "Status poller running every %s", interval)
}

// SubscribeStatus calls fn with the status summary right away and then
// every interval. A subscriber has at most one loop: subscribing again
// replaces the previous one. An empty subscriberID gets a fresh id, which
// is returned.
func (m *Manager) SubscribeStatus(ctx context.Context, subscriberID string, interval time.Duration, fn func(StatusSummary)) string {
	if subscriberID == "" {
		subscriberID = uuid.NewString()
	}
	m.UnsubscribeStatus(subscriberID)

	l := startLoop(ctx, m.pollInterval(interval), func(context.Context) {
		fn(m.StatusSummary())
	})

	m.loopsMu.Lock()
	prev := m.statusSubs[subscriberID]
	m.statusSubs[subscriberID] = l
	m.loopsMu.Unlock()

	if prev != nil {
		prev.stop()
	}
	return subscriberID
}

// UnsubscribeStatus stops the subscriber's loop and reports whether one
// was running.
func (m *Manager) UnsubscribeStatus(subscriberID string) bool {
	m.loopsMu.Lock()
	l := m.statusSubs[subscriberID]
	delete(m.statusSubs, subscriberID)
	m.loopsMu.Unlock()

	if l == nil {
		return false
	}
	l.stop()
	return true
}

// StatusSubscribers returns the ids with an active status loop.
func (m *Manager) StatusSubscribers() []string {
	m.loopsMu.Lock()
	defer m.loopsMu.Unlock()
	return slices.Sorted(maps.Keys(m.statusSubs))
}
