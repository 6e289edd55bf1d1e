package logstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"

	"kubemcp/internal/kube"
	"kubemcp/internal/naming"
	"kubemcp/pkg/logging"
)

// ErrNoRunningPod is returned when a server has no running pod to attach to.
var ErrNoRunningPod = errors.New("no running pod")

// StreamOptions controls a log stream.
type StreamOptions struct {
	// Lines is the number of existing lines to send first. Zero sends the
	// whole log.
	Lines int64
	// Follow keeps the stream open for new lines.
	Follow bool
	// SubscriberID identifies the consumer. A consumer has at most one
	// active stream: starting another cancels the previous one first.
	// Empty gets a fresh id.
	SubscriberID string
}

// DefaultDrainTimeout bounds how long Cancel waits for a pending sink write
// after the connection has been closed.
const DefaultDrainTimeout = 5 * time.Second

// Gauge tracks the number of active streams. prometheus.Gauge satisfies it.
type Gauge interface {
	Inc()
	Dec()
}

// Option configures a Streamer.
type Option func(*Streamer)

// WithGauge reports active streams to g.
func WithGauge(g Gauge) Option {
	return func(s *Streamer) { s.gauge = g }
}

// WithDrainTimeout sets how long Cancel waits for a blocked sink.
func WithDrainTimeout(d time.Duration) Option {
	return func(s *Streamer) { s.drainTimeout = d }
}

// Streamer attaches log tails to MCP server pods.
//
// Sinks should not block for long. A cancelled stream's connection is always
// closed at once, but a write already in progress keeps its goroutine alive
// until the sink returns; Cancel stops waiting for it after the drain
// timeout.
type Streamer struct {
	client       kube.ResourceClient
	gauge        Gauge
	drainTimeout time.Duration

	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewStreamer returns a Streamer. A nil client yields a streamer that only
// writes the disabled notice.
func NewStreamer(client kube.ResourceClient, opts ...Option) *Streamer {
	s := &Streamer{
		client:       client,
		drainTimeout: DefaultDrainTimeout,
		subs:         make(map[string]*Subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream copies the logs of serverID's running pod to sink until the
// returned subscription is cancelled, ctx ends or the log ends.
//
// Without a cluster client it writes the disabled notice to sink and returns
// a nil subscription and no error.
func (s *Streamer) Stream(ctx context.Context, serverID string, sink io.Writer, opts StreamOptions) (*Subscription, error) {
	if s.client == nil {
		return nil, WriteDisabledNotice(sink, serverID)
	}

	subscriberID := opts.SubscriberID
	if subscriberID == "" {
		subscriberID = uuid.NewString()
	}

	// Release the previous stream before a new connection is opened.
	s.Cancel(subscriberID)

	pod, err := s.selectPod(ctx, serverID)
	if err != nil {
		return nil, err
	}

	podOpts := &corev1.PodLogOptions{Follow: opts.Follow}
	if opts.Lines > 0 {
		podOpts.TailLines = ptr.To(opts.Lines)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := s.client.StreamPodLogs(streamCtx, pod.Name, podOpts)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		ID:       subscriberID,
		ServerID: serverID,
		PodName:  pod.Name,
		cancel:       cancel,
		stream:       stream,
		done:         make(chan struct{}),
		drainTimeout: s.drainTimeout,
	}
	s.register(sub)

	go s.pump(streamCtx, sub, sink)

	logging.Debug("LogStreamer", "Subscriber %s attached to pod %s for server %s", subscriberID, pod.Name, serverID)
	return sub, nil
}

// register stores sub, cancelling any stream a concurrent call attached for
// the same subscriber in the meantime.
func (s *Streamer) register(sub *Subscription) {
	for {
		s.mu.Lock()
		existing := s.subs[sub.ID]
		if existing == nil {
			s.subs[sub.ID] = sub
			s.mu.Unlock()
			if s.gauge != nil {
				s.gauge.Inc()
			}
			return
		}
		delete(s.subs, sub.ID)
		s.mu.Unlock()
		existing.Cancel()
	}
}

func (s *Streamer) pump(ctx context.Context, sub *Subscription, sink io.Writer) {
	defer close(sub.done)
	defer s.unregister(sub)

	stop := context.AfterFunc(ctx, func() { sub.stream.Close() })
	defer stop()

	_, err := io.Copy(sink, sub.stream)
	if err != nil && ctx.Err() == nil {
		sub.err = fmt.Errorf("log stream for server %s: %w", sub.ServerID, err)
		logging.Warn("LogStreamer", "Log stream for pod %s ended with error: %v", sub.PodName, err)
	}
	sub.stream.Close()
}

func (s *Streamer) unregister(sub *Subscription) {
	s.mu.Lock()
	if s.subs[sub.ID] == sub {
		delete(s.subs, sub.ID)
	}
	s.mu.Unlock()
	if s.gauge != nil {
		s.gauge.Dec()
	}
}

// Cancel stops the subscriber's stream, if any, and waits until its
// connection is released. It reports whether a stream was active.
func (s *Streamer) Cancel(subscriberID string) bool {
	s.mu.Lock()
	sub := s.subs[subscriberID]
	delete(s.subs, subscriberID)
	s.mu.Unlock()

	if sub == nil {
		return false
	}
	sub.Cancel()
	return true
}

// CancelAll stops every active stream.
func (s *Streamer) CancelAll() {
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for id, sub := range s.subs {
		subs = append(subs, sub)
		delete(s.subs, id)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

// Active returns the number of active streams.
func (s *Streamer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// selectPod picks the newest running pod of serverID.
func (s *Streamer) selectPod(ctx context.Context, serverID string) (*corev1.Pod, error) {
	pods, err := s.client.ListPods(ctx, naming.ServerSelector(serverID))
	if err != nil {
		return nil, fmt.Errorf("find pods for server %s: %w", serverID, err)
	}

	running := slices.DeleteFunc(pods, func(p corev1.Pod) bool {
		return p.Status.Phase != corev1.PodRunning || p.DeletionTimestamp != nil
	})
	if len(running) == 0 {
		return nil, fmt.Errorf("%w for server %s (selector %s)", ErrNoRunningPod, serverID, naming.ServerSelectorString(serverID))
	}

	slices.SortFunc(running, func(a, b corev1.Pod) int {
		return b.CreationTimestamp.Time.Compare(a.CreationTimestamp.Time)
	})
	return &running[0], nil
}

// WriteDisabledNotice explains to a log consumer why no logs are available.
func WriteDisabledNotice(w io.Writer, serverID string) error {
	_, err := fmt.Fprintf(w, "Unable to stream logs for MCP server %s. Kubernetes runtime is not configured on this instance. Pod selector: %s\n",
		serverID, naming.ServerSelectorString(serverID))
	return err
}
