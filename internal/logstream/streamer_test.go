package logstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"kubemcp/internal/kube"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// pipeClient serves pods from a fixed list and hands out pipe-backed log
// streams that stay open until closed.
type pipeClient struct {
	kube.ResourceClient

	pods   []corev1.Pod
	mu     sync.Mutex
	opened map[string]*io.PipeWriter
	closed atomic.Int32
	opts   *corev1.PodLogOptions
}

type trackedReader struct {
	*io.PipeReader
	closed *atomic.Int32
	once   sync.Once
}

func (r *trackedReader) Close() error {
	r.once.Do(func() { r.closed.Add(1) })
	return r.PipeReader.Close()
}

func (c *pipeClient) ListPods(_ context.Context, selector labels.Selector) ([]corev1.Pod, error) {
	var out []corev1.Pod
	for _, p := range c.pods {
		if selector.Matches(labels.Set(p.Labels)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *pipeClient) StreamPodLogs(_ context.Context, podName string, opts *corev1.PodLogOptions) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	c.mu.Lock()
	if c.opened == nil {
		c.opened = map[string]*io.PipeWriter{}
	}
	c.opened[podName] = pw
	c.opts = opts
	c.mu.Unlock()
	return &trackedReader{PipeReader: pr, closed: &c.closed}, nil
}

func (c *pipeClient) writer(pod string) *io.PipeWriter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened[pod]
}

func pod(name, serverID string, phase corev1.PodPhase, created time.Time) corev1.Pod {
	return corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:              name,
			Namespace:         "mcp",
			Labels:            map[string]string{"app": "mcp-server", "mcp-server-id": serverID},
			CreationTimestamp: metav1.NewTime(created),
		},
		Status: corev1.PodStatus{Phase: phase},
	}
}

type countingGauge struct{ v atomic.Int32 }

func (g *countingGauge) Inc() { g.v.Add(1) }
func (g *countingGauge) Dec() { g.v.Add(-1) }

func TestStream_DisabledWritesNotice(t *testing.T) {
	s := NewStreamer(nil)
	var buf bytes.Buffer

	sub, err := s.Stream(context.Background(), "X", &buf, StreamOptions{Lines: 10})
	require.NoError(t, err)
	assert.Nil(t, sub)

	out := buf.String()
	assert.Contains(t, out, "Unable to stream logs")
	assert.Contains(t, out, "Kubernetes runtime is not configured on this instance.")
	assert.Contains(t, out, "mcp-server-id=X")
}

func TestStream_CopiesLogs(t *testing.T) {
	now := time.Now()
	c := &pipeClient{pods: []corev1.Pod{pod("p1", "s1", corev1.PodRunning, now)}}
	gauge := &countingGauge{}
	s := NewStreamer(c, WithGauge(gauge))
	sink := &syncBuffer{}

	sub, err := s.Stream(context.Background(), "s1", sink, StreamOptions{Lines: 50, Follow: true, SubscriberID: "client-1"})
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "client-1", sub.ID)
	assert.Equal(t, "p1", sub.PodName)
	assert.Equal(t, int64(50), *c.opts.TailLines)
	assert.True(t, c.opts.Follow)
	assert.Equal(t, int32(1), gauge.v.Load())

	_, err = c.writer("p1").Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return sink.String() == "hello\n" }, time.Second, 10*time.Millisecond)

	require.NoError(t, c.writer("p1").Close())
	<-sub.Done()
	assert.NoError(t, sub.Err())
	assert.Equal(t, 0, s.Active())
	assert.Equal(t, int32(0), gauge.v.Load())
}

func TestStream_PicksNewestRunningPod(t *testing.T) {
	now := time.Now()
	c := &pipeClient{pods: []corev1.Pod{
		pod("old", "s1", corev1.PodRunning, now.Add(-time.Hour)),
		pod("pending", "s1", corev1.PodPending, now.Add(time.Minute)),
		pod("new", "s1", corev1.PodRunning, now),
		pod("other", "s2", corev1.PodRunning, now.Add(time.Hour)),
	}}
	s := NewStreamer(c)

	sub, err := s.Stream(context.Background(), "s1", io.Discard, StreamOptions{})
	require.NoError(t, err)
	defer sub.Cancel()
	assert.Equal(t, "new", sub.PodName)
	assert.Nil(t, c.opts.TailLines)
}

func TestStream_NoRunningPod(t *testing.T) {
	c := &pipeClient{pods: []corev1.Pod{pod("p", "s1", corev1.PodPending, time.Now())}}
	s := NewStreamer(c)

	_, err := s.Stream(context.Background(), "s1", io.Discard, StreamOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRunningPod))
	assert.Contains(t, err.Error(), "mcp-server-id=s1")
}

func TestStream_ResubscribeReleasesPrevious(t *testing.T) {
	now := time.Now()
	c := &pipeClient{pods: []corev1.Pod{
		pod("p1", "s1", corev1.PodRunning, now),
		pod("p2", "s2", corev1.PodRunning, now),
	}}
	s := NewStreamer(c)

	first, err := s.Stream(context.Background(), "s1", io.Discard, StreamOptions{Follow: true, SubscriberID: "client"})
	require.NoError(t, err)

	second, err := s.Stream(context.Background(), "s2", io.Discard, StreamOptions{Follow: true, SubscriberID: "client"})
	require.NoError(t, err)
	defer second.Cancel()

	select {
	case <-first.Done():
	default:
		t.Fatal("previous subscription must be fully released before the new one is attached")
	}
	assert.Equal(t, int32(1), c.closed.Load())
	assert.Equal(t, 1, s.Active())
	assert.Equal(t, "p2", second.PodName)
}

// blockingSink stalls every write until released.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSink) Write(p []byte) (int, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return len(p), nil
}

func TestStream_BlockedSinkDoesNotHangResubscribe(t *testing.T) {
	now := time.Now()
	c := &pipeClient{pods: []corev1.Pod{
		pod("p1", "s1", corev1.PodRunning, now),
		pod("p2", "s2", corev1.PodRunning, now),
	}}
	s := NewStreamer(c, WithDrainTimeout(50*time.Millisecond))

	sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	first, err := s.Stream(context.Background(), "s1", sink, StreamOptions{Follow: true, SubscriberID: "client"})
	require.NoError(t, err)

	go func() { _, _ = c.writer("p1").Write([]byte("line\n")) }()
	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received the log line")
	}

	attached := make(chan *Subscription, 1)
	go func() {
		second, err := s.Stream(context.Background(), "s2", io.Discard, StreamOptions{Follow: true, SubscriberID: "client"})
		assert.NoError(t, err)
		attached <- second
	}()

	var second *Subscription
	select {
	case second = <-attached:
	case <-time.After(2 * time.Second):
		t.Fatal("resubscribe hung behind a blocked sink")
	}
	defer second.Cancel()

	// the old connection is closed even though its sink is still stuck
	assert.Equal(t, int32(1), c.closed.Load())
	assert.Equal(t, "p2", second.PodName)

	close(sink.release)
	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("first stream did not finish after the sink was released")
	}
}

func TestCancel(t *testing.T) {
	c := &pipeClient{pods: []corev1.Pod{pod("p1", "s1", corev1.PodRunning, time.Now())}}
	s := NewStreamer(c)

	sub, err := s.Stream(context.Background(), "s1", io.Discard, StreamOptions{Follow: true, SubscriberID: "a"})
	require.NoError(t, err)

	assert.True(t, s.Cancel("a"))
	assert.False(t, s.Cancel("a"))
	assert.NoError(t, sub.Err())
	sub.Cancel()
	assert.Equal(t, 0, s.Active())
}

func TestCancelAll(t *testing.T) {
	now := time.Now()
	c := &pipeClient{pods: []corev1.Pod{
		pod("p1", "s1", corev1.PodRunning, now),
		pod("p2", "s2", corev1.PodRunning, now),
	}}
	s := NewStreamer(c)

	a, err := s.Stream(context.Background(), "s1", io.Discard, StreamOptions{Follow: true})
	require.NoError(t, err)
	b, err := s.Stream(context.Background(), "s2", io.Discard, StreamOptions{Follow: true})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Active())

	s.CancelAll()
	<-a.Done()
	<-b.Done()
	assert.Equal(t, 0, s.Active())
}

func TestStream_ContextCancellationEndsStream(t *testing.T) {
	c := &pipeClient{pods: []corev1.Pod{pod("p1", "s1", corev1.PodRunning, time.Now())}}
	s := NewStreamer(c)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := s.Stream(ctx, "s1", io.Discard, StreamOptions{Follow: true})
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("stream did not end after its context was cancelled")
	}
	assert.NoError(t, sub.Err())
	assert.Equal(t, 0, s.Active())
}

func TestStream_WithFakeClientset(t *testing.T) {
	cs := k8sfake.NewSimpleClientset(&corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "p1", Namespace: "mcp", Labels: map[string]string{"mcp-server-id": "s1"}},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	})
	client := kube.NewClient(fake.NewClientBuilder().Build(), cs, "mcp", time.Second)
	s := NewStreamer(client)
	sink := &syncBuffer{}

	sub, err := s.Stream(context.Background(), "s1", sink, StreamOptions{Lines: 10})
	require.NoError(t, err)
	<-sub.Done()
	assert.Equal(t, "fake logs", sink.String())
}
