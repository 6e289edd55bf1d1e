package kube

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
)

const testNamespace = "mcp"

func newTestClient(t *testing.T, objs ...client.Object) *Client {
	t.Helper()
	cr := fake.NewClientBuilder().WithObjects(objs...).Build()
	return NewClient(cr, k8sfake.NewSimpleClientset(), testNamespace, time.Second)
}

func TestClient_SecretLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.CreateSecret(ctx, &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "s1", Labels: map[string]string{"app": "mcp-server", "type": "regcred"}},
		StringData: map[string]string{"k": "v"},
	}))
	require.NoError(t, c.CreateSecret(ctx, &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "s2", Labels: map[string]string{"app": "mcp-server", "type": "secret"}},
	}))

	got, err := c.GetSecret(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, testNamespace, got.Namespace)

	sel := labels.SelectorFromSet(labels.Set{"type": "regcred"})
	list, err := c.ListSecrets(ctx, sel)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s1", list[0].Name)

	require.NoError(t, c.PatchSecret(ctx, "s1", []byte(`{"metadata":{"labels":{"team-id":"team-a"}}}`)))
	got, err = c.GetSecret(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "team-a", got.Labels["team-id"])
	assert.Equal(t, "regcred", got.Labels["type"])

	require.NoError(t, c.DeleteSecret(ctx, "s1"))
	_, err = c.GetSecret(ctx, "s1")
	require.Error(t, err)
	assert.True(t, apierrors.IsNotFound(err))
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestClient_DeploymentAndService(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.CreateDeployment(ctx, &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "d1", Labels: map[string]string{"app": "mcp-server"}},
	}))
	require.NoError(t, c.CreateService(ctx, &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "d1"},
	}))

	deps, err := c.ListDeployments(ctx, labels.SelectorFromSet(labels.Set{"app": "mcp-server"}))
	require.NoError(t, err)
	assert.Len(t, deps, 1)

	_, err = c.GetService(ctx, "d1")
	require.NoError(t, err)

	require.NoError(t, c.DeleteDeployment(ctx, "d1"))
	require.NoError(t, c.DeleteService(ctx, "d1"))

	err = c.DeleteDeployment(ctx, "d1")
	assert.True(t, apierrors.IsNotFound(err))
}

func TestClient_TimeoutIsDistinctFromNotFound(t *testing.T) {
	cr := fake.NewClientBuilder().WithInterceptorFuncs(interceptor.Funcs{
		Delete: func(ctx context.Context, _ client.WithWatch, _ client.Object, _ ...client.DeleteOption) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}).Build()
	c := NewClient(cr, k8sfake.NewSimpleClientset(), testNamespace, 20*time.Millisecond)

	err := c.DeleteSecret(context.Background(), "slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, apierrors.IsNotFound(err))
}

func TestClient_DeleteSecretAtVersion(t *testing.T) {
	var got client.DeleteOptions
	cr := fake.NewClientBuilder().WithInterceptorFuncs(interceptor.Funcs{
		Delete: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.DeleteOption) error {
			got.ApplyOptions(opts)
			return c.Delete(ctx, obj, opts...)
		},
	}).Build()
	c := NewClient(cr, k8sfake.NewSimpleClientset(), testNamespace, time.Second)
	ctx := context.Background()

	require.NoError(t, c.CreateSecret(ctx, &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: "rc"}}))
	current, err := c.GetSecret(ctx, "rc")
	require.NoError(t, err)

	require.NoError(t, c.DeleteSecretAtVersion(ctx, "rc", current.ResourceVersion))
	require.NotNil(t, got.Preconditions)
	require.NotNil(t, got.Preconditions.ResourceVersion)
	assert.Equal(t, current.ResourceVersion, *got.Preconditions.ResourceVersion)

	_, err = c.GetSecret(ctx, "rc")
	assert.True(t, apierrors.IsNotFound(err))
}

func TestClient_DefaultTimeout(t *testing.T) {
	c := NewClient(fake.NewClientBuilder().Build(), k8sfake.NewSimpleClientset(), testNamespace, 0)
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestClient_PodsAndLogs(t *testing.T) {
	ctx := context.Background()
	cs := k8sfake.NewSimpleClientset(
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "p1", Namespace: testNamespace, Labels: map[string]string{"mcp-server-id": "a"}}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "p2", Namespace: testNamespace, Labels: map[string]string{"mcp-server-id": "b"}}},
	)
	c := NewClient(fake.NewClientBuilder().Build(), cs, testNamespace, time.Second)

	pods, err := c.ListPods(ctx, labels.SelectorFromSet(labels.Set{"mcp-server-id": "a"}))
	require.NoError(t, err)
	require.Len(t, pods, 1)
	assert.Equal(t, "p1", pods[0].Name)

	stream, err := c.StreamPodLogs(ctx, "p1", &corev1.PodLogOptions{})
	require.NoError(t, err)
	defer stream.Close()
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "fake logs", string(data))
}

func TestLoadRESTConfig(t *testing.T) {
	kubeconfig := `apiVersion: v1
kind: Config
clusters:
- name: dev
  cluster:
    server: https://127.0.0.1:6443
contexts:
- name: dev
  context:
    cluster: dev
    user: dev
current-context: dev
users:
- name: dev
  user:
    token: abc
`
	cfg, err := LoadRESTConfig(ConnectionOptions{Inline: kubeconfig})
	require.NoError(t, err)
	assert.Equal(t, "https://127.0.0.1:6443", cfg.Host)
	assert.Equal(t, "kubemcp", cfg.UserAgent)

	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(kubeconfig), 0o600))
	cfg, err = LoadRESTConfig(ConnectionOptions{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.BearerToken)

	_, err = LoadRESTConfig(ConnectionOptions{Inline: "clusters: ["})
	assert.Error(t, err)
}

func TestConnectionOptions_Source(t *testing.T) {
	assert.Equal(t, "inline kubeconfig", ConnectionOptions{Inline: "x", Path: "/p"}.Source())
	assert.Equal(t, "kubeconfig /p", ConnectionOptions{Path: "/p", InCluster: true}.Source())
	assert.Equal(t, "in-cluster service account", ConnectionOptions{InCluster: true}.Source())
	assert.Equal(t, "default kubeconfig loading rules", ConnectionOptions{}.Source())
}
