package bundle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"kubemcp/internal/kube"
	"kubemcp/internal/naming"
)

const testNamespace = "mcp"

func testSpec() WorkloadSpec {
	return WorkloadSpec{
		Owner:           naming.Owner{ServerID: "srv-1", CatalogID: "cat-1", OwnerID: "user-1", TeamID: "team-a"},
		Image:           "ghcr.io/example/mcp:1.0.0",
		Args:            []string{"--port", "8080"},
		ContainerPort:   8080,
		ServicePort:     80,
		ImagePullPolicy: corev1.PullIfNotPresent,
	}
}

func TestFor(t *testing.T) {
	b := For("srv-1", testNamespace)
	assert.Equal(t, "srv-1", b.ServerID)
	assert.Equal(t, testNamespace, b.Namespace)
	assert.Equal(t, "mcp-server-srv-1", b.DeploymentName)
	assert.Equal(t, "mcp-server-srv-1", b.ServiceName)
	assert.Equal(t, "mcp-server-env-srv-1", b.SecretName)
	assert.Equal(t, b, For("srv-1", testNamespace))
}

func TestWithRegcred(t *testing.T) {
	b := For("srv-1", testNamespace)
	b2 := b.WithRegcred("mcp-regcred-a").WithRegcred("mcp-regcred-a").WithRegcred("")
	assert.Equal(t, []string{"mcp-regcred-a"}, b2.RegcredNames)
	assert.Empty(t, b.RegcredNames, "original must not change")
}

func TestBuildDeployment(t *testing.T) {
	b := For("srv-1", testNamespace).WithRegcred("mcp-regcred-a")
	d := BuildDeployment(b, testSpec())

	assert.Equal(t, b.DeploymentName, d.Name)
	assert.Equal(t, testNamespace, d.Namespace)
	assert.Equal(t, int32(1), *d.Spec.Replicas)
	assert.Equal(t, map[string]string{"app": "mcp-server", "mcp-server-id": "srv-1"}, d.Spec.Selector.MatchLabels)
	assert.Equal(t, "team-a", d.Labels["team-id"])
	assert.Equal(t, "srv-1", d.Annotations[naming.AnnotationServerID])

	for k, v := range d.Spec.Selector.MatchLabels {
		assert.Equal(t, v, d.Spec.Template.Labels[k], "template must match selector")
	}

	pod := d.Spec.Template.Spec
	require.Len(t, pod.Containers, 1)
	c := pod.Containers[0]
	assert.Equal(t, "ghcr.io/example/mcp:1.0.0", c.Image)
	assert.Equal(t, []string{"--port", "8080"}, c.Args)
	assert.Equal(t, int32(8080), c.Ports[0].ContainerPort)
	require.Len(t, c.EnvFrom, 1)
	assert.Equal(t, b.SecretName, c.EnvFrom[0].SecretRef.Name)
	assert.Equal(t, []corev1.LocalObjectReference{{Name: "mcp-regcred-a"}}, pod.ImagePullSecrets)
}

func TestBuildService(t *testing.T) {
	b := For("srv-1", testNamespace)
	svc := BuildService(b, testSpec())

	assert.Equal(t, b.ServiceName, svc.Name)
	assert.Equal(t, corev1.ServiceTypeClusterIP, svc.Spec.Type)
	assert.Equal(t, map[string]string{"app": "mcp-server", "mcp-server-id": "srv-1"}, svc.Spec.Selector)
	require.Len(t, svc.Spec.Ports, 1)
	assert.Equal(t, int32(80), svc.Spec.Ports[0].Port)
	assert.Equal(t, intstr.FromString("http"), svc.Spec.Ports[0].TargetPort)
}

func TestProvisioner_EnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	var creates int
	cr := fake.NewClientBuilder().WithInterceptorFuncs(interceptor.Funcs{
		Create: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.CreateOption) error {
			creates++
			return c.Create(ctx, obj, opts...)
		},
	}).Build()
	p := NewProvisioner(kube.NewClient(cr, k8sfake.NewSimpleClientset(), testNamespace, time.Second))

	b := For("srv-1", testNamespace)

	created, err := p.EnsureService(ctx, BuildService(b, testSpec()))
	require.NoError(t, err)
	assert.True(t, created)
	created, err = p.EnsureDeployment(ctx, BuildDeployment(b, testSpec()))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = p.EnsureService(ctx, BuildService(b, testSpec()))
	require.NoError(t, err)
	assert.False(t, created)
	created, err = p.EnsureDeployment(ctx, BuildDeployment(b, testSpec()))
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 2, creates)
}

func TestProvisioner_DeleteIgnoresNotFound(t *testing.T) {
	ctx := context.Background()
	b := For("srv-1", testNamespace)
	existing := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: b.DeploymentName, Namespace: testNamespace}}
	cr := fake.NewClientBuilder().WithObjects(existing).Build()
	p := NewProvisioner(kube.NewClient(cr, k8sfake.NewSimpleClientset(), testNamespace, time.Second))

	require.NoError(t, p.DeleteDeployment(ctx, b))
	require.NoError(t, p.DeleteDeployment(ctx, b))
	require.NoError(t, p.DeleteService(ctx, b))
}

func TestProvisioner_PropagatesErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("apiserver unavailable")
	cr := fake.NewClientBuilder().WithInterceptorFuncs(interceptor.Funcs{
		Get: func(context.Context, client.WithWatch, client.ObjectKey, client.Object, ...client.GetOption) error {
			return boom
		},
		Delete: func(context.Context, client.WithWatch, client.Object, ...client.DeleteOption) error {
			return boom
		},
	}).Build()
	p := NewProvisioner(kube.NewClient(cr, k8sfake.NewSimpleClientset(), testNamespace, time.Second))
	b := For("srv-1", testNamespace)

	_, err := p.EnsureDeployment(ctx, BuildDeployment(b, testSpec()))
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, p.DeleteService(ctx, b), boom)
}
