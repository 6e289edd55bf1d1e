package kube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// DefaultTimeout bounds a single API call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is wrapped by every error caused by a call exceeding its
// deadline. Callers can retry such failures; they are never NotFound.
var ErrTimeout = errors.New("kubernetes API call timed out")

// ResourceClient is the subset of the cluster API the runtime needs. All
// calls operate in a single namespace.
type ResourceClient interface {
	Namespace() string

	GetDeployment(ctx context.Context, name string) (*appsv1.Deployment, error)
	CreateDeployment(ctx context.Context, deployment *appsv1.Deployment) error
	DeleteDeployment(ctx context.Context, name string) error
	ListDeployments(ctx context.Context, selector labels.Selector) ([]appsv1.Deployment, error)

	GetService(ctx context.Context, name string) (*corev1.Service, error)
	CreateService(ctx context.Context, service *corev1.Service) error
	DeleteService(ctx context.Context, name string) error

	GetSecret(ctx context.Context, name string) (*corev1.Secret, error)
	CreateSecret(ctx context.Context, secret *corev1.Secret) error
	// PatchSecret applies a JSON merge patch.
	PatchSecret(ctx context.Context, name string, patch []byte) error
	DeleteSecret(ctx context.Context, name string) error
	// DeleteSecretAtVersion deletes a Secret only if it still has
	// resourceVersion; otherwise the API returns a Conflict.
	DeleteSecretAtVersion(ctx context.Context, name, resourceVersion string) error
	ListSecrets(ctx context.Context, selector labels.Selector) ([]corev1.Secret, error)

	ListPods(ctx context.Context, selector labels.Selector) ([]corev1.Pod, error)
	// StreamPodLogs is not bound by the call timeout; the stream lives until
	// ctx is cancelled or the reader is closed.
	StreamPodLogs(ctx context.Context, podName string, opts *corev1.PodLogOptions) (io.ReadCloser, error)
}

// Client implements ResourceClient with a controller-runtime client for
// object CRUD and a client-go clientset for pods and logs.
type Client struct {
	crClient  client.Client
	clientset kubernetes.Interface
	namespace string
	timeout   time.Duration
}

// NewClient wraps existing clients. Tests pass fakes here.
func NewClient(crClient client.Client, clientset kubernetes.Interface, namespace string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		crClient:  crClient,
		clientset: clientset,
		namespace: namespace,
		timeout:   timeout,
	}
}

// NewClientFromConfig builds both underlying clients from a REST config.
func NewClientFromConfig(cfg *rest.Config, namespace string, timeout time.Duration) (*Client, error) {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	crClient, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
	}

	return NewClient(crClient, clientset, namespace, timeout), nil
}

// Namespace returns the namespace all objects live in.
func (c *Client) Namespace() string {
	return c.namespace
}

// call runs fn under the per-call timeout and tags deadline failures with ErrTimeout.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if isTimeout(ctx, err) {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isTimeout(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsServerTimeout(err)
}

func (c *Client) key(name string) types.NamespacedName {
	return types.NamespacedName{Namespace: c.namespace, Name: name}
}

func (c *Client) meta(name string) metav1.ObjectMeta {
	return metav1.ObjectMeta{Namespace: c.namespace, Name: name}
}

func (c *Client) listOptions(selector labels.Selector) []client.ListOption {
	opts := []client.ListOption{client.InNamespace(c.namespace)}
	if selector != nil {
		opts = append(opts, client.MatchingLabelsSelector{Selector: selector})
	}
	return opts
}

// GetDeployment fetches a Deployment by name.
func (c *Client) GetDeployment(ctx context.Context, name string) (*appsv1.Deployment, error) {
	deployment := &appsv1.Deployment{}
	err := c.call(ctx, "get deployment "+c.namespace+"/"+name, func(ctx context.Context) error {
		return c.crClient.Get(ctx, c.key(name), deployment)
	})
	if err != nil {
		return nil, err
	}
	return deployment, nil
}

// CreateDeployment creates a Deployment in the client namespace.
func (c *Client) CreateDeployment(ctx context.Context, deployment *appsv1.Deployment) error {
	deployment.Namespace = c.namespace
	return c.call(ctx, "create deployment "+c.namespace+"/"+deployment.Name, func(ctx context.Context) error {
		return c.crClient.Create(ctx, deployment)
	})
}

// DeleteDeployment deletes a Deployment and lets the garbage collector
// remove its ReplicaSets and pods in the background.
func (c *Client) DeleteDeployment(ctx context.Context, name string) error {
	return c.call(ctx, "delete deployment "+c.namespace+"/"+name, func(ctx context.Context) error {
		return c.crClient.Delete(ctx, &appsv1.Deployment{ObjectMeta: c.meta(name)},
			client.PropagationPolicy(metav1.DeletePropagationBackground))
	})
}

// ListDeployments lists Deployments matching selector.
func (c *Client) ListDeployments(ctx context.Context, selector labels.Selector) ([]appsv1.Deployment, error) {
	list := &appsv1.DeploymentList{}
	err := c.call(ctx, "list deployments in "+c.namespace, func(ctx context.Context) error {
		return c.crClient.List(ctx, list, c.listOptions(selector)...)
	})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetService fetches a Service by name.
func (c *Client) GetService(ctx context.Context, name string) (*corev1.Service, error) {
	service := &corev1.Service{}
	err := c.call(ctx, "get service "+c.namespace+"/"+name, func(ctx context.Context) error {
		return c.crClient.Get(ctx, c.key(name), service)
	})
	if err != nil {
		return nil, err
	}
	return service, nil
}

// CreateService creates a Service in the client namespace.
func (c *Client) CreateService(ctx context.Context, service *corev1.Service) error {
	service.Namespace = c.namespace
	return c.call(ctx, "create service "+c.namespace+"/"+service.Name, func(ctx context.Context) error {
		return c.crClient.Create(ctx, service)
	})
}

// DeleteService deletes a Service.
func (c *Client) DeleteService(ctx context.Context, name string) error {
	return c.call(ctx, "delete service "+c.namespace+"/"+name, func(ctx context.Context) error {
		return c.crClient.Delete(ctx, &corev1.Service{ObjectMeta: c.meta(name)})
	})
}

// GetSecret fetches a Secret by name.
func (c *Client) GetSecret(ctx context.Context, name string) (*corev1.Secret, error) {
	secret := &corev1.Secret{}
	err := c.call(ctx, "get secret "+c.namespace+"/"+name, func(ctx context.Context) error {
		return c.crClient.Get(ctx, c.key(name), secret)
	})
	if err != nil {
		return nil, err
	}
	return secret, nil
}

// CreateSecret creates a Secret in the client namespace.
func (c *Client) CreateSecret(ctx context.Context, secret *corev1.Secret) error {
	secret.Namespace = c.namespace
	return c.call(ctx, "create secret "+c.namespace+"/"+secret.Name, func(ctx context.Context) error {
		return c.crClient.Create(ctx, secret)
	})
}

// PatchSecret applies a JSON merge patch to a Secret.
func (c *Client) PatchSecret(ctx context.Context, name string, patch []byte) error {
	return c.call(ctx, "patch secret "+c.namespace+"/"+name, func(ctx context.Context) error {
		return c.crClient.Patch(ctx, &corev1.Secret{ObjectMeta: c.meta(name)},
			client.RawPatch(types.MergePatchType, patch))
	})
}

// DeleteSecret deletes a Secret.
func (c *Client) DeleteSecret(ctx context.Context, name string) error {
	return c.call(ctx, "delete secret "+c.namespace+"/"+name, func(ctx context.Context) error {
		return c.crClient.Delete(ctx, &corev1.Secret{ObjectMeta: c.meta(name)})
	})
}

// DeleteSecretAtVersion deletes a Secret with a resourceVersion precondition.
func (c *Client) DeleteSecretAtVersion(ctx context.Context, name, resourceVersion string) error {
	return c.call(ctx, "delete secret "+c.namespace+"/"+name, func(ctx context.Context) error {
		return c.crClient.Delete(ctx, &corev1.Secret{ObjectMeta: c.meta(name)},
			client.Preconditions{ResourceVersion: &resourceVersion})
	})
}

// ListSecrets lists Secrets matching selector.
func (c *Client) ListSecrets(ctx context.Context, selector labels.Selector) ([]corev1.Secret, error) {
	list := &corev1.SecretList{}
	err := c.call(ctx, "list secrets in "+c.namespace, func(ctx context.Context) error {
		return c.crClient.List(ctx, list, c.listOptions(selector)...)
	})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ListPods lists pods matching selector.
func (c *Client) ListPods(ctx context.Context, selector labels.Selector) ([]corev1.Pod, error) {
	var pods *corev1.PodList
	err := c.call(ctx, "list pods in "+c.namespace, func(ctx context.Context) error {
		opts := metav1.ListOptions{}
		if selector != nil {
			opts.LabelSelector = selector.String()
		}
		var err error
		pods, err = c.clientset.CoreV1().Pods(c.namespace).List(ctx, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pods.Items, nil
}

// StreamPodLogs opens a log stream for a pod.
func (c *Client) StreamPodLogs(ctx context.Context, podName string, opts *corev1.PodLogOptions) (io.ReadCloser, error) {
	stream, err := c.clientset.CoreV1().Pods(c.namespace).GetLogs(podName, opts).Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to stream logs for pod %s/%s: %w", c.namespace, podName, err)
	}
	return stream, nil
}
