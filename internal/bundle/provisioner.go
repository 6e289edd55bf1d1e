package bundle

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"kubemcp/internal/kube"
	"kubemcp/pkg/logging"
)

// Provisioner creates and removes the Deployment and Service of a bundle.
// Creation is idempotent: an existing object is reused as is. Deletion of
// an absent object succeeds.
type Provisioner struct {
	client kube.ResourceClient
}

// NewProvisioner returns a Provisioner backed by client.
func NewProvisioner(client kube.ResourceClient) *Provisioner {
	return &Provisioner{client: client}
}

// EnsureService creates svc unless a Service with that name exists.
// It reports whether the Service was created.
func (p *Provisioner) EnsureService(ctx context.Context, svc *corev1.Service) (bool, error) {
	_, err := p.client.GetService(ctx, svc.Name)
	if err == nil {
		logging.Debug("Bundle", "Service %s already exists, reusing it", svc.Name)
		return false, nil
	}
	if !apierrors.IsNotFound(err) {
		return false, fmt.Errorf("check service %s: %w", svc.Name, err)
	}

	if err := p.client.CreateService(ctx, svc); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return false, nil
		}
		return false, fmt.Errorf("create service %s: %w", svc.Name, err)
	}
	logging.Info("Bundle", "Created service %s/%s", p.client.Namespace(), svc.Name)
	return true, nil
}

// EnsureDeployment creates deployment unless one with that name exists.
// It reports whether the Deployment was created.
func (p *Provisioner) EnsureDeployment(ctx context.Context, deployment *appsv1.Deployment) (bool, error) {
	_, err := p.client.GetDeployment(ctx, deployment.Name)
	if err == nil {
		logging.Debug("Bundle", "Deployment %s already exists, reusing it", deployment.Name)
		return false, nil
	}
	if !apierrors.IsNotFound(err) {
		return false, fmt.Errorf("check deployment %s: %w", deployment.Name, err)
	}

	if err := p.client.CreateDeployment(ctx, deployment); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return false, nil
		}
		return false, fmt.Errorf("create deployment %s: %w", deployment.Name, err)
	}
	logging.Info("Bundle", "Created deployment %s/%s", p.client.Namespace(), deployment.Name)
	return true, nil
}

// DeleteDeployment removes the bundle's Deployment.
func (p *Provisioner) DeleteDeployment(ctx context.Context, b Bundle) error {
	if err := p.client.DeleteDeployment(ctx, b.DeploymentName); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete deployment %s: %w", b.DeploymentName, err)
	}
	return nil
}

// DeleteService removes the bundle's Service.
func (p *Provisioner) DeleteService(ctx context.Context, b Bundle) error {
	if err := p.client.DeleteService(ctx, b.ServiceName); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete service %s: %w", b.ServiceName, err)
	}
	return nil
}
