package bundle

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"kubemcp/internal/naming"
)

const (
	containerName = "mcp-server"
	portName      = "http"
)

// WorkloadSpec describes the container an MCP server runs in.
type WorkloadSpec struct {
	Owner           naming.Owner
	Image           string
	Command         []string
	Args            []string
	ContainerPort   int32
	ServicePort     int32
	ImagePullPolicy corev1.PullPolicy
}

// BuildDeployment returns the Deployment for b. The pod receives every key
// of the generic secret as environment variables and pulls with the
// bundle's regcred secrets.
func BuildDeployment(b Bundle, spec WorkloadSpec) *appsv1.Deployment {
	lbls := naming.WorkloadLabels(spec.Owner)

	var pullSecrets []corev1.LocalObjectReference
	for _, name := range b.RegcredNames {
		pullSecrets = append(pullSecrets, corev1.LocalObjectReference{Name: name})
	}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:        b.DeploymentName,
			Namespace:   b.Namespace,
			Labels:      lbls,
			Annotations: naming.OwnerAnnotations(spec.Owner),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas:             ptr.To(int32(1)),
			RevisionHistoryLimit: ptr.To(int32(2)),
			Selector:             &metav1.LabelSelector{MatchLabels: naming.SelectorLabels(b.ServerID)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      lbls,
					Annotations: naming.OwnerAnnotations(spec.Owner),
				},
				Spec: corev1.PodSpec{
					ImagePullSecrets:             pullSecrets,
					AutomountServiceAccountToken: ptr.To(false),
					Containers: []corev1.Container{
						{
							Name:            containerName,
							Image:           spec.Image,
							ImagePullPolicy: spec.ImagePullPolicy,
							Command:         spec.Command,
							Args:            spec.Args,
							Ports: []corev1.ContainerPort{
								{Name: portName, ContainerPort: spec.ContainerPort, Protocol: corev1.ProtocolTCP},
							},
							EnvFrom: []corev1.EnvFromSource{
								{
									SecretRef: &corev1.SecretEnvSource{
										LocalObjectReference: corev1.LocalObjectReference{Name: b.SecretName},
									},
								},
							},
							ReadinessProbe: &corev1.Probe{
								ProbeHandler: corev1.ProbeHandler{
									TCPSocket: &corev1.TCPSocketAction{Port: intstr.FromString(portName)},
								},
								PeriodSeconds: 5,
							},
							SecurityContext: &corev1.SecurityContext{
								AllowPrivilegeEscalation: ptr.To(false),
							},
						},
					},
				},
			},
		},
	}
}

// BuildService returns the ClusterIP Service in front of b's pods.
func BuildService(b Bundle, spec WorkloadSpec) *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:        b.ServiceName,
			Namespace:   b.Namespace,
			Labels:      naming.WorkloadLabels(spec.Owner),
			Annotations: naming.OwnerAnnotations(spec.Owner),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: naming.SelectorLabels(b.ServerID),
			Ports: []corev1.ServicePort{
				{
					Name:       portName,
					Port:       spec.ServicePort,
					TargetPort: intstr.FromString(portName),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}
