package secrets

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"kubemcp/internal/naming"
)

// AnnotationRegistry records the registry host a regcred authenticates to.
const AnnotationRegistry = "mcp-server/registry"

// BuildGenericSecret returns the Opaque secret holding an installation's values.
func BuildGenericSecret(name, namespace, serverID string, data map[string]string) *corev1.Secret {
	secretData := make(map[string][]byte, len(data))
	for k, v := range data {
		secretData[k] = []byte(v)
	}
	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   namespace,
			Labels:      naming.SecretLabels(naming.SecretKindGeneric, serverID, ""),
			Annotations: map[string]string{naming.AnnotationServerID: serverID},
		},
		Type: corev1.SecretTypeOpaque,
		Data: secretData,
	}
}

type dockerConfigEntry struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Auth     string `json:"auth"`
}

type dockerConfigJSON struct {
	Auths map[string]dockerConfigEntry `json:"auths"`
}

// BuildRegcred returns a kubernetes.io/dockerconfigjson secret for cred,
// created on behalf of serverID.
func BuildRegcred(namespace string, cred RegistryCredential, serverID, teamID string) (*corev1.Secret, error) {
	if cred.Registry == "" || cred.Username == "" {
		return nil, fmt.Errorf("registry credential requires registry and username")
	}

	host := naming.NormalizeRegistry(cred.Registry)
	payload, err := json.Marshal(dockerConfigJSON{
		Auths: map[string]dockerConfigEntry{
			host: {
				Username: cred.Username,
				Password: cred.Password,
				Email:    cred.Email,
				Auth:     base64.StdEncoding.EncodeToString([]byte(cred.Username + ":" + cred.Password)),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode docker config: %w", err)
	}

	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.RegcredName(host, cred.Username),
			Namespace: namespace,
			Labels:    naming.SecretLabels(naming.SecretKindRegcred, serverID, teamID),
			Annotations: map[string]string{
				AnnotationRegistry:            host,
				naming.AnnotationReferencedBy: formatReferences([]string{serverID}),
			},
		},
		Type: corev1.SecretTypeDockerConfigJson,
		Data: map[string][]byte{corev1.DockerConfigJsonKey: payload},
	}, nil
}

// references returns the servers using a regcred. Secrets created before
// reference tracking have no annotation; their creating server, recorded in
// the mcp-server-id label, is treated as the only reference.
func references(secret *corev1.Secret) []string {
	if raw, ok := secret.Annotations[naming.AnnotationReferencedBy]; ok {
		return parseReferences(raw)
	}
	if id := secret.Labels[naming.LabelServerID]; id != "" {
		return []string{id}
	}
	return nil
}

func parseReferences(raw string) []string {
	var refs []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" && !slices.Contains(refs, part) {
			refs = append(refs, part)
		}
	}
	slices.Sort(refs)
	return refs
}

func formatReferences(refs []string) string {
	sorted := slices.Clone(refs)
	slices.Sort(sorted)
	return strings.Join(slices.Compact(sorted), ",")
}

// hasReference matches both the raw id and its label form, which is what
// legacy secrets carry.
func hasReference(refs []string, serverID string) bool {
	return slices.Contains(refs, serverID) || slices.Contains(refs, naming.LabelValue(serverID))
}

func withoutReference(refs []string, serverID string) []string {
	label := naming.LabelValue(serverID)
	return slices.DeleteFunc(slices.Clone(refs), func(r string) bool {
		return r == serverID || r == label
	})
}
