package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/util/retry"

	"kubemcp/internal/keylock"
	"kubemcp/internal/kube"
	"kubemcp/internal/naming"
	"kubemcp/pkg/logging"
)

// Coordinator manages generic and regcred secrets in the runtime namespace.
type Coordinator struct {
	client kube.ResourceClient
	locks  keylock.Mutex
}

// NewCoordinator returns a Coordinator backed by client.
func NewCoordinator(client kube.ResourceClient) *Coordinator {
	return &Coordinator{client: client}
}

// EnsureGenericSecret creates the generic secret for serverID. If it already
// exists, keys missing from it are added; existing keys keep their value.
func (c *Coordinator) EnsureGenericSecret(ctx context.Context, name, serverID string, data map[string]string) error {
	existing, err := c.client.GetSecret(ctx, name)
	if apierrors.IsNotFound(err) {
		secret := BuildGenericSecret(name, c.client.Namespace(), serverID, data)
		if err := c.client.CreateSecret(ctx, secret); err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("create secret %s: %w", name, err)
		}
		logging.Info("Secrets", "Created secret %s with %d keys for server %s", name, len(data), serverID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("check secret %s: %w", name, err)
	}

	missing := make(map[string][]byte)
	for k, v := range data {
		if _, ok := existing.Data[k]; !ok {
			missing[k] = []byte(v)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	patch, err := json.Marshal(map[string]interface{}{"data": missing})
	if err != nil {
		return fmt.Errorf("encode patch for secret %s: %w", name, err)
	}
	if err := c.client.PatchSecret(ctx, name, patch); err != nil {
		return fmt.Errorf("merge keys into secret %s: %w", name, err)
	}
	logging.Info("Secrets", "Added %d keys to existing secret %s", len(missing), name)
	return nil
}

// DeleteGenericSecret removes a generic secret. A missing secret is not an error.
func (c *Coordinator) DeleteGenericSecret(ctx context.Context, name string) error {
	if err := c.client.DeleteSecret(ctx, name); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete secret %s: %w", name, err)
	}
	return nil
}

// EnsureRegcred makes sure a regcred for cred exists and records serverID as
// one of its users. It returns the secret name.
//
// Reference updates on one regcred are serialized within the coordinator
// and carry the secret's resourceVersion, so concurrent writers from other
// processes surface as a Conflict and are retried against a fresh read.
func (c *Coordinator) EnsureRegcred(ctx context.Context, cred RegistryCredential, serverID, teamID string) (string, error) {
	secret, err := BuildRegcred(c.client.Namespace(), cred, serverID, teamID)
	if err != nil {
		return "", err
	}

	unlock := c.locks.Lock(secret.Name)
	defer unlock()

	err = c.client.CreateSecret(ctx, secret)
	if err == nil {
		logging.Info("Secrets", "Created regcred %s for registry %s (server %s)", secret.Name, secret.Annotations[AnnotationRegistry], serverID)
		return secret.Name, nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return "", fmt.Errorf("create regcred %s: %w", secret.Name, err)
	}

	var users int
	err = retry.RetryOnConflict(retry.DefaultRetry, func() error {
		existing, err := c.client.GetSecret(ctx, secret.Name)
		if err != nil {
			return fmt.Errorf("get regcred %s: %w", secret.Name, err)
		}
		refs := references(existing)
		if hasReference(refs, serverID) {
			users = 0
			return nil
		}
		refs = append(refs, serverID)
		users = len(refs)
		return c.patchReferences(ctx, existing, refs)
	})
	if err != nil {
		return "", err
	}
	if users > 0 {
		logging.Info("Secrets", "Server %s now shares regcred %s (%d users)", serverID, secret.Name, users)
	}
	return secret.Name, nil
}

// ReleaseRegcreds drops serverID from every regcred it uses. A regcred with
// no remaining users is deleted; one still used elsewhere is kept. Every
// secret is attempted; failures are joined into the returned error.
func (c *Coordinator) ReleaseRegcreds(ctx context.Context, serverID string) error {
	list, err := c.client.ListSecrets(ctx, naming.SecretKindRegcred.Selector())
	if err != nil {
		return fmt.Errorf("list regcreds: %w", err)
	}

	var errs []error
	for i := range list {
		if !hasReference(references(&list[i]), serverID) {
			continue
		}
		if err := c.release(ctx, list[i].Name, serverID); err != nil {
			logging.Error("Secrets", err, "Failed to release regcred %s for server %s", list[i].Name, serverID)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// release removes serverID from one regcred. The listed copy may be stale,
// so the decision between patching and deleting is made on a fresh read
// under the regcred's lock.
func (c *Coordinator) release(ctx context.Context, name, serverID string) error {
	unlock := c.locks.Lock(name)
	defer unlock()

	var (
		deleted   bool
		remaining []string
	)
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		deleted, remaining = false, nil
		current, err := c.client.GetSecret(ctx, name)
		if apierrors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get regcred %s: %w", name, err)
		}

		refs := references(current)
		if !hasReference(refs, serverID) {
			return nil
		}
		remaining = withoutReference(refs, serverID)
		if len(remaining) > 0 {
			return c.patchReferences(ctx, current, remaining)
		}

		err = c.client.DeleteSecretAtVersion(ctx, name, current.ResourceVersion)
		if err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("delete regcred %s: %w", name, err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return err
	}

	switch {
	case deleted:
		logging.Info("Secrets", "Deleted regcred %s, last user was %s", name, serverID)
	case len(remaining) > 0:
		logging.Info("Secrets", "Kept regcred %s, still used by %v", name, remaining)
	}
	return nil
}

// patchReferences rewrites the referenced-by annotation of secret. The
// patch carries the resourceVersion it was computed from.
func (c *Coordinator) patchReferences(ctx context.Context, secret *corev1.Secret, refs []string) error {
	patch, err := json.Marshal(map[string]interface{}{
		"metadata": map[string]interface{}{
			"resourceVersion": secret.ResourceVersion,
			"annotations":     map[string]string{naming.AnnotationReferencedBy: formatReferences(refs)},
		},
	})
	if err != nil {
		return fmt.Errorf("encode patch for regcred %s: %w", secret.Name, err)
	}
	if err := c.client.PatchSecret(ctx, secret.Name, patch); err != nil {
		return fmt.Errorf("update references of regcred %s: %w", secret.Name, err)
	}
	return nil
}

// ListRegcreds lists regcred secrets visible to the caller. Admins see all of
// them, team members only those labelled with one of their teams. Callers
// with neither get nothing, and the cluster is not queried.
func (c *Coordinator) ListRegcreds(ctx context.Context, opts ListOptions) ([]RegcredInfo, error) {
	if !opts.IsAdmin && len(opts.TeamIDs) == 0 {
		return []RegcredInfo{}, nil
	}

	list, err := c.client.ListSecrets(ctx, naming.SecretKindRegcred.Selector())
	if err != nil {
		return nil, fmt.Errorf("list regcreds: %w", err)
	}

	teams := make(map[string]struct{}, len(opts.TeamIDs))
	for _, id := range opts.TeamIDs {
		teams[naming.LabelValue(id)] = struct{}{}
	}

	result := make([]RegcredInfo, 0, len(list))
	for i := range list {
		secret := &list[i]
		if !opts.IsAdmin {
			if _, ok := teams[secret.Labels[naming.LabelTeamID]]; !ok {
				continue
			}
		}
		result = append(result, toInfo(secret))
	}

	slices.SortFunc(result, func(a, b RegcredInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func toInfo(secret *corev1.Secret) RegcredInfo {
	return RegcredInfo{
		Name:         secret.Name,
		Namespace:    secret.Namespace,
		Registry:     secret.Annotations[AnnotationRegistry],
		ServerID:     secret.Labels[naming.LabelServerID],
		TeamID:       secret.Labels[naming.LabelTeamID],
		ReferencedBy: references(secret),
		CreatedAt:    secret.CreationTimestamp.Time,
	}
}

// BackfillTeamLabels adds the team-id label to legacy regcreds created by one
// of the given servers. Secrets that already carry a team, or whose server is
// not in assignments, are left alone. A failed patch is logged and recorded;
// the remaining secrets are still processed.
func (c *Coordinator) BackfillTeamLabels(ctx context.Context, assignments []TeamAssignment) (BackfillResult, error) {
	result := BackfillResult{Patched: []string{}}
	if len(assignments) == 0 {
		return result, nil
	}

	teamByServer := make(map[string]string, len(assignments))
	for _, a := range assignments {
		if a.ServerID == "" || a.TeamID == "" {
			continue
		}
		teamByServer[naming.LabelValue(a.ServerID)] = a.TeamID
	}
	if len(teamByServer) == 0 {
		return result, nil
	}

	list, err := c.client.ListSecrets(ctx, naming.SecretKindRegcred.Selector())
	if err != nil {
		return result, fmt.Errorf("list regcreds: %w", err)
	}

	for i := range list {
		secret := &list[i]
		teamID, known := teamByServer[secret.Labels[naming.LabelServerID]]
		if !known || secret.Labels[naming.LabelTeamID] != "" {
			result.Skipped++
			continue
		}

		patch, err := json.Marshal(map[string]interface{}{
			"metadata": map[string]interface{}{
				"labels": map[string]string{naming.LabelTeamID: naming.LabelValue(teamID)},
			},
		})
		if err == nil {
			err = c.client.PatchSecret(ctx, secret.Name, patch)
		}
		if err != nil {
			logging.Error("Secrets", err, "Failed to backfill team-id on regcred %s (server %s)",
				secret.Name, secret.Labels[naming.LabelServerID])
			result.Failed = append(result.Failed, secret.Name)
			continue
		}

		logging.Info("Secrets", "Backfilled team-id=%s on regcred %s", teamID, secret.Name)
		result.Patched = append(result.Patched, secret.Name)
	}
	return result, nil
}
