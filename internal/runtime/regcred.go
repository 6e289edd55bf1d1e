package runtime

import (
	"context"

	"kubemcp/internal/secrets"
	"kubemcp/pkg/logging"
)

// ListDockerRegistrySecrets lists the regcred secrets visible to the caller.
// A disabled runtime has none.
func (m *Manager) ListDockerRegistrySecrets(ctx context.Context, opts secrets.ListOptions) ([]secrets.RegcredInfo, error) {
	c := m.current()
	if c == nil {
		return []secrets.RegcredInfo{}, nil
	}
	out, err := c.secrets.ListRegcreds(ctx, opts)
	m.metrics.ObserveOperation("regcred_list", err)
	return out, err
}

// BackfillRegcredTeamLabels adds the team label to the regcreds of every
// server that belongs to a team. Servers without a team are skipped and no
// cluster call is made when none has one.
func (m *Manager) BackfillRegcredTeamLabels(ctx context.Context, servers []ServerRecord) (secrets.BackfillResult, error) {
	var assignments []secrets.TeamAssignment
	for _, s := range servers {
		if team := s.Team(); team != "" && s.ID != "" {
			assignments = append(assignments, secrets.TeamAssignment{ServerID: s.ID, TeamID: team})
		}
	}
	if len(assignments) == 0 {
		return secrets.BackfillResult{Patched: []string{}}, nil
	}

	c := m.current()
	if c == nil {
		logging.Warn(subsystem, "Kubernetes runtime is not configured, skipping team label backfill for %d servers", len(assignments))
		return secrets.BackfillResult{Patched: []string{}}, nil
	}

	result, err := c.secrets.BackfillTeamLabels(ctx, assignments)
	m.metrics.ObserveOperation("regcred_backfill", err)
	if err == nil {
		logging.Info(subsystem, "Backfilled team labels on %d regcred secrets (%d failed)", len(result.Patched), len(result.Failed))
	}
	return result, err
}
