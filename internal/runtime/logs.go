package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"

	"kubemcp/internal/logstream"
	"kubemcp/internal/naming"
	"kubemcp/pkg/logging"
)

// GetAppropriateCommand returns the shell command an operator can run to
// follow the logs of serverID, or an explanation when the runtime is
// disabled.
func (m *Manager) GetAppropriateCommand(serverID string) string {
	if !m.IsEnabled() {
		return fmt.Sprintf("Kubernetes runtime is not configured on this instance. Pod selector: %s",
			naming.ServerSelectorString(serverID))
	}
	return fmt.Sprintf("kubectl logs -n %s -l %s -f --tail=%d",
		m.Namespace(), naming.ServerSelectorString(serverID), m.cfg.Logs.TailLines)
}

// StreamMCPServerLogs copies the logs of serverID to sink. Zero
// opts.Lines uses the configured tail length.
//
// Without a cluster connection, or when the server has no running pod, a
// notice is written to sink and a nil subscription is returned without
// error.
func (m *Manager) StreamMCPServerLogs(ctx context.Context, serverID string, sink io.Writer, opts logstream.StreamOptions) (*logstream.Subscription, error) {
	c := m.current()
	if c == nil {
		return nil, logstream.WriteDisabledNotice(sink, serverID)
	}

	if opts.Lines == 0 {
		opts.Lines = m.cfg.Logs.TailLines
	}

	sub, err := c.streamer.Stream(ctx, serverID, sink, opts)
	m.metrics.ObserveOperation("logs", err)
	if errors.Is(err, logstream.ErrNoRunningPod) {
		logging.Debug(subsystem, "No running pod for server %s", serverID)
		_, werr := fmt.Fprintf(sink, "No running pod found for MCP server %s. Pod selector: %s\n",
			serverID, naming.ServerSelectorString(serverID))
		return nil, werr
	}
	return sub, err
}

// CancelLogStream stops the stream of subscriberID and reports whether one
// was active.
func (m *Manager) CancelLogStream(subscriberID string) bool {
	c := m.current()
	if c == nil {
		return false
	}
	return c.streamer.Cancel(subscriberID)
}
