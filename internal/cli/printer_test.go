package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kubemcp/internal/bundle"
	"kubemcp/internal/runtime"
	"kubemcp/internal/secrets"
)

func sampleSummary() runtime.StatusSummary {
	return runtime.StatusSummary{
		Status: runtime.SummaryReady,
		MCPServers: map[string]runtime.DeploymentStatusEntry{
			"b-server": {State: runtime.StateError, DeploymentName: "mcp-server-b-server", Namespace: "mcp", Message: "0/1 replicas ready", Error: "CrashLoopBackOff"},
			"a-server": {State: runtime.StateRunning, DeploymentName: "mcp-server-a-server", Namespace: "mcp", Message: "1/1 replicas ready"},
		},
	}
}

func TestValidateOutputFormat(t *testing.T) {
	for _, f := range ValidOutputFormats {
		assert.NoError(t, ValidateOutputFormat(string(f)))
	}
	err := ValidateOutputFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table, wide, pretty, json, yaml")
}

func TestPrintStatus_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, OutputFormatTable, false).PrintStatus(sampleSummary()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "SERVER")
	assert.Contains(t, lines[0], "STATE")
	assert.True(t, strings.HasPrefix(lines[1], "a-server"), "rows are sorted by server id")
	assert.Contains(t, lines[2], "CrashLoopBackOff")
	assert.NotContains(t, buf.String(), "│")
}

func TestPrintStatus_Wide(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, OutputFormatWide, false).PrintStatus(sampleSummary()))
	assert.Contains(t, buf.String(), "NAMESPACE")
	assert.Contains(t, buf.String(), "0/1 replicas ready")
}

func TestPrintStatus_LongMessageTruncated(t *testing.T) {
	long := "Back-off pulling image \"registry.example.com/team/some-very-long-image-name:1.0.0\"\nretrying"
	summary := runtime.StatusSummary{
		Status: runtime.SummaryReady,
		MCPServers: map[string]runtime.DeploymentStatusEntry{
			"x": {State: runtime.StateError, DeploymentName: "mcp-server-x", Namespace: "mcp", Error: long},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, OutputFormatTable, false).PrintStatus(summary))
	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), "retrying")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, OutputFormatWide, false).PrintStatus(summary))
	assert.Contains(t, buf.String(), "1.0.0\" retrying")
}

func TestPrintStatus_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	summary := sampleSummary()
	summary.Status = runtime.SummaryDisabled
	require.NoError(t, NewPrinter(&buf, OutputFormatTable, true).PrintStatus(summary))

	assert.NotContains(t, buf.String(), "SERVER")
	assert.NotContains(t, buf.String(), "runtime is disabled")
}

func TestPrintStatus_DisabledWarning(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, OutputFormatTable, false).PrintStatus(runtime.StatusSummary{Status: runtime.SummaryDisabled}))
	assert.Contains(t, buf.String(), "runtime is disabled")
}

func TestPrintStatus_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, OutputFormatJSON, false).PrintStatus(sampleSummary()))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "ready", decoded["status"])
	assert.Contains(t, decoded, "mcpServers")
}

func TestPrintStatus_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, OutputFormatYAML, false).PrintStatus(sampleSummary()))
	assert.Contains(t, buf.String(), "mcpServers:")
	assert.Contains(t, buf.String(), "state: running")
}

func TestPrintRegcreds(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	p := NewPrinter(&buf, OutputFormatTable, false)
	p.now = func() time.Time { return now }

	err := p.PrintRegcreds([]secrets.RegcredInfo{
		{Name: "mcp-regcred-1", Registry: "ghcr.io", TeamID: "team-a", ReferencedBy: []string{"a", "b"}, CreatedAt: now.Add(-3 * time.Hour)},
		{Name: "mcp-regcred-2", CreatedAt: now.Add(-72 * time.Hour)},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "REFERENCED BY")
	assert.Contains(t, out, "a,b")
	assert.Contains(t, out, "3h")
	assert.Contains(t, out, "3d")
}

func TestPrintBackfill(t *testing.T) {
	var buf bytes.Buffer
	err := NewPrinter(&buf, OutputFormatTable, false).PrintBackfill(secrets.BackfillResult{
		Patched: []string{"r1"},
		Skipped: 2,
		Failed:  []string{"r2"},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ labelled r1")
	assert.Contains(t, buf.String(), "⚠ failed to label r2")
	assert.Contains(t, buf.String(), "1 patched, 2 skipped, 1 failed")
}

func TestPrintBundles(t *testing.T) {
	var buf bytes.Buffer
	b := bundle.For("srv", "mcp").WithRegcred("mcp-regcred-x")
	require.NoError(t, NewPrinter(&buf, OutputFormatPretty, false).PrintBundles([]bundle.Bundle{b}))
	assert.Contains(t, buf.String(), "mcp-regcred-x")
	assert.Contains(t, buf.String(), "│")
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "✓ done", FormatSuccess("done"))
	assert.Equal(t, "⚠ careful", FormatWarning("careful"))
}
