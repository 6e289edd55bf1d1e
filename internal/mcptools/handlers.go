package mcptools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"kubemcp/internal/logstream"
	"kubemcp/internal/secrets"
	"kubemcp/pkg/logging"
)

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if request.GetBool("refresh", false) {
		if err := s.runtime.RefreshStatus(ctx); err != nil {
			logging.Warn("MCPTools", "Status refresh failed: %v", err)
			return mcp.NewToolResultError(fmt.Sprintf("Failed to refresh status: %v", err)), nil
		}
	}
	return jsonResult(s.runtime.StatusSummary())
}

// lockedBuffer is written by the log pump goroutine while the handler waits.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (s *Server) handleLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serverID, err := request.RequireString("serverId")
	if err != nil || serverID == "" {
		return mcp.NewToolResultError("serverId argument is required"), nil
	}
	lines := request.GetInt("lines", 0)
	if lines < 0 {
		return mcp.NewToolResultError("lines must not be negative"), nil
	}

	var out lockedBuffer
	sub, err := s.runtime.StreamMCPServerLogs(ctx, serverID, &out, logstream.StreamOptions{Lines: int64(lines)})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read logs of %s: %v", serverID, err)), nil
	}
	if sub != nil {
		select {
		case <-sub.Done():
		case <-ctx.Done():
			sub.Cancel()
			return mcp.NewToolResultError("log request cancelled"), nil
		}
		if err := sub.Err(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(out.String()), nil
}

func (s *Server) handleRegcredList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := secrets.ListOptions{
		IsAdmin: request.GetBool("isAdmin", false),
		TeamIDs: request.GetStringSlice("teamIds", nil),
	}
	list, err := s.runtime.ListDockerRegistrySecrets(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list registry secrets: %v", err)), nil
	}
	return jsonResult(list)
}
