package mcptools

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"kubemcp/internal/logstream"
	"kubemcp/internal/runtime"
	"kubemcp/internal/secrets"
)

// Runtime is the part of the runtime manager exposed as tools.
type Runtime interface {
	StatusSummary() runtime.StatusSummary
	RefreshStatus(ctx context.Context) error
	StreamMCPServerLogs(ctx context.Context, serverID string, sink io.Writer, opts logstream.StreamOptions) (*logstream.Subscription, error)
	ListDockerRegistrySecrets(ctx context.Context, opts secrets.ListOptions) ([]secrets.RegcredInfo, error)
}

// Server exposes read-only runtime operations as MCP tools over stdio.
type Server struct {
	runtime   Runtime
	mcpServer *server.MCPServer
}

// New returns a Server with every tool registered.
func New(rt Runtime, version string) *Server {
	s := &Server{
		runtime: rt,
		mcpServer: server.NewMCPServer(
			"kubemcp",
			version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Start serves the tools on stdin/stdout until the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	statusTool := mcp.NewTool("runtime_status",
		mcp.WithDescription("Show the deployment state of every known MCP server"),
		mcp.WithBoolean("refresh",
			mcp.Description("Take a fresh snapshot from the cluster before answering"),
		),
	)
	s.mcpServer.AddTool(statusTool, s.handleStatus)

	logsTool := mcp.NewTool("runtime_logs",
		mcp.WithDescription("Return the most recent log lines of an MCP server"),
		mcp.WithString("serverId",
			mcp.Required(),
			mcp.Description("ID of the installed MCP server"),
		),
		mcp.WithNumber("lines",
			mcp.Description("Number of lines to return (default: configured tail length)"),
		),
	)
	s.mcpServer.AddTool(logsTool, s.handleLogs)

	regcredTool := mcp.NewTool("regcred_list",
		mcp.WithDescription("List container registry secrets visible to the caller"),
		mcp.WithBoolean("isAdmin",
			mcp.Description("List every registry secret"),
		),
		mcp.WithArray("teamIds",
			mcp.Description("Teams whose registry secrets are visible"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
	s.mcpServer.AddTool(regcredTool, s.handleRegcredList)
}
