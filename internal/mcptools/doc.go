// Package mcptools exposes the runtime manager to MCP clients. The tools are
// read-only: runtime_status, runtime_logs and regcred_list.
package mcptools
