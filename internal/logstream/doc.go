// Package logstream tails MCP server pod logs into arbitrary writers.
//
// Each consumer is identified by a subscriber id and holds at most one
// stream. Switching a consumer to another server cancels its previous stream,
// and waits for that connection to close, before the new one is opened.
package logstream
