// Package kubeconfig checks and watches the kubeconfig file used to reach
// the cluster that hosts MCP server workloads.
//
// Validate is a purely structural check run before any client is built: a
// missing file, unparsable YAML, an absent clusters, contexts or users
// section, or an incomplete first cluster entry are each reported with a
// distinct sentinel error.
//
// Watcher reloads the runtime when the file is rewritten, for example after
// a credential rotation.
package kubeconfig
