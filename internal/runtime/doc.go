// Package runtime runs installed MCP servers as workloads on a Kubernetes
// cluster.
//
// Each local server is provisioned as a bundle: a generic secret holding its
// environment, an optional regcred shared with other servers pulling from the
// same registry account, a ClusterIP Service and a single-replica Deployment.
// The Manager keeps an index of bundles keyed by server id, rebuilt from the
// cluster on Initialize, and serializes start and stop per server.
//
// Without a usable cluster connection the Manager is disabled. Reads degrade
// to empty results and log requests receive a notice instead of failing.
//
// Status is synthesized from periodic snapshots of Deployments and pods:
//
//	ready replicas >= desired      running (or discovering_tools)
//	fatal waiting reason on a pod  error
//	Progressing=False              error
//	anything else                  pending
//	no Deployment                  not_created
package runtime
