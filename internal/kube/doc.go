// Package kube is the cluster API boundary of kubemcp.
//
// ResourceClient exposes the handful of Deployment, Service, Secret and pod
// operations the runtime performs, scoped to one namespace. Every call except
// log streaming runs under a bounded timeout; a call that hits it returns an
// error wrapping ErrTimeout, which is distinct from a NotFound API error.
package kube
