// Package bundle describes and provisions the per-server unit of ownership:
// a Deployment, a Service in front of it, and the generic secret its pods
// read their environment from.
package bundle
