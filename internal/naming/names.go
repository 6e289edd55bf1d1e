package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	workloadPrefix = "mcp-server"
	secretPrefix   = "mcp-server-env"
	regcredPrefix  = "mcp-regcred"
)

// DeploymentName is the Deployment name for a server.
func DeploymentName(serverID string) string {
	return Name(workloadPrefix, serverID)
}

// ServiceName is the Service name for a server. It matches the Deployment
// name and starts with a letter, as DNS-1035 requires.
func ServiceName(serverID string) string {
	return Name(workloadPrefix, serverID)
}

// SecretName is the generic secret name for a server.
func SecretName(serverID string) string {
	return Name(secretPrefix, serverID)
}

// RegcredName derives the registry secret name from the (registry host,
// username) pair, so every server pulling with the same credential shares it.
func RegcredName(registryHost, username string) string {
	sum := sha256.Sum256([]byte(NormalizeRegistry(registryHost) + "\x00" + username))
	return regcredPrefix + "-" + hex.EncodeToString(sum[:])[:16]
}

// NormalizeRegistry lowercases the host and strips a scheme and trailing
// slash, so "https://GHCR.io/" and "ghcr.io" name the same registry.
func NormalizeRegistry(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}
