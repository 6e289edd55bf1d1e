package naming

import (
	"fmt"

	"k8s.io/apimachinery/pkg/labels"
)

// Label keys shared by every object the runtime creates.
const (
	LabelApp       = "app"
	LabelType      = "type"
	LabelServerID  = "mcp-server-id"
	LabelCatalogID = "catalog-id"
	LabelOwnerID   = "owner-id"
	LabelTeamID    = "team-id"

	// AppValue marks objects managed by the runtime.
	AppValue = "mcp-server"
)

// Annotation keys. Annotations carry the unsanitized identifiers.
const (
	AnnotationServerID  = "mcp-server/server-id"
	AnnotationCatalogID = "mcp-server/catalog-id"
	AnnotationOwnerID   = "mcp-server/owner-id"
	AnnotationTeamID    = "mcp-server/team-id"

	// AnnotationReferencedBy lists the server ids using a regcred secret,
	// comma separated.
	AnnotationReferencedBy = "mcp-server/referenced-by"

	// AnnotationToolsDiscovered is set to "true" on a Deployment once the
	// platform has listed the server's tools.
	AnnotationToolsDiscovered = "mcp-server/tools-discovered"
)

// SecretKind distinguishes the two kinds of secrets the runtime manages.
// Label strings are only produced from it here, at the cluster boundary.
type SecretKind int

const (
	// SecretKindGeneric holds per-installation values such as API keys.
	SecretKindGeneric SecretKind = iota
	// SecretKindRegcred holds container registry credentials.
	SecretKindRegcred
)

func (k SecretKind) String() string {
	switch k {
	case SecretKindGeneric:
		return "secret"
	case SecretKindRegcred:
		return "regcred"
	default:
		return fmt.Sprintf("SecretKind(%d)", int(k))
	}
}

// Selector matches every secret of this kind.
func (k SecretKind) Selector() labels.Selector {
	return labels.SelectorFromSet(labels.Set{
		LabelApp:  AppValue,
		LabelType: k.String(),
	})
}

// SecretKindFromLabels reports the kind of a managed secret.
func SecretKindFromLabels(l map[string]string) (SecretKind, bool) {
	if l[LabelApp] != AppValue {
		return 0, false
	}
	switch l[LabelType] {
	case SecretKindGeneric.String():
		return SecretKindGeneric, true
	case SecretKindRegcred.String():
		return SecretKindRegcred, true
	}
	return 0, false
}

// Owner identifies who a set of objects belongs to.
type Owner struct {
	ServerID  string
	CatalogID string
	OwnerID   string
	TeamID    string
}

// SecretLabels returns the labels for a secret of the given kind.
// Empty ids are omitted.
func SecretLabels(kind SecretKind, serverID, teamID string) map[string]string {
	l := map[string]string{
		LabelApp:  AppValue,
		LabelType: kind.String(),
	}
	if serverID != "" {
		l[LabelServerID] = LabelValue(serverID)
	}
	if teamID != "" {
		l[LabelTeamID] = LabelValue(teamID)
	}
	return l
}

// WorkloadLabels returns the labels for a server's Deployment, Service and pods.
func WorkloadLabels(o Owner) map[string]string {
	l := map[string]string{
		LabelApp:      AppValue,
		LabelServerID: LabelValue(o.ServerID),
	}
	if o.CatalogID != "" {
		l[LabelCatalogID] = LabelValue(o.CatalogID)
	}
	if o.OwnerID != "" {
		l[LabelOwnerID] = LabelValue(o.OwnerID)
	}
	if o.TeamID != "" {
		l[LabelTeamID] = LabelValue(o.TeamID)
	}
	return l
}

// SelectorLabels is the immutable subset of WorkloadLabels used as the
// Deployment selector and the Service selector.
func SelectorLabels(serverID string) map[string]string {
	return map[string]string{
		LabelApp:      AppValue,
		LabelServerID: LabelValue(serverID),
	}
}

// OwnerAnnotations keeps the raw identifiers next to their sanitized labels.
func OwnerAnnotations(o Owner) map[string]string {
	a := map[string]string{AnnotationServerID: o.ServerID}
	if o.CatalogID != "" {
		a[AnnotationCatalogID] = o.CatalogID
	}
	if o.OwnerID != "" {
		a[AnnotationOwnerID] = o.OwnerID
	}
	if o.TeamID != "" {
		a[AnnotationTeamID] = o.TeamID
	}
	return a
}

// ServerSelector matches the objects of one server, e.g. its pods.
func ServerSelector(serverID string) labels.Selector {
	return labels.SelectorFromSet(labels.Set{LabelServerID: LabelValue(serverID)})
}

// ServerSelectorString is the kubectl form of ServerSelector.
func ServerSelectorString(serverID string) string {
	return LabelServerID + "=" + LabelValue(serverID)
}

// AppSelector matches every Deployment the runtime manages.
func AppSelector() labels.Selector {
	return labels.SelectorFromSet(labels.Set{LabelApp: AppValue})
}

// ServerIDFromObject recovers the raw server id, preferring the annotation.
func ServerIDFromObject(lbls, annotations map[string]string) string {
	if id := annotations[AnnotationServerID]; id != "" {
		return id
	}
	return lbls[LabelServerID]
}
