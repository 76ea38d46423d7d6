package restconf

// ComplianceOptions loosens strict RFC 8040 behavior for clients that speak
// an older or simplified dialect, mirroring the teacher's own
// ComplianceOptions (browser_handler.go / client_node.go): every option
// defaults to strict-RFC-8040 behavior (all fields false/zero).
type ComplianceOptions struct {
	// DisableActionWrapper skips the "<module>:input"/"<module>:output"
	// envelope on RPC/action bodies (RFC 8040 §3.6), for clients that send
	// and expect a bare payload.
	DisableActionWrapper bool

	// DisableNotificationWrapper skips the "ietf-restconf:notification"
	// envelope on SSE frames, emitting the event payload directly.
	DisableNotificationWrapper bool

	// AllowRpcUnderData permits invoking a top-level RPC via
	// /restconf/data/<rpc> in addition to /restconf/operations/<rpc>,
	// which RFC 8040 §3.6 does not sanction.
	AllowRpcUnderData bool

	// QualifyNamespaceDisabled, when true, omits the module-name prefix
	// that RFC 8040 §4 requires on every emitted name; only sibling nodes
	// sharing their parent's module are ever unqualified under strict
	// compliance.
	QualifyNamespaceDisabled bool
}

// Simplified is a ready-made ComplianceOptions value matching the legacy
// "plain JSON, no envelopes" dialect some client tooling still speaks.
var Simplified = ComplianceOptions{
	DisableActionWrapper:       true,
	DisableNotificationWrapper: true,
	AllowRpcUnderData:          true,
	QualifyNamespaceDisabled:   true,
}

// SimplifiedComplianceParam is the query parameter a client may add to ask
// the gateway to use Simplified compliance for that one connection, the way
// a reverse proxy in front of older tooling might rewrite requests.
const SimplifiedComplianceParam = "simplified"

// Compliance is the process-wide default the outbound device client
// (package client, client_node.go) uses when it talks to a downstream
// RESTCONF device, separate from a Server's own per-instance Compliance
// field for its northbound surface: a gateway commonly proxies to devices
// that speak a stricter or looser dialect than it exposes upstream.
var Compliance = ComplianceOptions{}
