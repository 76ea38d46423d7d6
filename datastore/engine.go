// Package datastore defines the interface this gateway consumes from the
// external datastore engine (spec §1: "the datastore engine that stores
// data, enforces NACM and invokes change callbacks" is an out-of-scope
// collaborator — only the interface the core needs from it is specified
// here) plus one reference in-memory implementation, built on
// github.com/freeconf/yang's node.Browser/Selection, used by tests and by
// the standalone dev server in cmd/rousette-gatewayd.
package datastore

import (
	"context"
	"time"

	"github.com/freeconf/yang/node"

	"github.com/CESNET/rousette-go/secure"
)

// Datastore names, spec §3.
const (
	Running     = "running"
	Operational = "operational"
	Candidate   = "candidate"
	Startup     = "startup"
)

// Session binds a single request (or a shared read-only session) to an
// authenticated user, so the engine's own NACM enforcement (RFC 8341) knows
// whose rules to apply. Spec §5: "one session per request for write
// methods; a shared read session is acceptable."
type Session interface {
	// Select returns a Selection rooted at the given datastore positioned
	// at xpath, already filtered by this session's NACM read rules.
	Select(ctx context.Context, datastore string, xpath string) (node.Selection, error)

	// Invoke calls the RPC/action at xpath with the given input tree
	// (nil for no input) and returns its output tree (nil for no output),
	// already filtered by this session's NACM invoke rules.
	Invoke(ctx context.Context, datastore string, xpath string, input node.Node) (node.Node, error)

	Close()
}

// Engine is the whole of what the dispatcher, the subscription manager and
// the schema service need from the datastore engine.
type Engine interface {
	// NewSession binds user to a new engine session for the duration of
	// one request.
	NewSession(ctx context.Context, user string) (Session, error)

	// Subscribe establishes a notification subscription against stream,
	// optionally filtered by xpath, optionally time-bounded, and returns a
	// live handle. It does not report the replay-start-time the engine
	// actually used, so a replay start adjusted by the engine is not visible
	// to callers.
	Subscribe(ctx context.Context, user string, opts SubscribeOptions) (Subscription, error)

	// Now is consulted to validate stop-time/replay-start-time against
	// "now" (spec §D, from DynamicSubscriptions.cpp).
	Now() time.Time

	// NacmRuleLists returns the current ietf-netconf-acm rule-lists, in
	// configured order, so the auth gate can re-evaluate
	// secure.AnonymousAccessAllowed on every request (spec §4.8: "NACM
	// config can change at any time").
	NacmRuleLists() []secure.RuleList
}

// SubscribeOptions is the establish-subscription input the subscription
// manager (package subscribe) passes to the engine, after parsing the RPC
// input and validating it against spec invariants.
type SubscribeOptions struct {
	Stream          string
	XPathFilter     string
	StopTime        *time.Time
	ReplayStartTime *time.Time
}

// Subscription is a live engine-side notification source. The engine owns
// the underlying file descriptor / channel; callers only ever observe
// Events() and call Close() to tear it down (spec §3 Ownership note).
type Subscription interface {
	// IntID is the integer subscription id the engine allocated.
	IntID() int
	// Events yields notifications until the engine closes the channel
	// (subscription ended on the engine side: stop-time reached, or
	// terminated).
	Events() <-chan Notification
	// Close asks the engine to tear the subscription down; safe to call
	// more than once.
	Close() error
}

// Notification is one change/event delivered by the engine.
type Notification struct {
	EventTime time.Time
	Event     node.Node
}
