package subscribe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/freeconf/yang/node"
	"github.com/freeconf/yang/nodeutil"

	"github.com/CESNET/rousette-go/codec"
	"github.com/CESNET/rousette-go/datastore"
)

// Well-known ietf-subscribed-notifications RPC names. A bare in-memory
// datastore engine has nowhere to keep the UUID-indexed subscription
// registry, so server.go special-cases these three ahead of the generic
// engine Invoke path and routes them here instead.
const (
	EstablishSubscriptionRPC = "establish-subscription"
	DeleteSubscriptionRPC    = "delete-subscription"
	KillSubscriptionRPC      = "kill-subscription"
)

// IsWellKnownRPC reports whether rpcName (bare, unqualified) names one of
// the three RPCs above.
func IsWellKnownRPC(rpcName string) bool {
	switch rpcName {
	case EstablishSubscriptionRPC, DeleteSubscriptionRPC, KillSubscriptionRPC:
		return true
	}
	return false
}

type establishInput struct {
	Stream           string     `json:"stream"`
	StreamFilterName string     `json:"stream-filter-name"`
	XPathFilter      string     `json:"stream-xpath-filter"`
	StopTime         *time.Time `json:"stop-time"`
	ReplayStartTime  *time.Time `json:"replay-start-time"`
	Encoding         string     `json:"encoding"`
}

// EstablishFromInput implements spec §4.6's establish() operation end to
// end: parse the establish-subscription RPC input, reject
// stream-filter-name, resolve encoding, open the subscription and build its
// {subscription-id, stream-uri} output tree. streamURLRoot is the gateway's
// configured stream URL root (e.g. "/streams/subscribed/").
//
// replay-start-time-revision is never emitted: datastore.Engine.Subscribe
// reports only a live handle, not an adjusted replay time, so there is
// nothing to compare against the request to decide the leaf is needed.
func (m *Manager) EstablishFromInput(ctx context.Context, user string, requestEncoding codec.Encoding, streamURLRoot string, input node.Node) (node.Node, error) {
	in, err := decodeRPCInput[establishInput](input)
	if err != nil {
		return nil, err
	}
	if in.StreamFilterName != "" {
		return nil, fmt.Errorf("stream-filter-name is not supported")
	}

	enc := requestEncoding
	if in.Encoding != "" {
		var ok bool
		enc, ok = encodingFromIdentity(in.Encoding)
		if !ok {
			return nil, fmt.Errorf("unsupported encoding '%s'", in.Encoding)
		}
	}

	sub, err := m.Establish(ctx, user, enc, datastore.SubscribeOptions{
		Stream:          in.Stream,
		XPathFilter:     in.XPathFilter,
		StopTime:        in.StopTime,
		ReplayStartTime: in.ReplayStartTime,
	})
	if err != nil {
		return nil, err
	}

	return nodeutil.ReflectChild(map[string]interface{}{
		"subscription-id": sub.IntID(),
		"uri":             streamURLRoot + sub.UUID,
	}), nil
}

// encodingFromIdentity maps the ietf-subscribed-notifications encoding
// identityref leaf (bare or module-qualified) to an internal codec.Encoding.
func encodingFromIdentity(name string) (codec.Encoding, bool) {
	switch name {
	case "encode-json", "ietf-subscribed-notifications:encode-json":
		return codec.JSON, true
	case "encode-xml", "ietf-subscribed-notifications:encode-xml":
		return codec.XML, true
	default:
		return codec.Unset, false
	}
}

type idInput struct {
	ID int `json:"id"`
}

// TerminateFromInput implements delete-subscription and kill-subscription
// (RFC 8639 §2.4.4/§2.4.5): both take a single "id" input leaf naming the
// subscription's integer subscription-id and tear it down via
// Manager.Terminate's existing owner/recovery-user check.
func (m *Manager) TerminateFromInput(user string, input node.Node) error {
	in, err := decodeRPCInput[idInput](input)
	if err != nil {
		return err
	}
	return m.TerminateByIntID(in.ID, user)
}

// decodeRPCInput round-trips an RPC input tree through JSON into a small
// private struct, avoiding a hand-rolled node.Selection walk for a handful
// of scalar leaves.
func decodeRPCInput[T any](input node.Node) (T, error) {
	var out T
	if input == nil {
		return out, nil
	}
	text, err := nodeutil.WriteJSON(input)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, fmt.Errorf("parsing RPC input: %w", err)
	}
	return out, nil
}
