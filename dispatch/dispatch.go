// Package dispatch implements the per-method RESTCONF request contracts of
// spec §4.4: it sits between the parsed/resolved request (package uri,
// schema) and one datastore.Session, translating HTTP verbs into
// node.Selection reads/writes and RESTCONF status codes/headers, the way
// browser_handler.go dispatches requests against freeconf/yang's
// node.Browser.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/freeconf/yang/meta"
	"github.com/freeconf/yang/node"
	"github.com/freeconf/yang/nodeutil"

	"github.com/CESNET/rousette-go/apierrors"
	"github.com/CESNET/rousette-go/codec"
	"github.com/CESNET/rousette-go/datastore"
	"github.com/CESNET/rousette-go/schema"
	"github.com/CESNET/rousette-go/uri"
)

// Request is everything the dispatcher needs about one HTTP request, already
// parsed and resolved by the upstream layers. The decoded body (if any) is
// passed to each handler separately, already turned into a node.Node by
// package codec.
type Request struct {
	Method   string
	Path     *uri.ResourcePath
	Query    uri.QueryParams
	Resolved *schema.Resolved

	RequestEncoding  codec.Encoding
	HadRequestBody   bool
	ResponseEncoding codec.Encoding
}

// Dispatcher wires one datastore.Session into the per-method handlers.
type Dispatcher struct {
	Session datastore.Session
	Writer  codec.WriterOptions
}

// Allow computes the Allow header contents for a resolved node kind, per
// spec §4.4's OPTIONS row and §6's 405 rule.
func Allow(k schema.Kind, isDatastoreRoot bool) []string {
	switch k {
	case schema.KindRpcOrAction:
		return []string{"OPTIONS", "POST"}
	default:
		if isDatastoreRoot {
			return []string{"GET", "HEAD", "OPTIONS", "POST", "PUT"}
		}
		return []string{"DELETE", "GET", "HEAD", "OPTIONS", "POST", "PUT", "PATCH"}
	}
}

// AcceptPatch is the fixed set advertised on OPTIONS for patchable
// resources, spec §6.
var AcceptPatch = []string{
	codec.MimeYangDataJSON, codec.MimeYangDataXML,
	codec.MimeYangPatchJSON, codec.MimeYangPatchXML,
}

// Options implements the OPTIONS method: spec §4.4's table row.
func (d *Dispatcher) Options(w http.ResponseWriter, r *Request) error {
	allow := Allow(r.Resolved.Kind, r.Path.IsDatastoreRoot())
	w.Header().Set("Allow", strings.Join(allow, ", "))
	if containsMethod(allow, "PATCH") {
		w.Header().Set("Accept-Patch", strings.Join(AcceptPatch, ", "))
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func containsMethod(methods []string, m string) bool {
	for _, x := range methods {
		if x == m {
			return true
		}
	}
	return false
}

// Get implements GET/HEAD: spec §4.4's first row. head suppresses the body.
func (d *Dispatcher) Get(ctx context.Context, w http.ResponseWriter, r *Request, head bool) error {
	sel, err := d.Session.Select(ctx, r.Resolved.Datastore, r.Resolved.XPath)
	if err != nil {
		return apierrors.Wrap(err)
	}
	if sel.IsNil() {
		return apierrors.DataMissing(r.Resolved.XPath)
	}

	w.Header().Set("Content-Type", codec.MimeFor(r.ResponseEncoding))
	w.WriteHeader(http.StatusOK)
	if head {
		return nil
	}

	out := codec.Writer(r.ResponseEncoding, w, d.Writer)
	if err := sel.InsertInto(out).LastErr; err != nil {
		return apierrors.Wrap(err)
	}
	return nil
}

// Delete implements DELETE: spec §4.4's last row.
func (d *Dispatcher) Delete(ctx context.Context, w http.ResponseWriter, r *Request) error {
	if r.Resolved.Kind == schema.KindRpcOrAction {
		return apierrors.MethodNotSupported("cannot delete an RPC or action node")
	}
	sel, err := d.Session.Select(ctx, r.Resolved.Datastore, r.Resolved.XPath)
	if err != nil {
		return apierrors.Wrap(err)
	}
	if sel.IsNil() {
		return apierrors.DataMissing(r.Resolved.XPath)
	}
	if err := sel.Delete(); err != nil {
		return apierrors.Wrap(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Put implements PUT: spec §4.4's PUT row. It answers 204 when the target
// already existed and 201 when it did not.
func (d *Dispatcher) Put(ctx context.Context, w http.ResponseWriter, r *Request, in node.Node) error {
	if r.Path.IsDatastoreRoot() {
		return apierrors.MethodNotSupported("PUT of the whole datastore root is not supported on this resource")
	}
	if err := checkPutIdentity(r, in); err != nil {
		return err
	}
	existed, err := d.exists(ctx, r)
	if err != nil {
		return err
	}

	sel, err := d.Session.Select(ctx, r.Resolved.Datastore, r.Resolved.XPath)
	if err != nil {
		return apierrors.Wrap(err)
	}
	if err := sel.UpsertFrom(in).LastErr; err != nil {
		return apierrors.Wrap(err)
	}

	if existed {
		w.WriteHeader(http.StatusNoContent)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
	return nil
}

// Post implements POST against a data resource: create-only semantics,
// spec §4.4's POST row ("existing target -> 409").
func (d *Dispatcher) Post(ctx context.Context, w http.ResponseWriter, r *Request, in node.Node) error {
	existed, err := d.exists(ctx, r)
	if err != nil {
		return err
	}
	if existed {
		return apierrors.ResourceExists(fmt.Sprintf("Data already exists for resource '%s'", r.Resolved.XPath))
	}

	sel, err := d.Session.Select(ctx, r.Resolved.Datastore, r.Resolved.XPath)
	if err != nil {
		return apierrors.Wrap(err)
	}
	if err := sel.InsertFrom(in).LastErr; err != nil {
		return apierrors.Wrap(err)
	}

	w.Header().Set("Location", r.Path.String())
	w.WriteHeader(http.StatusCreated)
	return nil
}

// MergePatch implements PATCH with a plain application/yang-data+{json,xml}
// body: a recursive merge into the existing tree, spec §4.4's PATCH row.
func (d *Dispatcher) MergePatch(ctx context.Context, w http.ResponseWriter, r *Request, in node.Node) error {
	sel, err := d.Session.Select(ctx, r.Resolved.Datastore, r.Resolved.XPath)
	if err != nil {
		return apierrors.Wrap(err)
	}
	if err := sel.UpsertFrom(in).LastErr; err != nil {
		return apierrors.Wrap(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Invoke implements POST against an RPC or action node (spec §4.4's POST
// row): 204 when the operation has no output, 200 with the wrapped output
// body otherwise.
func (d *Dispatcher) Invoke(ctx context.Context, w http.ResponseWriter, r *Request, module string, input node.Node) (output node.Node, hasOutput bool, err error) {
	out, err := d.Session.Invoke(ctx, r.Resolved.Datastore, r.Resolved.XPath, input)
	if err != nil {
		return nil, false, apierrors.Wrap(err)
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil, false, nil
	}
	return out, true, nil
}

// checkPutIdentity implements spec §4.4's PUT row invariant: the body must
// contain exactly one top-level node whose identity (module:name) matches
// the URI's terminal segment, and, when the terminal segment names a list
// instance, the payload's key leaf values must equal those in the URI.
// Mismatches are reported as operation-failed with the resource's xpath,
// mirroring the cross-cutting "payload-level module name mismatch" rule.
func checkPutIdentity(r *Request, in node.Node) error {
	text, err := nodeutil.WriteJSON(in)
	if err != nil {
		return apierrors.Wrap(err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return apierrors.MalformedMessage("malformed request body")
	}
	if len(top) != 1 {
		return apierrors.OperationFailed(
			fmt.Sprintf("Data must contain exactly one top-level node matching '%s'", r.Resolved.XPath), r.Resolved.XPath)
	}

	var key string
	var raw json.RawMessage
	for k, v := range top {
		key, raw = k, v
	}

	def := r.Resolved.Definition
	expected := meta.OriginalModule(def).Ident() + ":" + def.Ident()
	if key != expected {
		return apierrors.OperationFailed(
			fmt.Sprintf("Payload node '%s' does not match URI resource '%s'", key, expected), r.Resolved.XPath)
	}

	if r.Resolved.Kind != schema.KindListInstance {
		return nil
	}
	list, ok := def.(*meta.List)
	if !ok {
		return nil
	}
	seg := r.Path.Segments[len(r.Path.Segments)-1]

	var instances []map[string]interface{}
	if err := json.Unmarshal(raw, &instances); err != nil || len(instances) != 1 {
		return apierrors.OperationFailed(
			fmt.Sprintf("List resource '%s' payload must contain exactly one instance", r.Resolved.XPath), r.Resolved.XPath)
	}
	instance := instances[0]
	for i, keyMeta := range list.KeyMeta() {
		if i >= len(seg.Keys) {
			break
		}
		v, found := instance[keyMeta.Ident()]
		if !found {
			return apierrors.OperationFailed(
				fmt.Sprintf("List key '%s' is missing from the payload", keyMeta.Ident()), r.Resolved.XPath)
		}
		if fmt.Sprintf("%v", v) != seg.Keys[i] {
			return apierrors.OperationFailed(
				fmt.Sprintf("List key '%s' in the payload does not match the URI", keyMeta.Ident()), r.Resolved.XPath)
		}
	}
	return nil
}

// exists reports whether the resolved resource currently has data, used by
// PUT/POST to choose 201 vs 204 and to enforce POST's create-only rule.
func (d *Dispatcher) exists(ctx context.Context, r *Request) (bool, error) {
	sel, err := d.Session.Select(ctx, r.Resolved.Datastore, r.Resolved.XPath)
	if err != nil {
		if _, ok := err.(*apierrors.Error); ok {
			return false, nil
		}
		return false, apierrors.Wrap(err)
	}
	return !sel.IsNil(), nil
}
