// Package restconf is the gateway's bootstrap layer: it wires the URI
// parser, schema resolver, payload codec, auth gate, request dispatcher,
// subscription manager and datastore engine into one http.Handler, and
// serves it over HTTP/2 (h2c in development, TLS-terminated h2 in
// production — TLS itself is out of scope, see SPEC_FULL.md §1), the way
// browser_handler.go's Handler composes the same pieces against
// freeconf/yang's node.Browser.
package restconf

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/freeconf/yang/fc"
	"github.com/freeconf/yang/node"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/CESNET/rousette-go/apierrors"
	"github.com/CESNET/rousette-go/codec"
	"github.com/CESNET/rousette-go/datastore"
	"github.com/CESNET/rousette-go/dispatch"
	"github.com/CESNET/rousette-go/schema"
	"github.com/CESNET/rousette-go/secure"
	"github.com/CESNET/rousette-go/subscribe"
	"github.com/CESNET/rousette-go/uri"
	"github.com/CESNET/rousette-go/yanglib"
)

// Server is the RESTCONF gateway's HTTP surface, spec §6.
type Server struct {
	Engine     datastore.Engine
	Gate       *secure.Gate
	Modules    schema.ModuleLookup
	Subs       *subscribe.Manager
	Library    *yanglib.Library
	Compliance ComplianceOptions

	KeepAlive       time.Duration
	MaxEventsPerWake int

	// StreamURLRoot is the path prefix notification stream URLs are served
	// under and reported back from establish-subscription (spec §4.6/§4.7);
	// defaults to "/streams/subscribed/".
	StreamURLRoot string

	httpSrv *http.Server
}

// NewServer wires the dependencies above into a ready-to-serve Server with
// KeepAlive 30s, MaxEventsPerWake 16 and StreamURLRoot
// "/streams/subscribed/" as defaults. MaxEventsPerWake is stored but not read
// by the stream path: each notification is forwarded as it arrives, with no
// per-wake bound.
func NewServer(engine datastore.Engine, gate *secure.Gate, modules schema.ModuleLookup, subs *subscribe.Manager, lib *yanglib.Library) *Server {
	return &Server{
		Engine:           engine,
		Gate:             gate,
		Modules:          modules,
		Subs:             subs,
		Library:          lib,
		KeepAlive:        30 * time.Second,
		MaxEventsPerWake: 16,
		StreamURLRoot:    "/streams/subscribed/",
	}
}

// ListenAndServe starts the gateway on addr using cleartext HTTP/2 (h2c),
// matching the teacher's development/test posture; a production deployment
// fronts this with a TLS-terminating proxy speaking h2.
func (s *Server) ListenAndServe(addr string) error {
	h2s := &http2.Server{}
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(s, h2s),
	}
	fc.Debug.Printf("listening on %s", addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting new connections, terminates every live
// subscription (spec §4.6 stop()) and gives in-flight requests/streams up
// to 5 seconds to finish, per spec §5's "shutdown must complete within
// seconds".
func (s *Server) Shutdown(ctx context.Context) error {
	if s.Subs != nil {
		s.Subs.Stop()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if strings.HasPrefix(r.URL.Path, "/streams/") {
		s.serveStream(w, r)
		return
	}

	path, query, err := uri.ParseURI(r.URL.Path, r.URL.RawQuery)
	if err != nil {
		s.writeError(w, codec.JSON, apierrors.UriSyntax(err.Error()))
		return
	}

	if path.Root == uri.RootYangSchema {
		s.serveYang(w, r, path)
		return
	}
	if path.Root == uri.RootYangLibraryVersion {
		s.serveYangLibraryVersion(w, r)
		return
	}

	isWrite := r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodOptions
	resolved, err := schema.Resolve(s.Modules, path, isWrite)
	if err != nil {
		s.writeError(w, codec.JSON, err)
		return
	}

	respEnc, reqEnc, hadBody, err := s.negotiate(r)
	if err != nil {
		s.writeError(w, respEnc, err)
		return
	}

	identity, authErr, delay := s.Gate.Authenticate(r.Context(), r)
	if authErr != nil {
		secure.Delayed(r.Context(), delay, func() {
			s.writeError(w, respEnc, authErr)
		})
		return
	}

	session, err := s.Engine.NewSession(r.Context(), identity.User)
	if err != nil {
		s.writeError(w, respEnc, apierrors.Wrap(err))
		return
	}
	defer session.Close()

	d := &dispatch.Dispatcher{Session: session, Writer: codec.WriterOptions{QualifyNamespace: !s.Compliance.QualifyNamespaceDisabled}}
	req := &dispatch.Request{
		Method:           r.Method,
		Path:             path,
		Query:            query,
		Resolved:         resolved,
		RequestEncoding:  reqEnc,
		HadRequestBody:   hadBody,
		ResponseEncoding: respEnc,
	}

	if err := s.route(r.Context(), w, r, d, req, identity.User); err != nil {
		s.writeError(w, respEnc, err)
	}
}

func (s *Server) route(ctx context.Context, w http.ResponseWriter, r *http.Request, d *dispatch.Dispatcher, req *dispatch.Request, user string) error {
	switch r.Method {
	case http.MethodGet:
		return d.Get(ctx, w, req, false)
	case http.MethodHead:
		return d.Get(ctx, w, req, true)
	case http.MethodOptions:
		return d.Options(w, req)
	case http.MethodDelete:
		return d.Delete(ctx, w, req)
	case http.MethodPut:
		in, err := codec.ReadBody(req.RequestEncoding, r.Body, req.Resolved.Definition)
		if err != nil {
			return err
		}
		return d.Put(ctx, w, req, in)
	case http.MethodPost:
		if req.Resolved.Kind == schema.KindRpcOrAction {
			return s.invokeAction(ctx, w, r, d, req, user)
		}
		in, err := codec.ReadBody(req.RequestEncoding, r.Body, req.Resolved.Definition)
		if err != nil {
			return err
		}
		return d.Post(ctx, w, req, in)
	case http.MethodPatch:
		return s.patch(ctx, w, r, d, req)
	default:
		return apierrors.MethodNotSupported("method " + r.Method + " is not supported")
	}
}

func (s *Server) patch(ctx context.Context, w http.ResponseWriter, r *http.Request, d *dispatch.Dispatcher, req *dispatch.Request) error {
	ct, kind, err := codec.ParseContentType(r.Header.Get("Content-Type"))
	if err != nil {
		return err
	}
	if kind == codec.MediaPatch {
		edits, err := dispatch.ParseYangPatch(ct, r.Body)
		if err != nil {
			return err
		}
		return d.ApplyYangPatch(ctx, w, req, edits)
	}
	in, err := codec.ReadBody(ct, r.Body, req.Resolved.Definition)
	if err != nil {
		return err
	}
	return d.MergePatch(ctx, w, req, in)
}

func (s *Server) invokeAction(ctx context.Context, w http.ResponseWriter, r *http.Request, d *dispatch.Dispatcher, req *dispatch.Request, user string) error {
	module := yanglib.OriginalModuleName(req.Resolved.Definition)
	rpcName := req.Resolved.Definition.Ident()

	var input node.Node
	if req.HadRequestBody {
		in, err := codec.ReadWrappedInput(req.RequestEncoding, r.Body, module+":input")
		if err != nil {
			return err
		}
		input = in
	}

	if module == "ietf-subscribed-notifications" && subscribe.IsWellKnownRPC(rpcName) {
		return s.invokeSubscriptionRPC(ctx, w, d, req, rpcName, user, input)
	}

	output, hasOutput, err := d.Invoke(ctx, w, req, module, input)
	if err != nil {
		return err
	}
	if !hasOutput {
		return nil
	}

	w.Header().Set("Content-Type", codec.MimeFor(req.ResponseEncoding))
	w.WriteHeader(http.StatusOK)
	b := node.NewBrowser(req.Resolved.Module, output)
	return codec.WriteWrapped(req.ResponseEncoding, w, module, d.Writer, func(out node.Node) error {
		return b.Root().InsertInto(out).LastErr
	})
}

// invokeSubscriptionRPC handles establish-subscription/delete-subscription/
// kill-subscription directly against s.Subs: the in-memory reference engine
// has no notion of the UUID-indexed subscription registry, so these three
// well-known RPCs never go through the generic Session.Invoke path (spec
// §4.6).
func (s *Server) invokeSubscriptionRPC(ctx context.Context, w http.ResponseWriter, d *dispatch.Dispatcher, req *dispatch.Request, rpcName, user string, input node.Node) error {
	const module = "ietf-subscribed-notifications"

	if rpcName == subscribe.EstablishSubscriptionRPC {
		output, err := s.Subs.EstablishFromInput(ctx, user, req.RequestEncoding, s.StreamURLRoot, input)
		if err != nil {
			return subscriptionRPCError(err)
		}
		w.Header().Set("Content-Type", codec.MimeFor(req.ResponseEncoding))
		w.WriteHeader(http.StatusOK)
		b := node.NewBrowser(req.Resolved.Module, output)
		return codec.WriteWrapped(req.ResponseEncoding, w, module, d.Writer, func(out node.Node) error {
			return b.Root().InsertInto(out).LastErr
		})
	}

	if err := s.Subs.TerminateFromInput(user, input); err != nil {
		return subscriptionRPCError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// subscriptionRPCError classifies errors from the subscribe package into
// the RESTCONF error taxonomy, mirroring serveStream's switch below for the
// same sentinel errors.
func subscriptionRPCError(err error) error {
	switch err {
	case subscribe.ErrNotFound:
		return apierrors.NotFound(err.Error())
	case subscribe.ErrNotOwner:
		return apierrors.NacmDenied(err.Error(), "")
	case subscribe.ErrStopTimeInPast, subscribe.ErrReplayStartInFuture:
		return apierrors.InvalidValue(err.Error(), "")
	default:
		return apierrors.Wrap(err)
	}
}

func (s *Server) negotiate(r *http.Request) (respEnc codec.Encoding, reqEnc codec.Encoding, hadBody bool, err error) {
	ct := r.Header.Get("Content-Type")
	if ct != "" {
		reqEnc, _, err = codec.ParseContentType(ct)
		if err != nil {
			return codec.JSON, codec.Unset, false, err
		}
		hadBody = true
	}
	respEnc, err = codec.ResponseEncoding(r.Header.Get("Accept"), reqEnc, hadBody)
	return respEnc, reqEnc, hadBody, err
}

func (s *Server) writeError(w http.ResponseWriter, enc codec.Encoding, err error) {
	e := apierrors.Wrap(err)
	apiEnc := apierrors.JSON
	if enc == codec.XML {
		apiEnc = apierrors.XML
	}
	apierrors.Write(w, apiEnc, e)
}

func (s *Server) serveYangLibraryVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		fmt.Fprint(w, "2019-01-04")
	}
}

func (s *Server) serveYang(w http.ResponseWriter, r *http.Request, path *uri.ResourcePath) {
	identity, authErr, delay := s.Gate.Authenticate(r.Context(), r)
	if authErr != nil {
		secure.Delayed(r.Context(), delay, func() { s.writeError(w, codec.JSON, authErr) })
		return
	}
	role := secure.NewRole() // real role lookup belongs to the engine/NACM layer
	_ = identity
	if err := s.Library.ServeModule(w, r, role, path.YangModule, path.YangRevision); err != nil {
		s.writeError(w, codec.JSON, err)
	}
}

func (s *Server) serveStream(w http.ResponseWriter, r *http.Request) {
	uuid, ok := strings.CutPrefix(r.URL.Path, s.StreamURLRoot)
	if !ok {
		http.NotFound(w, r)
		return
	}
	identity, authErr, delay := s.Gate.Authenticate(r.Context(), r)
	if authErr != nil {
		secure.Delayed(r.Context(), delay, func() { s.writeError(w, codec.JSON, authErr) })
		return
	}
	if err := s.Subs.Receive(r.Context(), w, uuid, identity.User, s.KeepAlive); err != nil {
		switch err {
		case subscribe.ErrNotFound:
			s.writeError(w, codec.JSON, apierrors.NotFound("no such subscription '"+uuid+"'"))
		case subscribe.ErrAlreadyAttached:
			s.writeError(w, codec.JSON, apierrors.ResourceExists("subscription '"+uuid+"' already has an active receiver"))
		case subscribe.ErrGone:
			s.writeError(w, codec.JSON, apierrors.NotFound("subscription '"+uuid+"' is terminating"))
		case subscribe.ErrNotOwner:
			s.writeError(w, codec.JSON, apierrors.NacmDenied("subscription '"+uuid+"' belongs to a different user", ""))
		default:
			fc.Debug.Printf("stream %s ended: %s", uuid, err)
		}
	}
}
