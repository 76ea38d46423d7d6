package secure

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/freeconf/yang/fc"

	"github.com/CESNET/rousette-go/apierrors"
)

// Identity is the outcome of the auth gate for one request: the resolved
// user, bound to the datastore session that enforces NACM.
type Identity struct {
	User string
}

// AnonymousPolicy reports whether the anonymous identity may operate right
// now; it is re-evaluated on every request because NACM config can change
// at any time (spec §4.8).
type AnonymousPolicy interface {
	AnonymousAllowed() bool
}

// AnonymousPolicyFunc adapts a function to AnonymousPolicy.
type AnonymousPolicyFunc func() bool

func (f AnonymousPolicyFunc) AnonymousAllowed() bool { return f() }

// Gate is the auth gate of spec §4.8: HTTP-Basic credential validation with
// a configurable failure delay, anonymous-access policy enforcement, and
// per-session user binding.
type Gate struct {
	Auth     Authenticator
	Policy   AnonymousPolicy
	Service  string // PAM service name, default "rousette"
}

func NewGate(auth Authenticator, policy AnonymousPolicy) *Gate {
	return &Gate{Auth: auth, Policy: policy, Service: "rousette"}
}

// Authenticate implements steps 1-3 of spec §4.8. On failure it returns the
// classified *apierrors.Error and, when PAM reported one, a fail delay the
// caller must apply before writing the response (step 4), honoring client
// disconnect via ctx.
func (g *Gate) Authenticate(ctx context.Context, r *http.Request) (Identity, *apierrors.Error, time.Duration) {
	peer := remoteHost(r)
	header := r.Header.Get("Authorization")

	if header == "" {
		if g.Policy == nil || !g.Policy.AnonymousAllowed() {
			return Identity{}, apierrors.AuthDenied("anonymous access is not permitted"), 0
		}
		return Identity{User: AnonymousUser}, nil, 0
	}

	user, pass, err := parseBasic(header)
	if err != nil {
		return Identity{}, apierrors.AuthDenied("malformed Authorization header"), 0
	}

	res, authErr := g.Auth.Authenticate(ctx, g.Service, user, pass, peer)
	delay := time.Duration(res.FailDelayMicros) * time.Microsecond
	if authErr != nil {
		fc.Debug.Printf("auth failed for user %q from %s: %s", user, peer, authErr)
		return Identity{}, apierrors.AuthDenied("authentication failed"), delay
	}
	return Identity{User: res.User}, nil, 0
}

// Delayed schedules fn to run after delay, unless ctx is done first (client
// disconnected before the fail-delay elapsed), per spec §4.8 step 4.
func Delayed(ctx context.Context, delay time.Duration, fn func()) {
	if delay <= 0 {
		fn()
		return
	}
	t := time.NewTimer(delay)
	go func() {
		defer t.Stop()
		select {
		case <-t.C:
			fn()
		case <-ctx.Done():
		}
	}()
}

// parseBasic decodes a "Basic <b64>" Authorization header, splitting on the
// first colon only so a password containing ':' is preserved verbatim
// (spec §8 testable property).
func parseBasic(header string) (user, pass string, err error) {
	const prefix = "basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", errAuthFailed
	}
	raw, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if decErr != nil {
		return "", "", errAuthFailed
	}
	i := strings.IndexByte(string(raw), ':')
	if i < 0 {
		return "", "", errAuthFailed
	}
	return string(raw[:i]), string(raw[i+1:]), nil
}

func remoteHost(r *http.Request) string {
	if h := r.Header.Get("Forwarded"); h != "" {
		if host := parseForwardedFor(h); host != "" {
			return host
		}
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

func parseForwardedFor(h string) string {
	for _, part := range strings.Split(h, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(strings.ToLower(part), "for=") {
			return strings.Trim(part[len("for="):], `"`)
		}
	}
	return ""
}
