package secure

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseBasicPreservesColonInPassword(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte("alice:pa:ss:word"))
	user, pass, err := parseBasic("Basic " + raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != "alice" || pass != "pa:ss:word" {
		t.Fatalf("got user=%q pass=%q", user, pass)
	}
}

func TestAuthenticateAnonymousDeniedByDefault(t *testing.T) {
	g := NewGate(DenyAllAuthenticator(0), AnonymousPolicyFunc(func() bool { return false }))
	r := httptest.NewRequest(http.MethodGet, "/restconf/data/x:y", nil)
	_, apiErr, _ := g.Authenticate(context.Background(), r)
	if apiErr == nil {
		t.Fatal("expected anonymous access to be denied")
	}
}

func TestAuthenticateAnonymousAllowed(t *testing.T) {
	g := NewGate(DenyAllAuthenticator(0), AnonymousPolicyFunc(func() bool { return true }))
	r := httptest.NewRequest(http.MethodGet, "/restconf/data/x:y", nil)
	id, apiErr, _ := g.Authenticate(context.Background(), r)
	if apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}
	if id.User != AnonymousUser {
		t.Fatalf("expected anonymous identity, got %q", id.User)
	}
}

func TestAuthenticateBasicSuccess(t *testing.T) {
	auth := AuthenticatorFunc(func(ctx context.Context, service, user, pass, peer string) (Result, error) {
		if user == "bob" && pass == "secret" {
			return Result{User: "bob"}, nil
		}
		return Result{}, errAuthFailed
	})
	g := NewGate(auth, AnonymousPolicyFunc(func() bool { return false }))
	r := httptest.NewRequest(http.MethodGet, "/restconf/data/x:y", nil)
	r.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("bob:secret")))
	id, apiErr, _ := g.Authenticate(context.Background(), r)
	if apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}
	if id.User != "bob" {
		t.Fatalf("unexpected user: %q", id.User)
	}
}

func TestDelayedCancelledByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{})
	Delayed(ctx, 50*time.Millisecond, func() { close(ran) })
	cancel()
	select {
	case <-ran:
		t.Fatal("callback should not have run after cancellation")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAnonymousAccessAllowedStrictFirstRuleListOnly(t *testing.T) {
	good := []RuleList{
		{Groups: []string{AnonymousGroup}, Rules: []Rule{
			{AccessOperations: "read"},
			{ModuleName: "*", Action: "deny"},
		}},
	}
	if !AnonymousAccessAllowed(good) {
		t.Fatal("expected anonymous access to be allowed")
	}

	badOrder := []RuleList{
		{Groups: []string{AnonymousGroup}, Rules: []Rule{
			{ModuleName: "*", Action: "deny"},
			{AccessOperations: "read"},
		}},
	}
	if AnonymousAccessAllowed(badOrder) {
		t.Fatal("expected anonymous access to be denied when deny rule isn't last")
	}

	wrongGroup := []RuleList{
		{Groups: []string{"operator"}, Rules: []Rule{
			{AccessOperations: "read"},
			{ModuleName: "*", Action: "deny"},
		}},
	}
	if AnonymousAccessAllowed(wrongGroup) {
		t.Fatal("expected anonymous access to be denied for wrong group")
	}
}
