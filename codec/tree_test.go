package codec

import (
	"strings"
	"testing"
)

func TestReadBodyRejectsNetconfOperationAttr(t *testing.T) {
	body := strings.NewReader(`{"example:enabled": true, "@ietf-netconf:operation": "merge"}`)
	if _, err := ReadBody(JSON, body, nil); err == nil {
		t.Fatal("expected ietf-netconf:operation metadata to be rejected")
	}
}

func TestReadBodyAcceptsPlainPayload(t *testing.T) {
	body := strings.NewReader(`{"example:enabled": true}`)
	if _, err := ReadBody(JSON, body, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRejectNetconfOperationAttrNilDefinition(t *testing.T) {
	raw := map[string]interface{}{"@ietf-netconf:operation": "delete"}
	if err := RejectNetconfOperationAttr(raw, nil); err == nil {
		t.Fatal("expected rejection even with a nil definition")
	}
}
