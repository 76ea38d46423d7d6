package subscribe

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/freeconf/yang/nodeutil"

	"github.com/CESNET/rousette-go/codec"
	"github.com/CESNET/rousette-go/datastore"
)

func TestEstablishFromInputBuildsStreamURI(t *testing.T) {
	eng := &fakeEngine{now: time.Now()}
	m := NewManager(eng, 0)
	input := nodeutil.ReflectChild(map[string]interface{}{"stream": "NETCONF"})

	out, err := m.EstablishFromInput(context.Background(), "alice", codec.JSON, "/streams/subscribed/", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := nodeutil.WriteJSON(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, `"subscription-id"`) || !strings.Contains(text, "/streams/subscribed/") {
		t.Fatalf("unexpected output: %s", text)
	}
}

func TestEstablishFromInputRejectsStreamFilterName(t *testing.T) {
	eng := &fakeEngine{now: time.Now()}
	m := NewManager(eng, 0)
	input := nodeutil.ReflectChild(map[string]interface{}{
		"stream":             "NETCONF",
		"stream-filter-name": "some-filter",
	})
	if _, err := m.EstablishFromInput(context.Background(), "alice", codec.JSON, "/streams/subscribed/", input); err == nil {
		t.Fatal("expected stream-filter-name to be rejected")
	}
}

func TestEstablishFromInputRejectsUnknownEncoding(t *testing.T) {
	eng := &fakeEngine{now: time.Now()}
	m := NewManager(eng, 0)
	input := nodeutil.ReflectChild(map[string]interface{}{
		"stream":   "NETCONF",
		"encoding": "encode-cbor",
	})
	if _, err := m.EstablishFromInput(context.Background(), "alice", codec.JSON, "/streams/subscribed/", input); err == nil {
		t.Fatal("expected unsupported encoding to be rejected")
	}
}

func TestTerminateFromInputEndsSubscription(t *testing.T) {
	eng := &fakeEngine{now: time.Now()}
	m := NewManager(eng, 0)
	sub, err := m.Establish(context.Background(), "alice", codec.JSON, datastore.SubscribeOptions{})
	if err != nil {
		t.Fatal(err)
	}

	input := nodeutil.ReflectChild(map[string]interface{}{"id": sub.IntID()})
	if err := m.TerminateFromInput("alice", input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.Lookup(sub.UUID); ok {
		t.Fatal("expected subscription to be gone from the registry")
	}
}

func TestTerminateFromInputDeniesNonOwner(t *testing.T) {
	eng := &fakeEngine{now: time.Now()}
	m := NewManager(eng, 0)
	sub, err := m.Establish(context.Background(), "alice", codec.JSON, datastore.SubscribeOptions{})
	if err != nil {
		t.Fatal(err)
	}

	input := nodeutil.ReflectChild(map[string]interface{}{"id": sub.IntID()})
	if err := m.TerminateFromInput("mallory", input); err != ErrNotOwner {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}
