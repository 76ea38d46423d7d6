package subscribe

import (
	"context"
	"testing"
	"time"

	"github.com/CESNET/rousette-go/codec"
	"github.com/CESNET/rousette-go/datastore"
	"github.com/CESNET/rousette-go/secure"
)

type fakeEngine struct {
	now  time.Time
	subs []*fakeSub
}

func (e *fakeEngine) NewSession(ctx context.Context, user string) (datastore.Session, error) {
	return nil, nil
}

func (e *fakeEngine) Now() time.Time { return e.now }

func (e *fakeEngine) NacmRuleLists() []secure.RuleList { return nil }

func (e *fakeEngine) Subscribe(ctx context.Context, user string, opts datastore.SubscribeOptions) (datastore.Subscription, error) {
	s := &fakeSub{events: make(chan datastore.Notification, 4)}
	e.subs = append(e.subs, s)
	return s, nil
}

type fakeSub struct {
	events chan datastore.Notification
	closed bool
}

func (s *fakeSub) IntID() int                              { return 1 }
func (s *fakeSub) Events() <-chan datastore.Notification { return s.events }
func (s *fakeSub) Close() error {
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

func TestEstablishRejectsPastStopTime(t *testing.T) {
	eng := &fakeEngine{now: time.Now()}
	m := NewManager(eng, 0)
	past := eng.now.Add(-time.Minute)
	_, err := m.Establish(context.Background(), "alice", codec.JSON, datastore.SubscribeOptions{StopTime: &past})
	if err != ErrStopTimeInPast {
		t.Fatalf("expected ErrStopTimeInPast, got %v", err)
	}
}

func TestAttachOnlyOneReceiverAtATime(t *testing.T) {
	eng := &fakeEngine{now: time.Now()}
	m := NewManager(eng, 0)
	sub, err := m.Establish(context.Background(), "alice", codec.JSON, datastore.SubscribeOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Attach(sub.UUID, "alice"); err != nil {
		t.Fatalf("first attach should succeed: %v", err)
	}
	if _, err := m.Attach(sub.UUID, "alice"); err != ErrAlreadyAttached {
		t.Fatalf("expected ErrAlreadyAttached, got %v", err)
	}
}

func TestAttachDeniesNonOwner(t *testing.T) {
	eng := &fakeEngine{now: time.Now()}
	m := NewManager(eng, 0)
	sub, _ := m.Establish(context.Background(), "alice", codec.JSON, datastore.SubscribeOptions{})
	if _, err := m.Attach(sub.UUID, "mallory"); err != ErrNotOwner {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := m.Attach(sub.UUID, RecoveryUser); err != nil {
		t.Fatalf("recovery user should be able to attach: %v", err)
	}
}

func TestTerminateRemovesFromRegistry(t *testing.T) {
	eng := &fakeEngine{now: time.Now()}
	m := NewManager(eng, 0)
	sub, _ := m.Establish(context.Background(), "alice", codec.JSON, datastore.SubscribeOptions{})

	if err := m.Terminate(sub.UUID, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Lookup(sub.UUID); ok {
		t.Fatal("expected subscription to be gone from the registry")
	}
	if sub.State() != Terminating {
		t.Fatalf("expected Terminating, got %v", sub.State())
	}
}

func TestClientDisconnectReturnsToStartForReattachment(t *testing.T) {
	eng := &fakeEngine{now: time.Now()}
	m := NewManager(eng, time.Hour)
	sub, _ := m.Establish(context.Background(), "alice", codec.JSON, datastore.SubscribeOptions{})

	if _, err := m.Attach(sub.UUID, "alice"); err != nil {
		t.Fatal(err)
	}
	m.OnClientDisconnect(sub.UUID)
	if sub.State() != Start {
		t.Fatalf("expected Start after disconnect, got %v", sub.State())
	}
	if _, err := m.Attach(sub.UUID, "alice"); err != nil {
		t.Fatalf("expected reattachment to succeed: %v", err)
	}
}

func TestStopTerminatesEverySubscription(t *testing.T) {
	eng := &fakeEngine{now: time.Now()}
	m := NewManager(eng, 0)
	s1, _ := m.Establish(context.Background(), "alice", codec.JSON, datastore.SubscribeOptions{})
	s2, _ := m.Establish(context.Background(), "bob", codec.JSON, datastore.SubscribeOptions{})

	m.Stop()

	if s1.State() != Terminating || s2.State() != Terminating {
		t.Fatal("expected all subscriptions Terminating after Stop")
	}
	if _, ok := m.Lookup(s1.UUID); ok {
		t.Fatal("expected registry to be empty after Stop")
	}
}
