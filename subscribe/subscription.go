// Package subscribe implements the dynamic-subscription lifecycle of spec
// §4.6/§4.7 (RFC 8639/8040 §6.3): establish/terminate, a UUID-indexed
// registry, inactivity timers, and disconnect/reconnect handoff between one
// HTTP receiver at a time and its backing datastore-engine subscription.
package subscribe

import (
	"sync"
	"time"

	"github.com/CESNET/rousette-go/codec"
	"github.com/CESNET/rousette-go/datastore"
)

// State is the Subscription state machine of spec §3.
type State int

const (
	Start State = iota
	ReceiverActive
	Terminating
)

// Subscription is a single dynamic subscription. Per spec §9's cycle-
// breaking note, it holds only its UUID plus a callback into the owning
// Manager — never an owning reference back to it — so the
// stream<->subscription<->manager graph has exactly one owner
// (Manager.subs) and no reference cycle.
type Subscription struct {
	mu sync.Mutex

	UUID     string
	Owner    string
	Encoding codec.Encoding

	state   State
	handle  datastore.Subscription
	timer   *time.Timer
	timeout time.Duration

	onExpire func(uuid string) // Manager.expire, set at construction
}

func newSubscription(uuid, owner string, enc codec.Encoding, handle datastore.Subscription, timeout time.Duration, onExpire func(string)) *Subscription {
	s := &Subscription{
		UUID:     uuid,
		Owner:    owner,
		Encoding: enc,
		state:    Start,
		handle:   handle,
		timeout:  timeout,
		onExpire: onExpire,
	}
	s.armTimer()
	return s
}

func (s *Subscription) armTimer() {
	if s.timeout <= 0 {
		return
	}
	s.timer = time.AfterFunc(s.timeout, func() { s.onExpire(s.UUID) })
}

func (s *Subscription) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

// State returns the current state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attach implements spec §3's Invariant: only one HTTP receiver may be
// attached at a time. It succeeds from Start (moving to ReceiverActive),
// fails from ReceiverActive (already attached), and fails from Terminating
// (subscription is going away).
func (s *Subscription) Attach(user, recoveryUser string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Terminating:
		return ErrGone
	case ReceiverActive:
		return ErrAlreadyAttached
	}
	if user != s.Owner && user != recoveryUser {
		return ErrNotOwner
	}
	s.state = ReceiverActive
	s.cancelTimer()
	return nil
}

// ClientDisconnected re-enters Start and restarts the inactivity window, per
// spec §5's cancellation rule, unless the subscription is already
// Terminating.
func (s *Subscription) ClientDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Terminating {
		return
	}
	s.state = Start
	s.armTimer()
}

// Events exposes the underlying engine handle's notification channel.
func (s *Subscription) Events() <-chan datastore.Notification {
	return s.handle.Events()
}

// IntID returns the engine-allocated integer subscription id, reported back
// to the client as establish-subscription's "subscription-id" output leaf.
func (s *Subscription) IntID() int {
	return s.handle.IntID()
}

// markTerminating transitions to Terminating and tears down the engine
// handle and timer; further calls are no-ops (spec §3: "in Terminating
// ignores further state transitions").
func (s *Subscription) markTerminating() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Terminating {
		return
	}
	s.state = Terminating
	s.cancelTimer()
	_ = s.handle.Close()
}

type subError string

func (e subError) Error() string { return string(e) }

const (
	ErrGone            subError = "subscription is terminating"
	ErrAlreadyAttached subError = "subscription already has an active receiver"
	ErrNotOwner        subError = "subscription belongs to a different user"
)
