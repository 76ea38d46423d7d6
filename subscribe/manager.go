package subscribe

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CESNET/rousette-go/codec"
	"github.com/CESNET/rousette-go/datastore"
)

// RecoveryUser is NACM's well-known super-user name (RFC 8341 §3.7); it may
// always attach to or terminate any subscription regardless of Owner.
const RecoveryUser = "recovery"

// Manager is the UUID-indexed subscription registry of spec §4.6. It is the
// single owner of every Subscription it creates (spec §9's cycle-breaking
// note); everything else only ever holds a UUID and calls back through the
// Manager.
type Manager struct {
	engine          datastore.Engine
	inactivityTimer time.Duration

	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewManager creates a Manager bound to engine. inactivityTimeout bounds how
// long a subscription may sit in Start (no attached receiver) before it is
// torn down automatically; <= 0 disables the timer.
func NewManager(engine datastore.Engine, inactivityTimeout time.Duration) *Manager {
	return &Manager{
		engine:          engine,
		inactivityTimer: inactivityTimeout,
		subs:            map[string]*Subscription{},
	}
}

// Establish implements the establish-subscription RPC (RFC 8639 §2.4.1): it
// validates stop-time/replay-start-time against the engine clock (spec §D),
// opens the engine-side subscription, registers it under a fresh UUID, and
// returns the Subscription for the caller to report back (uuid, id) to the
// client.
func (m *Manager) Establish(ctx context.Context, user string, enc codec.Encoding, opts datastore.SubscribeOptions) (*Subscription, error) {
	now := m.engine.Now()
	if opts.StopTime != nil && !opts.StopTime.After(now) {
		return nil, ErrStopTimeInPast
	}
	if opts.ReplayStartTime != nil && opts.ReplayStartTime.After(now) {
		return nil, ErrReplayStartInFuture
	}

	handle, err := m.engine.Subscribe(ctx, user, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	id := uuid.NewString()
	sub := newSubscription(id, user, enc, handle, m.inactivityTimer, m.expire)
	m.subs[id] = sub
	m.mu.Unlock()

	return sub, nil
}

// Lookup returns the Subscription for uuid, or (nil, false) if it does not
// exist (already terminated, or never existed — spec §7 treats both as
// apierrors.NotFound at the HTTP layer).
func (m *Manager) Lookup(id string) (*Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	return sub, ok
}

// Attach binds the calling HTTP receiver to the named subscription.
func (m *Manager) Attach(id, user string) (*Subscription, error) {
	sub, ok := m.Lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	if err := sub.Attach(user, RecoveryUser); err != nil {
		return nil, err
	}
	return sub, nil
}

// OnClientDisconnect is called by the HTTP handler when the streaming
// response's context is done without the subscription having been
// terminated server-side: it returns the subscription to Start and restarts
// the inactivity window (spec §5 cancellation-path note).
func (m *Manager) OnClientDisconnect(id string) {
	sub, ok := m.Lookup(id)
	if !ok {
		return
	}
	sub.ClientDisconnected()
}

// Terminate ends one subscription (delete-subscription RPC, or kill-
// subscription by the recovery user) and removes it from the registry.
func (m *Manager) Terminate(id, user string) error {
	m.mu.Lock()
	sub, ok := m.subs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if user != sub.Owner && user != RecoveryUser {
		m.mu.Unlock()
		return ErrNotOwner
	}
	delete(m.subs, id)
	m.mu.Unlock()
	sub.markTerminating()
	return nil
}

// TerminateByIntID ends the subscription whose engine-allocated integer id
// matches id (the "id" leaf of delete-subscription/kill-subscription RPC
// input, RFC 8639 §2.4.4/§2.4.5), resolving it to the UUID-keyed registry
// entry before delegating to Terminate.
func (m *Manager) TerminateByIntID(id int, user string) error {
	m.mu.Lock()
	var uuid string
	found := false
	for k, sub := range m.subs {
		if sub.IntID() == id {
			uuid, found = k, true
			break
		}
	}
	m.mu.Unlock()
	if !found {
		return ErrNotFound
	}
	return m.Terminate(uuid, user)
}

// expire is the inactivity-timer callback (spec §4.6: a subscription with no
// attached receiver for longer than the configured window is torn down).
func (m *Manager) expire(id string) {
	m.mu.Lock()
	sub, ok := m.subs[id]
	if ok {
		delete(m.subs, id)
	}
	m.mu.Unlock()
	if ok {
		sub.markTerminating()
	}
}

// Stop terminates every live subscription, for graceful server shutdown
// (spec §8).
func (m *Manager) Stop() {
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.subs = map[string]*Subscription{}
	m.mu.Unlock()
	for _, s := range subs {
		s.markTerminating()
	}
}

const (
	ErrStopTimeInPast      subError = "stop-time is not after current time"
	ErrReplayStartInFuture subError = "replay-start-time is in the future"
	ErrNotFound            subError = "no such subscription"
)
