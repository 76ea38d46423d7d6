package datastore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/freeconf/yang/meta"
	"github.com/freeconf/yang/node"
	"github.com/freeconf/yang/nodeutil"

	"github.com/CESNET/rousette-go/secure"
)

// MemEngine is a reference Engine backed by an in-process YANG data tree
// per datastore, the way client_node.go's clientNode wraps a plain Go map
// with nodeutil.ReflectChild. It exists for tests and for
// cmd/rousette-gatewayd's standalone dev mode; a production deployment
// fronts a real datastore engine (e.g. sysrepo) implementing Engine
// instead.
type MemEngine struct {
	mu        sync.Mutex
	module    *meta.Module
	data      map[string]map[string]interface{} // datastore name -> root
	roles     map[string]*secure.Role           // user -> NACM role
	ruleLists []secure.RuleList
	subs      map[int]*memSubscription
	nextSub   int
	clock     func() time.Time
}

// NewMemEngine creates an engine rooted at module, with empty running and
// operational datastores.
func NewMemEngine(module *meta.Module) *MemEngine {
	return &MemEngine{
		module: module,
		data: map[string]map[string]interface{}{
			Running:     {},
			Operational: {},
			Candidate:   {},
			Startup:     {},
		},
		roles: map[string]*secure.Role{},
		subs:  map[int]*memSubscription{},
		clock: time.Now,
	}
}

// GrantRole installs (or replaces) the NACM role for a user; the "recovery"
// user (NACM's well-known super-user) should be granted secure.Full on "".
func (e *MemEngine) GrantRole(user string, role *secure.Role) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roles[user] = role
}

// SetNacmRuleLists installs the ietf-netconf-acm rule-lists read back by
// NacmRuleLists; a production deployment reconfigures this from live
// /restconf/data/ietf-netconf-acm:nacm/rule-list writes instead.
func (e *MemEngine) SetNacmRuleLists(lists []secure.RuleList) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ruleLists = lists
}

func (e *MemEngine) NacmRuleLists() []secure.RuleList {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ruleLists
}

func (e *MemEngine) Now() time.Time { return e.clock() }

func (e *MemEngine) NewSession(ctx context.Context, user string) (Session, error) {
	e.mu.Lock()
	role := e.roles[user]
	e.mu.Unlock()
	if role == nil {
		role = secure.NewRole()
	}
	return &memSession{engine: e, user: user, role: role}, nil
}

type memSession struct {
	engine *MemEngine
	user   string
	role   *secure.Role
}

func (s *memSession) Close() {}

// Invoke is unimplemented on the in-memory reference engine: RPCs/actions
// have no meaningful behavior over a bare data tree with no application
// logic behind it. Production deployments invoke real engine actions
// through this same Session.Invoke contract.
func (s *memSession) Invoke(ctx context.Context, datastore string, xpath string, input node.Node) (node.Node, error) {
	return nil, fmt.Errorf("action/RPC invocation is not supported by the in-memory reference engine")
}

func (s *memSession) Select(ctx context.Context, datastore string, xpath string) (node.Selection, error) {
	s.engine.mu.Lock()
	root, ok := s.engine.data[datastore]
	s.engine.mu.Unlock()
	if !ok {
		return node.Selection{}, fmt.Errorf("unknown datastore %q", datastore)
	}
	n := nodeutil.ReflectChild(root)
	b := node.NewBrowser(s.engine.module, n)
	sel := b.Root()
	if !s.role.CanRead(s.engine.module.Ident()) && xpath == "/" {
		return node.Selection{}, fmt.Errorf("access denied")
	}
	if xpath == "" || xpath == "/" {
		return sel, nil
	}
	found, err := sel.Find(xpath)
	if err != nil {
		return node.Selection{}, err
	}
	return *found, nil
}

func (e *MemEngine) Subscribe(ctx context.Context, user string, opts SubscribeOptions) (Subscription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSub++
	id := e.nextSub
	sub := &memSubscription{
		id:     id,
		events: make(chan Notification, 64),
		done:   make(chan struct{}),
	}
	e.subs[id] = sub
	if opts.StopTime != nil {
		d := opts.StopTime.Sub(e.clock())
		if d > 0 {
			go func() {
				t := time.NewTimer(d)
				defer t.Stop()
				select {
				case <-t.C:
					sub.Close()
				case <-sub.done:
				}
			}()
		}
	}
	return sub, nil
}

// Publish fans a notification out to every live subscription; a real engine
// would instead be the originator of such events from datastore change
// callbacks.
func (e *MemEngine) Publish(n node.Node) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock()
	for _, sub := range e.subs {
		select {
		case sub.events <- Notification{EventTime: now, Event: n}:
		default:
		}
	}
}

type memSubscription struct {
	id     int
	events chan Notification
	done   chan struct{}
	once   sync.Once
}

func (s *memSubscription) IntID() int                      { return s.id }
func (s *memSubscription) Events() <-chan Notification { return s.events }
func (s *memSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		close(s.events)
	})
	return nil
}
