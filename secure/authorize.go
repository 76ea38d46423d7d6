// Package secure implements the path-based access-control model the
// teacher's own node.Selection.Constraints hook exposes (exercised by
// authorize_test.go, kept verbatim from the pack): a Role is a set of
// per-path Permission grants that the freeconf/yang node package consults,
// through AddConstraint/ContextConstraint, on every field read, field
// write, child navigation, action invocation and notification subscribe of
// a Selection built from that Role's context.
//
// In this gateway a Role is populated from the datastore engine's NACM
// rule-lists (spec §4.8) rather than by hand; it is also what backs the
// in-memory reference datastore engine's own enforcement (package
// datastore) in the absence of a real external NACM-capable store.
package secure

import "strings"

// Permission is a bitmask of the operations a path grants.
type Permission int

const (
	None  Permission = 0
	Read  Permission = 1 << 0
	Write Permission = 1 << 1
	Full  Permission = Read | Write
)

func (p Permission) canRead() bool  { return p&Read != 0 }
func (p Permission) canWrite() bool { return p&Write != 0 }

// AccessControl grants Permissions on the subtree rooted at Path (a
// '/'-separated schema node path with no module prefixes, matching how
// authorize_test.go addresses nodes: "birding/owner").
type AccessControl struct {
	Path        string
	Permissions Permission
}

// Role is the set of AccessControl entries active for one user/session. The
// node package's Constraint hook consults it through Check; nothing else in
// this package calls Check directly except tests.
type Role struct {
	Access map[string]*AccessControl
}

// NewRole returns an empty Role: by default every path is hidden for reads
// and unauthorized for writes/notify/action (the "default" case in
// authorize_test.go), until entries are added.
func NewRole() *Role {
	return &Role{Access: map[string]*AccessControl{}}
}

// Grant is a convenience for populating a Role from NACM-shaped input.
func (r *Role) Grant(path string, perm Permission) {
	r.Access[path] = &AccessControl{Path: path, Permissions: perm}
}

// lookup returns the permission grant covering path, using longest-prefix
// match so a deeper entry (e.g. "birding/owner") overrides a shallower one
// (e.g. "birding"), including overriding down to None.
func (r *Role) lookup(path string) (Permission, bool) {
	path = strings.Trim(path, "/")
	best := -1
	var bestPerm Permission
	found := false
	for p, ac := range r.Access {
		p = strings.Trim(p, "/")
		if p != path && !strings.HasPrefix(path, p+"/") && p != "" && path != "" && !strings.HasPrefix(p, path+"/") {
			// neither a prefix of path nor path a prefix of it (irrelevant)
		}
		if p == path || p == "" || strings.HasPrefix(path, p+"/") {
			if len(p) > best {
				best = len(p)
				bestPerm = ac.Permissions
				found = true
			}
		}
	}
	return bestPerm, found
}

// CanRead reports whether path is visible for reading. A path with no
// matching grant is hidden (not an error): callers should silently omit
// it, matching RESTCONF's NACM "filter, don't fail" read semantics.
func (r *Role) CanRead(path string) bool {
	perm, found := r.lookup(path)
	return found && perm.canRead()
}

// CanWrite, CanInvoke and CanNotify report whether path may be mutated,
// invoked (action/RPC) or subscribed to (notification); all three are
// unauthorized, not merely hidden, when no grant exists or the grant denies
// it, matching authorize_test.go's default-case expectations.
func (r *Role) CanWrite(path string) bool {
	perm, found := r.lookup(path)
	return found && perm.canWrite()
}

func (r *Role) CanInvoke(path string) bool {
	perm, found := r.lookup(path)
	return found && perm == Full
}

func (r *Role) CanNotify(path string) bool {
	return r.CanInvoke(path)
}
