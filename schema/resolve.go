// Package schema walks a loaded YANG schema (via github.com/freeconf/yang/meta)
// to resolve a parsed uri.ResourcePath into a canonical datastore path, per
// spec §4.2. It never performs I/O; all context comes from the in-memory
// schema tree handed to it by the caller.
package schema

import (
	"fmt"

	"github.com/freeconf/yang/meta"

	"github.com/CESNET/rousette-go/apierrors"
	"github.com/CESNET/rousette-go/uri"
)

// Kind classifies the terminal node of a resolved path.
type Kind int

const (
	KindContainer Kind = iota
	KindList
	KindListInstance
	KindLeaf
	KindLeafList
	KindLeafListInstance
	KindRpcOrAction
	KindNotification
)

// Resolved is the output of resolving a uri.ResourcePath against schema.
type Resolved struct {
	Datastore  string
	XPath      string
	Kind       Kind
	Definition meta.Definition
	Module     *meta.Module
}

// ModuleLookup resolves a bare module name to its loaded *meta.Module, as
// would a registry populated from the YANG library at startup.
type ModuleLookup func(name string) (*meta.Module, bool)

// Resolve implements spec §4.2's algorithm. isWrite selects the effective
// datastore and distinguishes the two RPC/action "wrong namespace" messages
// ("is not a data resource" for reads, "is an RPC/Action node" for
// writes/OPTIONS). A bare list/leaf-list resource (zero keys) is accepted
// for every method; isWrite does not restrict it.
func Resolve(lookup ModuleLookup, path *uri.ResourcePath, isWrite bool) (*Resolved, error) {
	if len(path.Segments) == 0 {
		return &Resolved{Datastore: path.EffectiveDatastore(isWrite), XPath: "/", Kind: KindContainer}, nil
	}

	first := path.Segments[0]
	mod, ok := lookup(first.Identifier.Module)
	if !ok {
		return nil, apierrors.OperationFailed(fmt.Sprintf("Module '%s' is not loaded", first.Identifier.Module), "")
	}

	var current meta.Definition
	var currentModule *meta.Module = mod
	xpath := ""

	for i, seg := range path.Segments {
		var container meta.HasDataDefinitions
		if i == 0 {
			container = mod
		} else {
			hd, ok := current.(meta.HasDataDefinitions)
			if !ok {
				return nil, apierrors.OperationFailed(
					fmt.Sprintf("'%s' is not a child of '%s'", seg.Identifier.Ident, current.Ident()), xpath)
			}
			container = hd
		}

		child, err := findChild(container, seg.Identifier)
		if err != nil {
			return nil, apierrors.OperationFailed(
				fmt.Sprintf("Node '%s' is not a child of '%s'", seg.Identifier.String(), containerName(current, mod)), xpath)
		}

		childModule := meta.OriginalModule(child)
		segXPath := "/"
		if currentModule == nil || childModule.Ident() != currentModule.Ident() || i == 0 {
			segXPath += childModule.Ident() + ":"
		}
		segXPath += child.Ident()

		predicate, kind, err := keyPredicate(child, seg.Keys)
		if err != nil {
			return nil, err
		}
		segXPath += predicate

		xpath += segXPath
		current = child
		currentModule = childModule

		isLast := i == len(path.Segments)-1
		if isLast {
			if meta.IsAction(child) {
				// A plain "rpc" statement's parent is the module itself; an
				// "action" statement's parent is the data node it's nested
				// under. Per spec §4.2 step 6, a top-level RPC belongs under
				// /restconf/operations/ and a nested action belongs under
				// /restconf/data/...; only that pairing resolves.
				topLevelRpc := i == 0 && child.Parent() == meta.Definition(mod)
				switch {
				case path.Root == uri.RootOperations && topLevelRpc:
					return &Resolved{
						Datastore:  path.EffectiveDatastore(isWrite),
						XPath:      xpath,
						Kind:       KindRpcOrAction,
						Definition: child,
						Module:     childModule,
					}, nil
				case path.Root == uri.RootData && !topLevelRpc:
					return &Resolved{
						Datastore:  path.EffectiveDatastore(isWrite),
						XPath:      xpath,
						Kind:       KindRpcOrAction,
						Definition: child,
						Module:     childModule,
					}, nil
				case isWrite:
					return nil, apierrors.OperationFailed(fmt.Sprintf("'%s' is an RPC/Action node", xpath), xpath)
				default:
					return nil, apierrors.OperationFailed(fmt.Sprintf("'%s' is not a data resource", xpath), xpath)
				}
			}
			if meta.IsNotification(child) {
				return nil, apierrors.OperationFailed(fmt.Sprintf("'%s' is not a data resource", xpath), xpath)
			}
			return &Resolved{
				Datastore:  path.EffectiveDatastore(isWrite),
				XPath:      xpath,
				Kind:       kind,
				Definition: child,
				Module:     childModule,
			}, nil
		}
	}
	return nil, apierrors.OperationFailed("empty path", xpath)
}

func containerName(d meta.Definition, mod *meta.Module) string {
	if d == nil {
		return mod.Ident()
	}
	return d.Ident()
}

// findChild searches the instantiable children of container for one
// matching id by local name and, when id carries a module prefix, by
// originating module too.
func findChild(container meta.HasDataDefinitions, id uri.ApiIdentifier) (meta.Definition, error) {
	for _, d := range container.DataDefinitions() {
		if d.Ident() != id.Ident {
			continue
		}
		if id.IsQualified() {
			if meta.OriginalModule(d).Ident() != id.Module {
				continue
			}
		}
		return d, nil
	}
	return nil, fmt.Errorf("not found")
}

// keyPredicate validates the key count for the terminal definition's kind
// (spec §4.2 steps 3-5) and builds its XPath predicate(s).
func keyPredicate(d meta.Definition, keys []string) (string, Kind, error) {
	switch m := d.(type) {
	case *meta.List:
		keyMeta := m.KeyMeta()
		k := len(keyMeta)
		switch len(keys) {
		case 0:
			return "", KindList, nil
		case k:
			var pred string
			for i, kd := range keyMeta {
				esc, err := EscapeKey(keys[i])
				if err != nil {
					return "", 0, err
				}
				pred += fmt.Sprintf("[%s=%s]", kd.Ident(), esc)
			}
			return pred, KindListInstance, nil
		default:
			return "", 0, apierrors.OperationFailed(
				fmt.Sprintf("List '%s' requires %d keys", m.Ident(), k), "")
		}
	case *meta.LeafList:
		switch len(keys) {
		case 0:
			return "", KindLeafList, nil
		case 1:
			esc, err := EscapeKey(keys[0])
			if err != nil {
				return "", 0, err
			}
			return fmt.Sprintf("[.=%s]", esc), KindLeafListInstance, nil
		default:
			return "", 0, apierrors.OperationFailed(
				fmt.Sprintf("Leaf-list '%s' requires 0 or 1 keys", m.Ident()), "")
		}
	default:
		if len(keys) != 0 {
			return "", 0, apierrors.OperationFailed(
				fmt.Sprintf("'%s' does not accept keys", d.Ident()), "")
		}
		if meta.IsAction(d) || meta.IsNotification(d) {
			return "", KindRpcOrAction, nil
		}
		if _, isLeaf := d.(*meta.Leaf); isLeaf {
			return "", KindLeaf, nil
		}
		return "", KindContainer, nil
	}
}
