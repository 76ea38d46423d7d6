package restconf

import (
	"github.com/freeconf/yang/meta"

	"github.com/CESNET/rousette-go/schema"
)

// SingleModuleLookup builds a schema.ModuleLookup that only ever resolves
// m's own name, for the standalone single-module dev server in
// cmd/rousette-gatewayd; a production deployment instead backs
// schema.ModuleLookup with the engine's full ietf-yang-library module set.
func SingleModuleLookup(m *meta.Module) schema.ModuleLookup {
	return func(name string) (*meta.Module, bool) {
		if name == m.Ident() {
			return m, true
		}
		return nil, false
	}
}
