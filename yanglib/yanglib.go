// Package yanglib implements spec §4.9's YANG schema endpoints: raw module
// text retrieval filtered by NACM visibility, and rewriting the
// ietf-yang-library location/schema leaf-lists to point back at this
// gateway's own /yang/ endpoint, grounded on original_source's
// YangSchemaLocations.cpp (see SPEC_FULL.md §D).
package yanglib

import (
	"net/http"

	"github.com/freeconf/yang/meta"

	"github.com/CESNET/rousette-go/apierrors"
	"github.com/CESNET/rousette-go/secure"
)

// ModuleText is the raw source text of one loaded module or submodule,
// keyed by (name, revision).
type ModuleText struct {
	Name     string
	Revision string
	Text     string
}

// Library serves GET /yang/<module>[@revision] and computes the rewritten
// location/schema leaf-list entries ietf-yang-library trees should report.
type Library struct {
	// Lookup returns the raw text for (module, revision). An empty revision
	// matches the module's latest loaded revision. ok is false on a missing
	// module or a revision that does not match what is loaded (spec §4.9:
	// "Missing/wrong revision -> 404").
	Lookup func(module, revision string) (text string, actualRevision string, ok bool)

	// Readable reports whether user may read the ietf-yang-library
	// module[name=<name>] (or submodule[name=<name>]) list entry for the
	// named module, per the session's NACM role (spec §4.9's access-filter
	// rule).
	Readable func(role *secure.Role, module string) bool
}

// ServeModule handles GET/HEAD /yang/<module>[@revision].
func (l *Library) ServeModule(w http.ResponseWriter, r *http.Request, role *secure.Role, module, revision string) error {
	if !l.Readable(role, module) {
		return apierrors.NacmDenied("not authorized to read module '"+module+"'", "")
	}
	text, _, ok := l.Lookup(module, revision)
	if !ok {
		http.Error(w, "module not found", http.StatusNotFound)
		return nil
	}
	w.Header().Set("Content-Type", "application/yang")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return nil
	}
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte(text))
	return err
}

// LoadedModuleLookup builds a Lookup function from a set of loaded
// meta.Module/submodule definitions paired with their source text, the way
// a startup module registry would.
func LoadedModuleLookup(texts []ModuleText) func(module, revision string) (string, string, bool) {
	byName := map[string][]ModuleText{}
	for _, t := range texts {
		byName[t.Name] = append(byName[t.Name], t)
	}
	return func(module, revision string) (string, string, bool) {
		candidates := byName[module]
		if len(candidates) == 0 {
			return "", "", false
		}
		if revision == "" {
			// "latest loaded revision": candidates are expected to be
			// appended in load order, so the last one wins.
			best := candidates[len(candidates)-1]
			return best.Text, best.Revision, true
		}
		for _, c := range candidates {
			if c.Revision == revision {
				return c.Text, c.Revision, true
			}
		}
		return "", "", false
	}
}

// ModuleReadable implements the default Readable policy: a user may read a
// module entry only when the role grants read on that module's
// ietf-yang-library module-set entry or on a path prefix of it; with no
// matching grant the module is not readable.
func ModuleReadable(role *secure.Role, module string) bool {
	return role.CanRead("/ietf-yang-library:yang-library/module-set/module[name='" + module + "']")
}

// OriginalModuleName maps a meta.Definition back to the module/submodule
// name used in /yang/ URLs, matching meta.OriginalModule's Ident().
func OriginalModuleName(d meta.Definition) string {
	return meta.OriginalModule(d).Ident()
}
