package uri

import (
	"regexp"
	"strings"
)

var revisionRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '-' || c == '.'
}

// ParseURI parses the path (with the leading "/restconf" or "/yang" already
// present) and raw query string of a RESTCONF request into a ResourcePath
// and QueryParams. It performs no I/O and never consults a schema: it is
// total over syntax, and deterministic.
func ParseURI(path string, rawQuery string) (*ResourcePath, QueryParams, error) {
	q, err := ParseQuery(rawQuery)
	if err != nil {
		return nil, q, err
	}

	trimmed := strings.TrimPrefix(path, "/")
	parts := splitPathComponents(trimmed)
	if len(parts) == 0 || parts[0] != "restconf" {
		if len(parts) >= 1 && parts[0] == "yang" {
			rp, err := parseYangSchemaParts(path, parts[1:])
			return rp, q, err
		}
		return nil, q, syntaxErr(path, 0, "\"/restconf\" or \"/yang\"")
	}
	parts = parts[1:]
	if len(parts) == 0 {
		return nil, q, syntaxErr(path, len(path), "a RESTCONF entry point after \"/restconf\"")
	}

	switch parts[0] {
	case "yang-library-version":
		if len(parts) != 1 {
			return nil, q, syntaxErr(path, 0, "no further segments after \"yang-library-version\"")
		}
		return &ResourcePath{Root: RootYangLibraryVersion}, q, nil
	case "data":
		rp := &ResourcePath{Root: RootData}
		segs, err := parseSegments(path, parts[1:])
		if err != nil {
			return nil, q, err
		}
		rp.Segments = segs
		return rp, q, nil
	case "operations":
		rp := &ResourcePath{Root: RootOperations}
		segs, err := parseSegments(path, parts[1:])
		if err != nil {
			return nil, q, err
		}
		if len(segs) == 0 {
			return nil, q, syntaxErr(path, 0, "an RPC name after \"/restconf/operations\"")
		}
		rp.Segments = segs
		return rp, q, nil
	case "ds":
		if len(parts) < 2 {
			return nil, q, syntaxErr(path, 0, "<module>:<datastore> after \"/restconf/ds\"")
		}
		mod, ds, err := parseDatastoreId(path, parts[1])
		if err != nil {
			return nil, q, err
		}
		rp := &ResourcePath{Root: RootData, DatastoreModule: mod, Datastore: ds}
		segs, err := parseSegments(path, parts[2:])
		if err != nil {
			return nil, q, err
		}
		rp.Segments = segs
		return rp, q, nil
	default:
		return nil, q, syntaxErr(path, 0, "one of data, operations, ds, yang-library-version")
	}
}

func parseDatastoreId(full string, s string) (module string, datastore string, err error) {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return "", "", syntaxErr(full, 0, "<module>:<datastore>")
	}
	module = s[:i]
	datastore = s[i+1:]
	if !validIdentifier(module) {
		return "", "", syntaxErr(full, 0, "a valid module name")
	}
	if !validDatastores[datastore] {
		return "", "", syntaxErr(full, 0, "one of running, operational, candidate, startup")
	}
	return module, datastore, nil
}

// splitPathComponents splits on '/' dropping empty trailing/leading
// components so both "/restconf/data/" and "/restconf/data" parse equally.
func splitPathComponents(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, "/")
	out := raw[:0:0]
	for _, p := range raw {
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func parseSegments(full string, parts []string) ([]PathSegment, error) {
	segs := make([]PathSegment, 0, len(parts))
	for i, p := range parts {
		seg, err := parseSegment(full, p)
		if err != nil {
			return nil, err
		}
		if i == 0 && !seg.Identifier.IsQualified() {
			return nil, syntaxErr(full, 0, "a module-qualified identifier as the first path segment")
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseSegment(full string, p string) (PathSegment, error) {
	var seg PathSegment
	name := p
	var keyPart string
	hasKeys := false
	if i := strings.IndexByte(p, '='); i >= 0 {
		name = p[:i]
		keyPart = p[i+1:]
		hasKeys = true
	}
	mod := ""
	ident := name
	if i := strings.IndexByte(name, ':'); i >= 0 {
		mod = name[:i]
		ident = name[i+1:]
		if !validIdentifier(mod) {
			return seg, syntaxErr(full, 0, "a valid module name before ':'")
		}
	}
	if !validIdentifier(ident) {
		return seg, syntaxErr(full, 0, "a valid identifier, got \""+ident+"\"")
	}
	seg.Identifier = ApiIdentifier{Module: mod, Ident: ident}
	if hasKeys {
		for _, raw := range splitKeys(keyPart) {
			decoded, err := percentDecode(raw)
			if err != nil {
				return seg, err
			}
			seg.Keys = append(seg.Keys, decoded)
		}
	}
	return seg, nil
}

func validIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentCont(s[i]) {
			return false
		}
	}
	return true
}

func parseYangSchemaParts(full string, parts []string) (*ResourcePath, error) {
	if len(parts) != 1 || parts[0] == "" {
		return nil, syntaxErr(full, 0, "a single module name (optionally @revision) after \"/yang\"")
	}
	module := parts[0]
	revision := ""
	if i := strings.IndexByte(module, '@'); i >= 0 {
		revision = module[i+1:]
		module = module[:i]
		if !revisionRe.MatchString(revision) {
			return nil, syntaxErr(full, 0, "a YYYY-MM-DD revision after '@'")
		}
	}
	if !validIdentifier(module) {
		return nil, syntaxErr(full, 0, "a valid module name")
	}
	return &ResourcePath{Root: RootYangSchema, YangModule: module, YangRevision: revision}, nil
}

// ParseYangSchemaPath is a convenience wrapper for the /yang/<module>[@rev]
// endpoint, used directly by the schema-service handler (spec §4.9), which
// never needs the /restconf branches above.
func ParseYangSchemaPath(path string) (module string, revision string, err error) {
	parts := splitPathComponents(strings.TrimPrefix(path, "/"))
	if len(parts) < 1 || parts[0] != "yang" {
		return "", "", syntaxErr(path, 0, "\"/yang/<module>\"")
	}
	rp, err := parseYangSchemaParts(path, parts[1:])
	if err != nil {
		return "", "", err
	}
	return rp.YangModule, rp.YangRevision, nil
}
