package uri

import "strings"

// String re-serializes a ResourcePath to its canonical RESTCONF form, with
// keys percent-encoded per escapeKeyForPath. Reparsing the result with
// ParseURI must yield an equal ResourcePath (spec §8).
func (p *ResourcePath) String() string {
	var b strings.Builder
	b.WriteString("/restconf")
	switch p.Root {
	case RootYangLibraryVersion:
		b.WriteString("/yang-library-version")
		return b.String()
	case RootOperations:
		b.WriteString("/operations")
	default:
		if p.Datastore != "" {
			b.WriteString("/ds/")
			b.WriteString(p.DatastoreModule)
			b.WriteByte(':')
			b.WriteString(p.Datastore)
		} else {
			b.WriteString("/data")
		}
	}
	for _, seg := range p.Segments {
		b.WriteByte('/')
		b.WriteString(seg.String())
	}
	return b.String()
}
