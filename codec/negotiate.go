// Package codec negotiates and performs YANG-data payload encoding per
// spec §4.3: Content-Type/Accept header parsing, and JSON/XML tree
// (de)serialization built on github.com/freeconf/yang/nodeutil (and
// github.com/clbanning/mxj/v2 for XML request decoding, mirroring
// browser_handler.go's use of mxj for YANG-Patch/plain XML bodies).
package codec

import (
	"sort"
	"strconv"
	"strings"

	"github.com/CESNET/rousette-go/apierrors"
)

// Encoding is the wire format of a YANG-data payload.
type Encoding int

const (
	Unset Encoding = iota
	JSON
	XML
)

// MediaKind distinguishes a plain data payload from an ordered YANG-Patch
// edit list (RFC 8072), which share the JSON/XML encoding axis but are
// handled very differently by the dispatcher.
type MediaKind int

const (
	MediaData MediaKind = iota
	MediaPatch
)

const (
	MimeYangDataJSON  = "application/yang-data+json"
	MimeYangDataXML   = "application/yang-data+xml"
	MimeYangPatchJSON = "application/yang-patch+json"
	MimeYangPatchXML  = "application/yang-patch+xml"
	MimeEventStream   = "text/event-stream"
	MimeYang          = "application/yang"
	MimePlainJSON     = "application/json"
)

// ParseContentType classifies a request's Content-Type header. Wildcards
// are rejected outright (spec §4.3); parameters after ';' are ignored.
func ParseContentType(raw string) (Encoding, MediaKind, error) {
	base := strings.TrimSpace(strings.SplitN(raw, ";", 2)[0])
	switch base {
	case MimeYangDataJSON:
		return JSON, MediaData, nil
	case MimeYangDataXML:
		return XML, MediaData, nil
	case MimeYangPatchJSON:
		return JSON, MediaPatch, nil
	case MimeYangPatchXML:
		return XML, MediaPatch, nil
	default:
		return Unset, MediaData, apierrors.UnsupportedMediaType(
			"Content-Type must be one of application/yang-data+json, application/yang-data+xml, " +
				"application/yang-patch+json, application/yang-patch+xml, got " + raw)
	}
}

type acceptCandidate struct {
	mime        string
	q           float64
	specificity int
	order       int
}

// NegotiateAccept parses an Accept header per spec §4.3: quality-sorted
// (stable for ties), with typed media preferred over a wildcard of equal
// quality, selecting from the supported set. When Accept is empty, the
// caller is expected to fall back to the request encoding (or JSON),
// per spec; this function is only invoked when Accept is present.
func NegotiateAccept(raw string, supported []string) (string, error) {
	candidates := parseAccept(raw)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].q != candidates[j].q {
			return candidates[i].q > candidates[j].q
		}
		if candidates[i].specificity != candidates[j].specificity {
			return candidates[i].specificity > candidates[j].specificity
		}
		return candidates[i].order < candidates[j].order
	})
	for _, c := range candidates {
		if c.q == 0 {
			continue
		}
		if m := matchSupported(c.mime, supported); m != "" {
			return m, nil
		}
	}
	return "", apierrors.NotAcceptable("none of the server's supported media types satisfy Accept: " + raw)
}

func matchSupported(pattern string, supported []string) string {
	if pattern == "*/*" {
		if len(supported) > 0 {
			return supported[0]
		}
		return ""
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "*")
		for _, s := range supported {
			if strings.HasPrefix(s, prefix) {
				return s
			}
		}
		return ""
	}
	for _, s := range supported {
		if s == pattern {
			return s
		}
	}
	return ""
}

func parseAccept(raw string) []acceptCandidate {
	parts := strings.Split(raw, ",")
	out := make([]acceptCandidate, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.Split(p, ";")
		mime := strings.TrimSpace(fields[0])
		q := 1.0
		for _, param := range fields[1:] {
			param = strings.TrimSpace(param)
			if strings.HasPrefix(param, "q=") {
				if v, err := strconv.ParseFloat(strings.TrimPrefix(param, "q="), 64); err == nil {
					q = v
				}
			}
		}
		out = append(out, acceptCandidate{mime: mime, q: q, specificity: specificity(mime), order: i})
	}
	return out
}

func specificity(mime string) int {
	if mime == "*/*" {
		return 0
	}
	if strings.HasSuffix(mime, "/*") {
		return 1
	}
	return 2
}

// EncodingFor maps a negotiated MIME type back to an Encoding.
func EncodingFor(mime string) Encoding {
	switch mime {
	case MimeYangDataXML, MimeYangPatchXML:
		return XML
	default:
		return JSON
	}
}

// MimeFor renders the data-resource MIME type for an encoding.
func MimeFor(e Encoding) string {
	if e == XML {
		return MimeYangDataXML
	}
	return MimeYangDataJSON
}

// ResponseEncoding implements spec §4.3's fallback chain: negotiate off
// Accept when present, else mirror the request encoding, else default JSON.
func ResponseEncoding(accept string, requestEncoding Encoding, hadRequest bool) (Encoding, error) {
	if strings.TrimSpace(accept) != "" {
		m, err := NegotiateAccept(accept, []string{MimeYangDataJSON, MimeYangDataXML})
		if err != nil {
			return Unset, err
		}
		return EncodingFor(m), nil
	}
	if hadRequest {
		return requestEncoding, nil
	}
	return JSON, nil
}
