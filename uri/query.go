package uri

import (
	"net/url"
	"strconv"
)

// WithDefaults mode, RFC 8040 / RFC 6243.
type WithDefaults string

const (
	WithDefaultsUnset       WithDefaults = ""
	WithDefaultsReportAll   WithDefaults = "report-all"
	WithDefaultsReportTaged WithDefaults = "report-all-tagged"
	WithDefaultsTrim        WithDefaults = "trim"
	WithDefaultsExplicit    WithDefaults = "explicit"
)

// Content filter, RFC 8040 §4.8.1.
type Content string

const (
	ContentUnset    Content = ""
	ContentConfig   Content = "config"
	ContentNonConfig Content = "nonconfig"
	ContentAll      Content = "all"
)

// Insert position for ordered-by-user lists/leaf-lists, RFC 8040 §4.8.5/6.
// Full support for the "point" reference is a documented Non-goal; the
// values are still parsed so a correctly-shaped request is not rejected at
// the URI layer; the dispatcher does not act on insert or point.
type Insert string

const (
	InsertUnset  Insert = ""
	InsertFirst  Insert = "first"
	InsertLast   Insert = "last"
	InsertBefore Insert = "before"
	InsertAfter  Insert = "after"
)

// DepthUnbounded is the sentinel for "depth=unbounded".
const DepthUnbounded = -1

// QueryParams holds the recognized RESTCONF query-string options, each of
// which may appear at most once (a duplicate is a syntax error).
type QueryParams struct {
	Depth        int // 0 means unset; DepthUnbounded or a positive integer otherwise
	WithDefaults WithDefaults
	Content      Content
	Insert       Insert
	Point        string
}

// ParseQuery parses a raw query string (without the leading '?') into
// QueryParams. Unrecognized parameters are rejected, per spec §3's
// "recognized options" framing: an RFC 8040-compliant server never silently
// ignores a query parameter it doesn't understand.
func ParseQuery(raw string) (QueryParams, error) {
	var q QueryParams
	if raw == "" {
		return q, nil
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return q, syntaxErr(raw, 0, "well-formed query string")
	}
	seen := map[string]bool{}
	for key, vs := range values {
		if seen[key] {
			return q, syntaxErr(raw, 0, "query parameter \""+key+"\" at most once")
		}
		seen[key] = true
		if len(vs) != 1 {
			return q, syntaxErr(raw, 0, "single value for \""+key+"\"")
		}
		v := vs[0]
		switch key {
		case "depth":
			if v == "unbounded" {
				q.Depth = DepthUnbounded
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return q, syntaxErr(raw, 0, "depth: positive integer or \"unbounded\"")
			}
			q.Depth = n
		case "with-defaults":
			switch WithDefaults(v) {
			case WithDefaultsReportAll, WithDefaultsReportTaged, WithDefaultsTrim, WithDefaultsExplicit:
				q.WithDefaults = WithDefaults(v)
			default:
				return q, syntaxErr(raw, 0, "with-defaults: report-all|report-all-tagged|trim|explicit")
			}
		case "content":
			switch Content(v) {
			case ContentConfig, ContentNonConfig, ContentAll:
				q.Content = Content(v)
			default:
				return q, syntaxErr(raw, 0, "content: config|nonconfig|all")
			}
		case "insert":
			switch Insert(v) {
			case InsertFirst, InsertLast, InsertBefore, InsertAfter:
				q.Insert = Insert(v)
			default:
				return q, syntaxErr(raw, 0, "insert: first|last|before|after")
			}
		case "point":
			q.Point = v
		default:
			return q, syntaxErr(raw, 0, "a recognized query parameter, got \""+key+"\"")
		}
	}
	if (q.Insert == InsertBefore || q.Insert == InsertAfter) && q.Point == "" {
		return q, syntaxErr(raw, 0, "\"point\" when insert=before|after")
	}
	return q, nil
}
