package schema

import (
	"strings"

	"github.com/CESNET/rousette-go/apierrors"
)

// EscapeKey implements spec §4.2's key-escaping rule for XPath predicates:
// wrap in single quotes unless the value contains one, in which case wrap
// in double quotes unless the value contains one of those too, in which
// case the value cannot be represented and is rejected. Every source byte
// is preserved verbatim inside the chosen quotes; YANG/XPath string
// literals have no escape sequence, which is exactly why a value with both
// quote characters cannot be encoded.
func EscapeKey(v string) (string, error) {
	hasSingle := strings.ContainsRune(v, '\'')
	hasDouble := strings.ContainsRune(v, '"')
	switch {
	case !hasSingle:
		return "'" + v + "'", nil
	case !hasDouble:
		return `"` + v + `"`, nil
	default:
		return "", apierrors.InvalidValue(
			"key value contains both single and double quotes and cannot be represented: "+v, "")
	}
}
