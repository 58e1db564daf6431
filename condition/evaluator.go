// Package condition evaluates the edge and join-gate predicate grammar:
// a dotted path into the context, an operator and a literal. Equality is
// the only operator; a missing path never errors, it just matches nothing.
package condition

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var exprPattern = regexp.MustCompile(`^\s*([a-zA-Z0-9_.]+)\s*=\s*(.+?)\s*$`)
var numberPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

func Evaluate(expr string, context map[string]any) bool {
	m := exprPattern.FindStringSubmatch(expr)
	if m == nil {
		return false
	}
	value, err := jsonpath.JsonPathLookup(context, "$."+m[1])
	if err != nil || value == nil {
		return false
	}
	return equals(value, parseLiteral(m[2]))
}

func parseLiteral(raw string) any {
	if numberPattern.MatchString(raw) {
		n, _ := strconv.ParseFloat(raw, 64)
		return n
	}
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		return raw[1 : len(raw)-1]
	}
	return raw
}

func equals(value any, literal any) bool {
	switch lit := literal.(type) {
	case float64:
		n, ok := asNumber(value)
		return ok && n == lit
	case string:
		s, ok := value.(string)
		return ok && s == lit
	}
	return false
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
