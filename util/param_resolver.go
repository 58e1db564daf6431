package util

import (
	"strings"

	"github.com/oliveagle/jsonpath"
)

// ResolveParams resolves `$`-prefixed jsonpath references inside params
// against the given context. Plain values pass through unchanged; nested
// objects and lists are resolved recursively.
func ResolveParams(context map[string]any, params map[string]any) map[string]any {
	output := make(map[string]any)
	resolveParams(context, params, output)
	return output
}

func resolveParams(context map[string]any, params map[string]any, output map[string]any) {
	for k, v := range params {
		switch value := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			output[k] = out
			resolveParams(context, value, out)
		case []any:
			output[k] = resolveList(context, value)
		case string:
			output[k] = resolveString(context, value)
		default:
			output[k] = v
		}
	}
}

func resolveList(context map[string]any, list []any) []any {
	output := make([]any, 0, len(list))
	for _, v := range list {
		switch value := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			resolveParams(context, value, out)
			output = append(output, out)
		case []any:
			output = append(output, resolveList(context, value))
		case string:
			output = append(output, resolveString(context, value))
		default:
			output = append(output, v)
		}
	}
	return output
}

func resolveString(context map[string]any, s string) any {
	if !strings.HasPrefix(s, "$") {
		return s
	}
	value, err := jsonpath.JsonPathLookup(context, s)
	if err != nil {
		return nil
	}
	return value
}
