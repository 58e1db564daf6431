package condition

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	context := map[string]any{
		"status": "ok",
		"count":  float64(3),
		"result": map[string]any{
			"code": float64(200),
			"body": map[string]any{"state": "done"},
		},
	}
	for scenario, fn := range map[string]func(t *testing.T){
		"quoted string match": func(t *testing.T) {
			require.True(t, Evaluate(`status = "ok"`, context))
		},
		"quoted string mismatch": func(t *testing.T) {
			require.False(t, Evaluate(`status = "bad"`, context))
		},
		"bare string literal": func(t *testing.T) {
			require.True(t, Evaluate(`status = ok`, context))
		},
		"number match": func(t *testing.T) {
			require.True(t, Evaluate(`count = 3`, context))
		},
		"number mismatch": func(t *testing.T) {
			require.False(t, Evaluate(`count = 4`, context))
		},
		"dotted path": func(t *testing.T) {
			require.True(t, Evaluate(`result.code = 200`, context))
			require.True(t, Evaluate(`result.body.state = "done"`, context))
		},
		"missing path never matches": func(t *testing.T) {
			require.False(t, Evaluate(`missing = "ok"`, context))
			require.False(t, Evaluate(`result.missing.deep = 1`, context))
		},
		"empty context": func(t *testing.T) {
			require.False(t, Evaluate(`status = "ok"`, map[string]any{}))
		},
		"malformed expression": func(t *testing.T) {
			require.False(t, Evaluate(``, context))
			require.False(t, Evaluate(`status`, context))
			require.False(t, Evaluate(`status > "ok"`, context))
		},
		"number literal against string value": func(t *testing.T) {
			require.False(t, Evaluate(`status = 1`, context))
		},
	} {
		t.Run(scenario, fn)
	}
}
