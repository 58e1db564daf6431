package expr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	eval := NewJsEvaluator()

	t.Run("empty expression is passthrough", func(t *testing.T) {
		context := map[string]any{"a": "b"}
		out, err := eval.Evaluate("  ", context)
		require.NoError(t, err)
		require.Equal(t, context, out)
	})

	t.Run("mutating script", func(t *testing.T) {
		out, err := eval.Evaluate(`$.done = 1;`, map[string]any{"a": "b"})
		require.NoError(t, err)
		require.Equal(t, "b", out["a"])
		require.Equal(t, float64(1), out["done"])
	})

	t.Run("replacing script", func(t *testing.T) {
		out, err := eval.Evaluate(`$ = {status: $.code};`, map[string]any{"code": float64(200)})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"status": float64(200)}, out)
	})

	t.Run("primitive result is wrapped", func(t *testing.T) {
		out, err := eval.Evaluate(`$ = $.code;`, map[string]any{"code": float64(200)})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"value": float64(200)}, out)
	})

	t.Run("bad script errors", func(t *testing.T) {
		_, err := eval.Evaluate(`this is not javascript`, map[string]any{})
		require.Error(t, err)
	})
}
