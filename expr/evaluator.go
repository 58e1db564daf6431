// Package expr holds the pluggable expression evaluator used for node
// input/output transforms. Scripts see the context as `$` and mutate or
// replace it; an empty expression is a passthrough.
package expr

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

type Evaluator interface {
	Evaluate(expression string, context map[string]any) (map[string]any, error)
}

type JsEvaluator struct{}

var _ Evaluator = new(JsEvaluator)

func NewJsEvaluator() *JsEvaluator {
	return &JsEvaluator{}
}

func (e *JsEvaluator) Evaluate(expression string, context map[string]any) (map[string]any, error) {
	if len(strings.TrimSpace(expression)) == 0 {
		return context, nil
	}
	data, err := json.Marshal(context)
	if err != nil {
		return nil, err
	}
	script := fmt.Sprintf("var $ = %s;\n%s", data, expression)
	vm := goja.New()
	if _, err := vm.RunString(script); err != nil {
		return nil, fmt.Errorf("error executing expression %w", err)
	}
	val, err := vm.RunString("$")
	if err != nil {
		return nil, fmt.Errorf("error executing expression %w", err)
	}
	res, err := json.Marshal(val.Export())
	if err != nil {
		return nil, err
	}
	var output map[string]any
	if err := json.Unmarshal(res, &output); err != nil {
		// primitive result, wrap it
		var value any
		if err := json.Unmarshal(res, &value); err != nil {
			return nil, err
		}
		return map[string]any{"value": value}, nil
	}
	return output, nil
}
