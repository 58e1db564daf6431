package engine

import (
	"github.com/loomworks/loom/condition"
	"github.com/loomworks/loom/model"
)

// CanEnter reports whether a join node's gate is open, all of its
// conditions must hold against the current instance state. A closed gate
// is not an error, the activation is simply skipped.
func CanEnter(node *model.Node, state map[string]any) bool {
	if node.Kind != model.NODE_KIND_JOIN {
		return true
	}
	for _, cond := range node.Join.Conditions {
		if !condition.Evaluate(cond, state) {
			return false
		}
	}
	return true
}
