package engine

import (
	"github.com/loomworks/loom/condition"
	"github.com/loomworks/loom/model"
)

// ResolveNext picks the nodes to activate after nodeId completes. Normal
// and loop edges always fire. If edges are tried in import order and only
// the first matching one fires.
func ResolveNext(wf *model.Workflow, nodeId string, state map[string]any) []*model.Node {
	var next []*model.Node
	ifMatched := false
	for _, edge := range wf.OutboundEdges(nodeId) {
		switch edge.Kind {
		case model.EDGE_KIND_IF:
			if ifMatched {
				continue
			}
			if condition.Evaluate(edge.Condition, state) {
				ifMatched = true
				if target := wf.Node(edge.TargetId); target != nil {
					next = append(next, target)
				}
			}
		default:
			if target := wf.Node(edge.TargetId); target != nil {
				next = append(next, target)
			}
		}
	}
	return next
}
