package engine

import (
	"testing"

	"github.com/loomworks/loom/model"
	"github.com/stretchr/testify/assert"
)

func branchingWorkflow() *model.Workflow {
	return &model.Workflow{
		Id: "wf-edges",
		Nodes: []model.Node{
			{Id: "start", Kind: model.NODE_KIND_NOOP},
			{Id: "high", Kind: model.NODE_KIND_NOOP},
			{Id: "low", Kind: model.NODE_KIND_NOOP},
			{Id: "audit", Kind: model.NODE_KIND_NOOP},
			{Id: "again", Kind: model.NODE_KIND_NOOP},
		},
		Edges: []model.Edge{
			{SourceId: "start", TargetId: "high", Kind: model.EDGE_KIND_IF, Condition: `level = "high"`},
			{SourceId: "start", TargetId: "low", Kind: model.EDGE_KIND_IF, Condition: `level = "low"`},
			{SourceId: "start", TargetId: "audit", Kind: model.EDGE_KIND_NORMAL},
			{SourceId: "start", TargetId: "again", Kind: model.EDGE_KIND_LOOP},
		},
	}
}

func nodeIds(nodes []*model.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Id)
	}
	return out
}

func TestResolveNext(t *testing.T) {
	wf := branchingWorkflow()

	for scenario, fn := range map[string]func(t *testing.T){
		"first matching if edge wins": func(t *testing.T) {
			next := ResolveNext(wf, "start", map[string]any{"level": "high"})
			assert.Equal(t, []string{"high", "audit", "again"}, nodeIds(next))
		},
		"later if edge fires when earlier does not match": func(t *testing.T) {
			next := ResolveNext(wf, "start", map[string]any{"level": "low"})
			assert.Equal(t, []string{"low", "audit", "again"}, nodeIds(next))
		},
		"no if edge matches": func(t *testing.T) {
			next := ResolveNext(wf, "start", map[string]any{"level": "none"})
			assert.Equal(t, []string{"audit", "again"}, nodeIds(next))
		},
		"undefined path matches nothing": func(t *testing.T) {
			next := ResolveNext(wf, "start", map[string]any{})
			assert.Equal(t, []string{"audit", "again"}, nodeIds(next))
		},
		"terminal node has no successors": func(t *testing.T) {
			next := ResolveNext(wf, "audit", map[string]any{"level": "high"})
			assert.Empty(t, next)
		},
	} {
		t.Run(scenario, fn)
	}
}

func TestResolveNextOnlyFirstIfMatches(t *testing.T) {
	wf := &model.Workflow{
		Id: "wf-dup",
		Nodes: []model.Node{
			{Id: "start", Kind: model.NODE_KIND_NOOP},
			{Id: "a", Kind: model.NODE_KIND_NOOP},
			{Id: "b", Kind: model.NODE_KIND_NOOP},
		},
		Edges: []model.Edge{
			{SourceId: "start", TargetId: "a", Kind: model.EDGE_KIND_IF, Condition: "x = 1"},
			{SourceId: "start", TargetId: "b", Kind: model.EDGE_KIND_IF, Condition: "x = 1"},
		},
	}
	next := ResolveNext(wf, "start", map[string]any{"x": float64(1)})
	assert.Equal(t, []string{"a"}, nodeIds(next))
}
