package engine

import (
	"testing"

	"github.com/loomworks/loom/model"
	"github.com/stretchr/testify/assert"
)

func TestCanEnter(t *testing.T) {
	join := &model.Node{
		Id:   "join",
		Kind: model.NODE_KIND_JOIN,
		Join: &model.JoinConfig{Conditions: []string{`b1 = "done"`, `b2 = "done"`}},
	}

	for scenario, fn := range map[string]func(t *testing.T){
		"all conditions hold": func(t *testing.T) {
			assert.True(t, CanEnter(join, map[string]any{"b1": "done", "b2": "done"}))
		},
		"one condition missing": func(t *testing.T) {
			assert.False(t, CanEnter(join, map[string]any{"b1": "done"}))
		},
		"empty state": func(t *testing.T) {
			assert.False(t, CanEnter(join, map[string]any{}))
		},
		"non join nodes always enter": func(t *testing.T) {
			noop := &model.Node{Id: "n", Kind: model.NODE_KIND_NOOP}
			assert.True(t, CanEnter(noop, map[string]any{}))
		},
	} {
		t.Run(scenario, fn)
	}
}
