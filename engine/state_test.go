package engine

import (
	"testing"

	"github.com/loomworks/loom/model"
	"github.com/stretchr/testify/assert"
)

func TestInstanceState(t *testing.T) {
	instance := &model.Instance{
		Id:    "in-1",
		Input: map[string]any{"userId": "u-1", "score": float64(5)},
	}
	activities := []*model.Activity{
		{Id: "a1", Status: model.ACTIVITY_SUCCESS, Output: map[string]any{"score": float64(10), "step1": true}},
		{Id: "a2", Status: model.ACTIVITY_FAILED, Output: map[string]any{"poison": true}},
		{Id: "a3", Status: model.ACTIVITY_RUNNING, Output: map[string]any{"pending": true}},
		{Id: "a4", Status: model.ACTIVITY_SUCCESS, Output: map[string]any{"score": float64(20)}},
	}

	state := InstanceState(instance, activities)

	assert.Equal(t, "u-1", state["userId"])
	assert.Equal(t, float64(20), state["score"], "later output wins")
	assert.Equal(t, true, state["step1"])
	assert.NotContains(t, state, "poison", "failed activities do not contribute")
	assert.NotContains(t, state, "pending", "running activities do not contribute")

	again := InstanceState(instance, activities)
	assert.Equal(t, state, again, "folding is deterministic")
	assert.Empty(t, instance.Input["step1"], "fold never mutates the input")
}

func TestInstanceStateNoActivities(t *testing.T) {
	instance := &model.Instance{Id: "in-2", Input: map[string]any{"a": 1}}
	state := InstanceState(instance, nil)
	assert.Equal(t, map[string]any{"a": 1}, state)
}
