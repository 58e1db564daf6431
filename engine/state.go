package engine

import (
	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/persistence"
)

// InstanceState is derived, never stored. It folds the outputs of the
// successful activities in creation order over the instance input, so a
// later write to a key overwrites an earlier one.
func InstanceState(instance *model.Instance, activities []*model.Activity) map[string]any {
	state := make(map[string]any, len(instance.Input))
	for k, v := range instance.Input {
		state[k] = v
	}
	for _, activity := range activities {
		if activity.Status != model.ACTIVITY_SUCCESS {
			continue
		}
		for k, v := range activity.Output {
			state[k] = v
		}
	}
	return state
}

// CurrentState loads the instance and its activities and folds them.
func CurrentState(dao persistence.InstanceDao, instanceId string) (map[string]any, error) {
	instance, err := dao.GetInstance(instanceId)
	if err != nil {
		return nil, err
	}
	activities, err := dao.ListActivities(instanceId)
	if err != nil {
		return nil, err
	}
	return InstanceState(instance, activities), nil
}
