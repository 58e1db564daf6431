package engine

import (
	"github.com/loomworks/loom/logger"
	"github.com/loomworks/loom/model"
	"go.uber.org/zap"
)

// CompleteInstance closes a drained instance with the folded state as its
// output and resumes the parent when the instance is a child workflow.
func (d *Dispatcher) CompleteInstance(instanceId string) error {
	instance, err := d.storage.Instances().GetInstance(instanceId)
	if err != nil {
		return err
	}
	activities, err := d.storage.Instances().ListActivities(instanceId)
	if err != nil {
		return err
	}
	output := InstanceState(instance, activities)
	closed, err := d.storage.Instances().CloseInstance(instanceId, model.INSTANCE_SUCCESS, output, "")
	if err != nil {
		return err
	}
	if !closed {
		return nil
	}
	logger.Info("instance completed", zap.String("instance", instanceId), zap.String("workflow", instance.WorkflowId))
	if instance.ParentInstanceId != "" {
		return d.resumeParent(instance, output)
	}
	return nil
}

// FailInstance closes a running instance as failed. A failed child also
// fails its parent.
func (d *Dispatcher) FailInstance(instanceId string, reason string) error {
	instance, err := d.storage.Instances().GetInstance(instanceId)
	if err != nil {
		return err
	}
	closed, err := d.storage.Instances().CloseInstance(instanceId, model.INSTANCE_FAILED, nil, reason)
	if err != nil {
		return err
	}
	if !closed {
		return nil
	}
	logger.Warn("instance failed", zap.String("instance", instanceId), zap.String("workflow", instance.WorkflowId), zap.String("reason", reason))
	if instance.ParentInstanceId != "" {
		parent, err := d.storage.Instances().GetInstance(instance.ParentInstanceId)
		if err != nil {
			return err
		}
		closed, err := d.storage.Instances().CloseActivity(parent.Id, instance.ParentActivityId, model.ACTIVITY_FAILED, nil, reason)
		if err != nil {
			return err
		}
		if !closed {
			return nil
		}
		return d.FailInstance(parent.Id, "child workflow failed: "+reason)
	}
	return nil
}

// resumeParent closes the waiting parent activity with the child's output
// and continues the parent from there.
func (d *Dispatcher) resumeParent(child *model.Instance, output map[string]any) error {
	parent, err := d.storage.Instances().GetInstance(child.ParentInstanceId)
	if err != nil {
		return err
	}
	if parent.Status != model.INSTANCE_RUNNING {
		return nil
	}
	activity, err := d.storage.Instances().GetActivity(parent.Id, child.ParentActivityId)
	if err != nil {
		return err
	}
	wf, err := d.metadata.GetWorkflow(parent.WorkflowId)
	if err != nil {
		return err
	}
	node := wf.Node(activity.NodeId)
	if node == nil {
		return ConfigurationError{WorkflowId: wf.Id, NodeId: activity.NodeId, Message: "node not found"}
	}
	return d.completeActivity(wf, parent.Id, node, activity.Id, output)
}
