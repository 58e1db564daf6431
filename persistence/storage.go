package persistence

import (
	"fmt"
	"time"

	"github.com/loomworks/loom/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type NotFoundError struct {
	Kind string
	Id   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Id)
}

type EmptyQueueError struct{}

func (e EmptyQueueError) Error() string {
	return "queue is empty"
}

// Queue names used by the engine.
const ACTIVATION_QUEUE string = "activations"
const TIMER_QUEUE string = "timers"

type WorkflowDao interface {
	Save(wf *model.Workflow) error
	Get(id string) (*model.Workflow, error)
	Delete(id string) error
}

type InstanceDao interface {
	CreateInstance(instance *model.Instance) error
	GetInstance(id string) (*model.Instance, error)
	// CloseInstance transitions a running instance to a terminal status.
	// Returns false without side effects when the instance is already closed.
	CloseInstance(id string, status model.InstanceStatus, output map[string]any, errMsg string) (bool, error)

	CreateActivity(activity *model.Activity) error
	GetActivity(instanceId string, activityId string) (*model.Activity, error)
	FindRunningActivity(instanceId string, nodeId string) (*model.Activity, error)
	// CloseActivity transitions a running activity to a terminal status.
	// Returns false without side effects for an already closed activity;
	// this is the idempotency check under at-least-once delivery.
	CloseActivity(instanceId string, activityId string, status model.ActivityStatus, output map[string]any, errMsg string) (bool, error)
	// SaveActivityOutput persists output on a still running activity
	// (a timer's scheduledFor while it waits).
	SaveActivityOutput(instanceId string, activityId string, output map[string]any) error
	// ListActivities returns an instance's activities in creation order.
	ListActivities(instanceId string) ([]*model.Activity, error)

	// DispatchNext atomically retires completedNodeId from the instance's
	// pending set, adds the activated nodes and publishes their activation
	// messages. Returns the number of nodes still pending.
	DispatchNext(instanceId string, completedNodeId string, activations []*model.ActivationMessage) (int, error)
}

// Queue is the work queue carrying activation messages, partitioned by
// instance id.
type Queue interface {
	Push(queueName string, instanceId string, message []byte) error
	Pop(queueName string, batchSize int) ([]string, error)
}

// DelayQueue holds messages until their due time; Pop only returns fired
// ones.
type DelayQueue interface {
	PushWithDelay(queueName string, delay time.Duration, message []byte) error
	Pop(queueName string) ([]string, error)
}

type Storage interface {
	Workflows() WorkflowDao
	Instances() InstanceDao
	Queue() Queue
	DelayQueue() DelayQueue
	Close() error
}
