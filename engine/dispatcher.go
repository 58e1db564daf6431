package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/loomworks/loom/action"
	"github.com/loomworks/loom/analytics"
	"github.com/loomworks/loom/expr"
	"github.com/loomworks/loom/logger"
	"github.com/loomworks/loom/metadata"
	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/persistence"
	"github.com/loomworks/loom/util"
	"go.uber.org/zap"
)

// Dispatcher drives instances forward. Every activation message lands in
// Execute, every timer firing in HandleTimerFired, every external hook
// callback in CompleteHook.
type Dispatcher struct {
	storage     persistence.Storage
	metadata    metadata.Service
	executor    action.Executor
	evaluator   expr.Evaluator
	msgEncDec   util.EncoderDecoder[model.ActivationMessage]
	timerEncDec util.EncoderDecoder[model.TimerMessage]
}

func NewDispatcher(storage persistence.Storage, metadataService metadata.Service, executor action.Executor) *Dispatcher {
	return &Dispatcher{
		storage:     storage,
		metadata:    metadataService,
		executor:    executor,
		evaluator:   expr.NewJsEvaluator(),
		msgEncDec:   util.NewJsonEncoderDecoder[model.ActivationMessage](),
		timerEncDec: util.NewJsonEncoderDecoder[model.TimerMessage](),
	}
}

// StartInstance creates a running instance and publishes the activation
// for the workflow's start node.
func (d *Dispatcher) StartInstance(workflowId string, input map[string]any, parentInstanceId string, parentActivityId string) (*model.Instance, error) {
	wf, err := d.metadata.GetWorkflow(workflowId)
	if err != nil {
		return nil, err
	}
	start := wf.StartNode()
	if start == nil {
		return nil, ConfigurationError{WorkflowId: workflowId, Message: "no start node"}
	}
	if input == nil {
		input = make(map[string]any)
	}
	instance := &model.Instance{
		Id:               uuid.NewString(),
		WorkflowId:       workflowId,
		Status:           model.INSTANCE_RUNNING,
		Input:            input,
		ParentInstanceId: parentInstanceId,
		ParentActivityId: parentActivityId,
		Pending:          map[string]int{start.Id: 1},
		StartedAt:        time.Now(),
	}
	if err := d.storage.Instances().CreateInstance(instance); err != nil {
		return nil, err
	}
	msg := &model.ActivationMessage{
		InstanceId: instance.Id,
		NodeId:     start.Id,
		Input:      input,
		Timestamp:  time.Now().UnixMilli(),
	}
	data, err := d.msgEncDec.Encode(*msg)
	if err != nil {
		return nil, err
	}
	if err := d.storage.Queue().Push(persistence.ACTIVATION_QUEUE, instance.Id, data); err != nil {
		return nil, err
	}
	logger.Info("started instance", zap.String("workflow", workflowId), zap.String("instance", instance.Id))
	return instance, nil
}

// Execute runs one activation. Unrecoverable problems with the message
// itself are logged and swallowed so the message is never redelivered,
// node failures fail the instance.
func (d *Dispatcher) Execute(msg *model.ActivationMessage) error {
	instance, err := d.storage.Instances().GetInstance(msg.InstanceId)
	if err != nil {
		logger.Error("dropping activation for unknown instance", zap.String("instance", msg.InstanceId), zap.Error(err))
		return nil
	}
	if instance.Status != model.INSTANCE_RUNNING {
		logger.Debug("dropping activation for closed instance", zap.String("instance", msg.InstanceId), zap.String("node", msg.NodeId))
		return nil
	}
	wf, err := d.metadata.GetWorkflow(instance.WorkflowId)
	if err != nil {
		return d.FailInstance(instance.Id, "workflow definition missing: "+err.Error())
	}
	node := wf.Node(msg.NodeId)
	if node == nil {
		return d.FailInstance(instance.Id, ConfigurationError{WorkflowId: wf.Id, NodeId: msg.NodeId, Message: "node not found"}.Error())
	}

	if node.Kind == model.NODE_KIND_JOIN {
		state, err := CurrentState(d.storage.Instances(), instance.Id)
		if err != nil {
			return err
		}
		if !CanEnter(node, state) {
			logger.Debug("join gate closed at consume, skipping", zap.String("instance", instance.Id), zap.String("node", node.Id))
			return d.drainPending(wf, instance.Id, node.Id)
		}
	}

	input := msg.Input
	if node.InputExpr != "" {
		input, err = d.evaluator.Evaluate(node.InputExpr, input)
		if err != nil {
			return d.failNode(wf, instance.Id, node.Id, "", "input transform failed: "+err.Error())
		}
	}
	activity := &model.Activity{
		Id:         uuid.NewString(),
		InstanceId: instance.Id,
		WorkflowId: wf.Id,
		NodeId:     node.Id,
		Status:     model.ACTIVITY_RUNNING,
		Input:      input,
		StartedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := d.storage.Instances().CreateActivity(activity); err != nil {
		return err
	}

	switch node.Kind {
	case model.NODE_KIND_HTTP:
		output, err := d.executor.Execute(context.Background(), node.Http, input)
		if err != nil {
			return d.failNode(wf, instance.Id, node.Id, activity.Id, ActionError{NodeId: node.Id, Cause: err}.Error())
		}
		return d.completeActivity(wf, instance.Id, node, activity.Id, output)
	case model.NODE_KIND_TIMER:
		return d.armTimer(wf, instance, node, activity)
	case model.NODE_KIND_HOOK:
		logger.Info("instance waiting for hook", zap.String("instance", instance.Id), zap.String("node", node.Id))
		return nil
	case model.NODE_KIND_WORKFLOW:
		_, err := d.StartInstance(node.Subflow.WorkflowId, input, instance.Id, activity.Id)
		if err != nil {
			return d.failNode(wf, instance.Id, node.Id, activity.Id, "child workflow start failed: "+err.Error())
		}
		return nil
	case model.NODE_KIND_JOIN:
		return d.completeActivity(wf, instance.Id, node, activity.Id, map[string]any{})
	case model.NODE_KIND_NOOP:
		return d.completeActivity(wf, instance.Id, node, activity.Id, input)
	default:
		return d.failNode(wf, instance.Id, node.Id, activity.Id, "unknown node kind "+string(node.Kind))
	}
}

// armTimer persists when the timer is due, schedules the firing and
// leaves the activity running until the firing lands.
func (d *Dispatcher) armTimer(wf *model.Workflow, instance *model.Instance, node *model.Node, activity *model.Activity) error {
	delay := time.Duration(node.Timer.DelayMillis) * time.Millisecond
	dueAt := time.Now().Add(delay).UnixMilli()
	if err := d.storage.Instances().SaveActivityOutput(instance.Id, activity.Id, map[string]any{"scheduledFor": dueAt}); err != nil {
		return err
	}
	msg := model.TimerMessage{
		InstanceId: instance.Id,
		NodeId:     node.Id,
		WorkflowId: wf.Id,
		DueAt:      dueAt,
		ActivityId: activity.Id,
	}
	data, err := d.timerEncDec.Encode(msg)
	if err != nil {
		return err
	}
	if err := d.storage.DelayQueue().PushWithDelay(persistence.TIMER_QUEUE, delay, data); err != nil {
		return err
	}
	logger.Debug("armed timer", zap.String("instance", instance.Id), zap.String("node", node.Id), zap.Int64("dueAt", dueAt))
	return nil
}

// HandleTimerFired closes the armed activity exactly once and continues
// the instance. A firing that finds the activity already closed or the
// instance gone is dropped.
func (d *Dispatcher) HandleTimerFired(msg *model.TimerMessage) error {
	instance, err := d.storage.Instances().GetInstance(msg.InstanceId)
	if err != nil {
		logger.Warn("dropping timer firing for unknown instance", zap.String("instance", msg.InstanceId), zap.Error(err))
		return nil
	}
	if instance.Status != model.INSTANCE_RUNNING {
		return nil
	}
	activity, err := d.storage.Instances().GetActivity(msg.InstanceId, msg.ActivityId)
	if err != nil {
		logger.Warn("dropping timer firing for unknown activity", zap.String("instance", msg.InstanceId), zap.String("activity", msg.ActivityId), zap.Error(err))
		return nil
	}
	output := map[string]any{
		"scheduledFor": msg.DueAt,
		"firedAt":      time.Now().UnixMilli(),
	}
	closed, err := d.storage.Instances().CloseActivity(msg.InstanceId, msg.ActivityId, model.ACTIVITY_SUCCESS, output, "")
	if err != nil {
		return err
	}
	if !closed {
		logger.Debug("timer already handled", zap.String("instance", msg.InstanceId), zap.String("activity", msg.ActivityId))
		return nil
	}
	wf, err := d.metadata.GetWorkflow(instance.WorkflowId)
	if err != nil {
		return d.FailInstance(instance.Id, "workflow definition missing: "+err.Error())
	}
	analytics.RecordActivitySuccess(wf.Id, msg.InstanceId, msg.NodeId, msg.ActivityId, output)
	return d.continueFrom(wf, msg.InstanceId, activity.NodeId)
}

// CompleteHook closes a suspended hook activity with the caller supplied
// data. A duplicate call is a no-op.
func (d *Dispatcher) CompleteHook(instanceId string, nodeId string, data map[string]any) error {
	instance, err := d.storage.Instances().GetInstance(instanceId)
	if err != nil {
		return err
	}
	if instance.Status != model.INSTANCE_RUNNING {
		logger.Debug("hook for closed instance ignored", zap.String("instance", instanceId), zap.String("node", nodeId))
		return nil
	}
	activity, err := d.storage.Instances().FindRunningActivity(instanceId, nodeId)
	if err != nil {
		if _, ok := err.(persistence.NotFoundError); ok {
			logger.Debug("no waiting hook activity, ignoring", zap.String("instance", instanceId), zap.String("node", nodeId))
			return nil
		}
		return err
	}
	wf, err := d.metadata.GetWorkflow(instance.WorkflowId)
	if err != nil {
		return err
	}
	node := wf.Node(nodeId)
	if node == nil || node.Kind != model.NODE_KIND_HOOK {
		return ConfigurationError{WorkflowId: wf.Id, NodeId: nodeId, Message: "not a hook node"}
	}
	if data == nil {
		data = make(map[string]any)
	}
	return d.completeActivity(wf, instanceId, node, activity.Id, data)
}

// completeActivity performs the single terminal transition and resolves
// what runs next. A lost race on the transition means another consumer
// already did both, so the call becomes a no-op.
func (d *Dispatcher) completeActivity(wf *model.Workflow, instanceId string, node *model.Node, activityId string, output map[string]any) error {
	if node.OutputExpr != "" {
		transformed, err := d.evaluator.Evaluate(node.OutputExpr, output)
		if err != nil {
			return d.failNode(wf, instanceId, node.Id, activityId, "output transform failed: "+err.Error())
		}
		output = transformed
	}
	closed, err := d.storage.Instances().CloseActivity(instanceId, activityId, model.ACTIVITY_SUCCESS, output, "")
	if err != nil {
		return err
	}
	if !closed {
		logger.Debug("activity already closed", zap.String("instance", instanceId), zap.String("activity", activityId))
		return nil
	}
	analytics.RecordActivitySuccess(wf.Id, instanceId, node.Id, activityId, output)
	return d.continueFrom(wf, instanceId, node.Id)
}

// continueFrom resolves the outbound edges of a completed node against
// fresh state, gates joins at publish time, and atomically swaps the
// completed node for its activations in the pending set.
func (d *Dispatcher) continueFrom(wf *model.Workflow, instanceId string, nodeId string) error {
	state, err := CurrentState(d.storage.Instances(), instanceId)
	if err != nil {
		return err
	}
	var activations []*model.ActivationMessage
	for _, next := range ResolveNext(wf, nodeId, state) {
		if next.Kind == model.NODE_KIND_JOIN && !CanEnter(next, state) {
			logger.Debug("join gate closed at publish, skipping", zap.String("instance", instanceId), zap.String("node", next.Id))
			continue
		}
		activations = append(activations, &model.ActivationMessage{
			InstanceId: instanceId,
			NodeId:     next.Id,
			Input:      state,
			Timestamp:  time.Now().UnixMilli(),
		})
	}
	remaining, err := d.storage.Instances().DispatchNext(instanceId, nodeId, activations)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return d.CompleteInstance(instanceId)
	}
	return nil
}

// drainPending removes a node from the pending set without recording a
// terminal activity, used when a gated activation is skipped at consume.
func (d *Dispatcher) drainPending(wf *model.Workflow, instanceId string, nodeId string) error {
	remaining, err := d.storage.Instances().DispatchNext(instanceId, nodeId, nil)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return d.CompleteInstance(instanceId)
	}
	return nil
}

// failNode records the activity failure and fails the whole instance.
func (d *Dispatcher) failNode(wf *model.Workflow, instanceId string, nodeId string, activityId string, reason string) error {
	if activityId != "" {
		closed, err := d.storage.Instances().CloseActivity(instanceId, activityId, model.ACTIVITY_FAILED, nil, reason)
		if err != nil {
			return err
		}
		if !closed {
			return nil
		}
	}
	analytics.RecordActivityFailure(wf.Id, instanceId, nodeId, activityId, reason)
	return d.FailInstance(instanceId, reason)
}
