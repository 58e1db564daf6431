// Package memory is an in-process storage backend. It backs single node
// deployments and the engine tests; durability comes from the redis
// backend.
package memory

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/persistence"
	"github.com/loomworks/loom/util"
)

type delayedMessage struct {
	dueAt   time.Time
	message []byte
}

type Storage struct {
	mu         sync.Mutex
	workflows  map[string]*model.Workflow
	instances  map[string]*model.Instance
	activities map[string]map[string]*model.Activity
	order      map[string][]string
	running    map[string]map[string]string
	queues     map[string][][]byte
	delayed    map[string][]delayedMessage
	encDec     util.EncoderDecoder[model.ActivationMessage]
}

var _ persistence.Storage = new(Storage)
var _ persistence.WorkflowDao = new(Storage)
var _ persistence.InstanceDao = new(Storage)

func NewStorage() *Storage {
	return &Storage{
		workflows:  make(map[string]*model.Workflow),
		instances:  make(map[string]*model.Instance),
		activities: make(map[string]map[string]*model.Activity),
		order:      make(map[string][]string),
		running:    make(map[string]map[string]string),
		queues:     make(map[string][][]byte),
		delayed:    make(map[string][]delayedMessage),
		encDec:     util.NewJsonEncoderDecoder[model.ActivationMessage](),
	}
}

func (s *Storage) Workflows() persistence.WorkflowDao { return s }
func (s *Storage) Instances() persistence.InstanceDao { return s }
func (s *Storage) Queue() persistence.Queue           { return &memoryQueue{s} }
func (s *Storage) DelayQueue() persistence.DelayQueue { return &memoryDelayQueue{s} }
func (s *Storage) Close() error                       { return nil }

func (s *Storage) Save(wf *model.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[wf.Id] = clone(wf)
	return nil
}

func (s *Storage) Get(id string) (*model.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "workflow", Id: id}
	}
	return clone(wf), nil
}

func (s *Storage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
	return nil
}

func (s *Storage) CreateInstance(instance *model.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[instance.Id] = clone(instance)
	return nil
}

func (s *Storage) GetInstance(id string) (*model.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	instance, ok := s.instances[id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "instance", Id: id}
	}
	return clone(instance), nil
}

func (s *Storage) CloseInstance(id string, status model.InstanceStatus, output map[string]any, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	instance, ok := s.instances[id]
	if !ok {
		return false, persistence.NotFoundError{Kind: "instance", Id: id}
	}
	if instance.Status != model.INSTANCE_RUNNING {
		return false, nil
	}
	now := time.Now()
	instance.Status = status
	instance.Output = output
	instance.Error = errMsg
	instance.FinishedAt = &now
	return true, nil
}

func (s *Storage) CreateActivity(activity *model.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acts, ok := s.activities[activity.InstanceId]
	if !ok {
		acts = make(map[string]*model.Activity)
		s.activities[activity.InstanceId] = acts
	}
	acts[activity.Id] = clone(activity)
	s.order[activity.InstanceId] = append(s.order[activity.InstanceId], activity.Id)
	running, ok := s.running[activity.InstanceId]
	if !ok {
		running = make(map[string]string)
		s.running[activity.InstanceId] = running
	}
	running[activity.NodeId] = activity.Id
	return nil
}

func (s *Storage) GetActivity(instanceId string, activityId string) (*model.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity, ok := s.activities[instanceId][activityId]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "activity", Id: activityId}
	}
	return clone(activity), nil
}

func (s *Storage) FindRunningActivity(instanceId string, nodeId string) (*model.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activityId, ok := s.running[instanceId][nodeId]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "activity", Id: nodeId}
	}
	activity := s.activities[instanceId][activityId]
	if activity == nil || activity.Status != model.ACTIVITY_RUNNING {
		return nil, persistence.NotFoundError{Kind: "activity", Id: nodeId}
	}
	return clone(activity), nil
}

func (s *Storage) CloseActivity(instanceId string, activityId string, status model.ActivityStatus, output map[string]any, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity, ok := s.activities[instanceId][activityId]
	if !ok {
		return false, persistence.NotFoundError{Kind: "activity", Id: activityId}
	}
	if activity.Status != model.ACTIVITY_RUNNING {
		return false, nil
	}
	now := time.Now()
	activity.Status = status
	if output != nil {
		activity.Output = output
	}
	activity.Error = errMsg
	activity.FinishedAt = &now
	activity.UpdatedAt = now
	if s.running[instanceId][activity.NodeId] == activityId {
		delete(s.running[instanceId], activity.NodeId)
	}
	return true, nil
}

func (s *Storage) SaveActivityOutput(instanceId string, activityId string, output map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity, ok := s.activities[instanceId][activityId]
	if !ok {
		return persistence.NotFoundError{Kind: "activity", Id: activityId}
	}
	activity.Output = output
	activity.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) ListActivities(instanceId string) ([]*model.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.order[instanceId]
	out := make([]*model.Activity, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(s.activities[instanceId][id]))
	}
	return out, nil
}

func (s *Storage) DispatchNext(instanceId string, completedNodeId string, activations []*model.ActivationMessage) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	instance, ok := s.instances[instanceId]
	if !ok {
		return 0, persistence.NotFoundError{Kind: "instance", Id: instanceId}
	}
	if instance.Pending == nil {
		instance.Pending = make(map[string]int)
	}
	delete(instance.Pending, completedNodeId)
	for _, msg := range activations {
		instance.Pending[msg.NodeId] = 1
		data, err := s.encDec.Encode(*msg)
		if err != nil {
			return 0, err
		}
		s.queues[persistence.ACTIVATION_QUEUE] = append(s.queues[persistence.ACTIVATION_QUEUE], data)
	}
	return len(instance.Pending), nil
}

type memoryQueue struct {
	s *Storage
}

var _ persistence.Queue = new(memoryQueue)

func (q *memoryQueue) Push(queueName string, instanceId string, message []byte) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	q.s.queues[queueName] = append(q.s.queues[queueName], message)
	return nil
}

func (q *memoryQueue) Pop(queueName string, batchSize int) ([]string, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	queue := q.s.queues[queueName]
	n := batchSize
	if n > len(queue) {
		n = len(queue)
	}
	out := make([]string, 0, n)
	for _, msg := range queue[:n] {
		out = append(out, string(msg))
	}
	q.s.queues[queueName] = queue[n:]
	return out, nil
}

type memoryDelayQueue struct {
	s *Storage
}

var _ persistence.DelayQueue = new(memoryDelayQueue)

func (q *memoryDelayQueue) PushWithDelay(queueName string, delay time.Duration, message []byte) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	q.s.delayed[queueName] = append(q.s.delayed[queueName], delayedMessage{
		dueAt:   time.Now().Add(delay),
		message: message,
	})
	return nil
}

func (q *memoryDelayQueue) Pop(queueName string) ([]string, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	now := time.Now()
	var fired []string
	var waiting []delayedMessage
	for _, m := range q.s.delayed[queueName] {
		if !m.dueAt.After(now) {
			fired = append(fired, string(m.message))
		} else {
			waiting = append(waiting, m)
		}
	}
	q.s.delayed[queueName] = waiting
	return fired, nil
}

func clone[T any](in *T) *T {
	data, _ := json.Marshal(in)
	out := new(T)
	_ = json.Unmarshal(data, out)
	return out
}
