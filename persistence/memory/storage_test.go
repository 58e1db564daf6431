package memory

import (
	"testing"
	"time"

	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runningInstance(t *testing.T, s *Storage) *model.Instance {
	instance := &model.Instance{
		Id:         "in-1",
		WorkflowId: "wf-1",
		Status:     model.INSTANCE_RUNNING,
		Input:      map[string]any{"a": 1},
		Pending:    map[string]int{"n1": 1},
		StartedAt:  time.Now(),
	}
	require.NoError(t, s.CreateInstance(instance))
	return instance
}

func runningActivity(t *testing.T, s *Storage, id string, nodeId string) *model.Activity {
	activity := &model.Activity{
		Id:         id,
		InstanceId: "in-1",
		WorkflowId: "wf-1",
		NodeId:     nodeId,
		Status:     model.ACTIVITY_RUNNING,
		StartedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, s.CreateActivity(activity))
	return activity
}

func TestCloseActivityIsExactlyOnce(t *testing.T) {
	s := NewStorage()
	runningInstance(t, s)
	runningActivity(t, s, "a1", "n1")

	closed, err := s.CloseActivity("in-1", "a1", model.ACTIVITY_SUCCESS, map[string]any{"x": 1}, "")
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = s.CloseActivity("in-1", "a1", model.ACTIVITY_FAILED, nil, "late")
	require.NoError(t, err)
	assert.False(t, closed, "second close must lose")

	activity, err := s.GetActivity("in-1", "a1")
	require.NoError(t, err)
	assert.Equal(t, model.ACTIVITY_SUCCESS, activity.Status)
	assert.Empty(t, activity.Error)
}

func TestFindRunningActivity(t *testing.T) {
	s := NewStorage()
	runningInstance(t, s)
	activity := runningActivity(t, s, "a1", "n1")

	found, err := s.FindRunningActivity("in-1", "n1")
	require.NoError(t, err)
	assert.Equal(t, activity.Id, found.Id)

	_, err = s.CloseActivity("in-1", "a1", model.ACTIVITY_SUCCESS, nil, "")
	require.NoError(t, err)
	_, err = s.FindRunningActivity("in-1", "n1")
	assert.IsType(t, persistence.NotFoundError{}, err)
}

func TestCloseInstanceIsExactlyOnce(t *testing.T) {
	s := NewStorage()
	runningInstance(t, s)

	closed, err := s.CloseInstance("in-1", model.INSTANCE_SUCCESS, map[string]any{"done": true}, "")
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = s.CloseInstance("in-1", model.INSTANCE_FAILED, nil, "late")
	require.NoError(t, err)
	assert.False(t, closed)

	instance, err := s.GetInstance("in-1")
	require.NoError(t, err)
	assert.Equal(t, model.INSTANCE_SUCCESS, instance.Status)
}

func TestDispatchNextDrainsPending(t *testing.T) {
	s := NewStorage()
	runningInstance(t, s)

	remaining, err := s.DispatchNext("in-1", "n1", []*model.ActivationMessage{
		{InstanceId: "in-1", NodeId: "n2"},
		{InstanceId: "in-1", NodeId: "n3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	remaining, err = s.DispatchNext("in-1", "n2", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	remaining, err = s.DispatchNext("in-1", "n3", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	msgs, err := s.Queue().Pop(persistence.ACTIVATION_QUEUE, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestQueueIsFifo(t *testing.T) {
	s := NewStorage()
	q := s.Queue()
	require.NoError(t, q.Push("q", "in-1", []byte("first")))
	require.NoError(t, q.Push("q", "in-1", []byte("second")))

	msgs, err := q.Pop("q", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"first"}, msgs)

	msgs, err = q.Pop("q", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"second"}, msgs)

	msgs, err = q.Pop("q", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDelayQueueGatesOnDueTime(t *testing.T) {
	s := NewStorage()
	dq := s.DelayQueue()
	require.NoError(t, dq.PushWithDelay("d", time.Hour, []byte("later")))
	require.NoError(t, dq.PushWithDelay("d", 0, []byte("now")))

	msgs, err := dq.Pop("d")
	require.NoError(t, err)
	assert.Equal(t, []string{"now"}, msgs)

	msgs, err = dq.Pop("d")
	require.NoError(t, err)
	assert.Empty(t, msgs, "undue message stays queued")
}

func TestListActivitiesKeepsCreationOrder(t *testing.T) {
	s := NewStorage()
	runningInstance(t, s)
	runningActivity(t, s, "a1", "n1")
	runningActivity(t, s, "a2", "n2")
	runningActivity(t, s, "a3", "n3")

	activities, err := s.ListActivities("in-1")
	require.NoError(t, err)
	ids := make([]string, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.Id)
	}
	assert.Equal(t, []string{"a1", "a2", "a3"}, ids)
}
