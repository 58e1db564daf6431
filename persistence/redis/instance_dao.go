package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/loomworks/loom/logger"
	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/persistence"
	"github.com/loomworks/loom/util"
	"go.uber.org/zap"
)

const INSTANCE_KEY string = "INSTANCE"
const ACTIVITY_KEY string = "ACTIVITY"
const ACTIVITY_ORDER_KEY string = "ACTIVITY_ORDER"
const RUNNING_KEY string = "RUNNING"

const dispatchRetries = 5

// closeActivityScript swaps in the closed activity json only while the
// stored one is still running; a zero result is a duplicate close.
var closeActivityScript = rd.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[1])
if not raw then return -1 end
local act = cjson.decode(raw)
if act['status'] ~= 'running' then return 0 end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
local runningId = redis.call('HGET', KEYS[2], act['nodeId'])
if runningId == ARGV[1] then redis.call('HDEL', KEYS[2], act['nodeId']) end
return 1
`)

var closeInstanceScript = rd.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return -1 end
local instance = cjson.decode(raw)
if instance['status'] ~= 'running' then return 0 end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

type redisInstanceDao struct {
	*baseDao
	ring           *Ring
	instanceEncDec util.EncoderDecoder[model.Instance]
	activityEncDec util.EncoderDecoder[model.Activity]
	msgEncDec      util.EncoderDecoder[model.ActivationMessage]
}

var _ persistence.InstanceDao = new(redisInstanceDao)

func newRedisInstanceDao(baseDao *baseDao, ring *Ring) *redisInstanceDao {
	return &redisInstanceDao{
		baseDao:        baseDao,
		ring:           ring,
		instanceEncDec: util.NewJsonEncoderDecoder[model.Instance](),
		activityEncDec: util.NewJsonEncoderDecoder[model.Activity](),
		msgEncDec:      util.NewJsonEncoderDecoder[model.ActivationMessage](),
	}
}

func (ri *redisInstanceDao) instanceKey(id string) string {
	return ri.getNamespaceKey(INSTANCE_KEY, id)
}

func (ri *redisInstanceDao) CreateInstance(instance *model.Instance) error {
	ctx := context.Background()
	data, err := ri.instanceEncDec.Encode(*instance)
	if err != nil {
		return err
	}
	if err := ri.redisClient.Set(ctx, ri.instanceKey(instance.Id), data, 0).Err(); err != nil {
		logger.Error("error in saving instance", zap.String("instanceId", instance.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (ri *redisInstanceDao) GetInstance(id string) (*model.Instance, error) {
	ctx := context.Background()
	val, err := ri.redisClient.Get(ctx, ri.instanceKey(id)).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "instance", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return ri.instanceEncDec.Decode([]byte(val))
}

func (ri *redisInstanceDao) CloseInstance(id string, status model.InstanceStatus, output map[string]any, errMsg string) (bool, error) {
	ctx := context.Background()
	instance, err := ri.GetInstance(id)
	if err != nil {
		return false, err
	}
	if instance.Status != model.INSTANCE_RUNNING {
		return false, nil
	}
	now := time.Now()
	instance.Status = status
	instance.Output = output
	instance.Error = errMsg
	instance.FinishedAt = &now
	data, err := ri.instanceEncDec.Encode(*instance)
	if err != nil {
		return false, err
	}
	res, err := closeInstanceScript.Run(ctx, ri.redisClient, []string{ri.instanceKey(id)}, string(data)).Int()
	if err != nil {
		logger.Error("error in closing instance", zap.String("instanceId", id), zap.Error(err))
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	if res == -1 {
		return false, persistence.NotFoundError{Kind: "instance", Id: id}
	}
	return res == 1, nil
}

func (ri *redisInstanceDao) CreateActivity(activity *model.Activity) error {
	ctx := context.Background()
	data, err := ri.activityEncDec.Encode(*activity)
	if err != nil {
		return err
	}
	activityKey := ri.getNamespaceKey(ACTIVITY_KEY, activity.InstanceId)
	orderKey := ri.getNamespaceKey(ACTIVITY_ORDER_KEY, activity.InstanceId)
	runningKey := ri.getNamespaceKey(RUNNING_KEY, activity.InstanceId)
	_, err = ri.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		pipe.HSet(ctx, activityKey, []string{activity.Id, string(data)})
		pipe.RPush(ctx, orderKey, activity.Id)
		pipe.HSet(ctx, runningKey, []string{activity.NodeId, activity.Id})
		return nil
	})
	if err != nil {
		logger.Error("error in saving activity", zap.String("instanceId", activity.InstanceId), zap.String("activityId", activity.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (ri *redisInstanceDao) GetActivity(instanceId string, activityId string) (*model.Activity, error) {
	ctx := context.Background()
	key := ri.getNamespaceKey(ACTIVITY_KEY, instanceId)
	val, err := ri.redisClient.HGet(ctx, key, activityId).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "activity", Id: activityId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return ri.activityEncDec.Decode([]byte(val))
}

func (ri *redisInstanceDao) FindRunningActivity(instanceId string, nodeId string) (*model.Activity, error) {
	ctx := context.Background()
	runningKey := ri.getNamespaceKey(RUNNING_KEY, instanceId)
	activityId, err := ri.redisClient.HGet(ctx, runningKey, nodeId).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "activity", Id: nodeId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	activity, err := ri.GetActivity(instanceId, activityId)
	if err != nil {
		return nil, err
	}
	if activity.Status != model.ACTIVITY_RUNNING {
		return nil, persistence.NotFoundError{Kind: "activity", Id: nodeId}
	}
	return activity, nil
}

func (ri *redisInstanceDao) CloseActivity(instanceId string, activityId string, status model.ActivityStatus, output map[string]any, errMsg string) (bool, error) {
	ctx := context.Background()
	activity, err := ri.GetActivity(instanceId, activityId)
	if err != nil {
		return false, err
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
	data, err := ri.activityEncDec.Encode(*activity)
	if err != nil {
		return false, err
	}
	activityKey := ri.getNamespaceKey(ACTIVITY_KEY, instanceId)
	runningKey := ri.getNamespaceKey(RUNNING_KEY, instanceId)
	res, err := closeActivityScript.Run(ctx, ri.redisClient, []string{activityKey, runningKey}, activityId, string(data)).Int()
	if err != nil {
		logger.Error("error in closing activity", zap.String("instanceId", instanceId), zap.String("activityId", activityId), zap.Error(err))
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	if res == -1 {
		return false, persistence.NotFoundError{Kind: "activity", Id: activityId}
	}
	return res == 1, nil
}

func (ri *redisInstanceDao) SaveActivityOutput(instanceId string, activityId string, output map[string]any) error {
	ctx := context.Background()
	activity, err := ri.GetActivity(instanceId, activityId)
	if err != nil {
		return err
	}
	activity.Output = output
	activity.UpdatedAt = time.Now()
	data, err := ri.activityEncDec.Encode(*activity)
	if err != nil {
		return err
	}
	key := ri.getNamespaceKey(ACTIVITY_KEY, instanceId)
	if err := ri.redisClient.HSet(ctx, key, []string{activityId, string(data)}).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (ri *redisInstanceDao) ListActivities(instanceId string) ([]*model.Activity, error) {
	ctx := context.Background()
	orderKey := ri.getNamespaceKey(ACTIVITY_ORDER_KEY, instanceId)
	ids, err := ri.redisClient.LRange(ctx, orderKey, 0, -1).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	out := make([]*model.Activity, 0, len(ids))
	for _, id := range ids {
		activity, err := ri.GetActivity(instanceId, id)
		if err != nil {
			return nil, err
		}
		out = append(out, activity)
	}
	return out, nil
}

func (ri *redisInstanceDao) DispatchNext(instanceId string, completedNodeId string, activations []*model.ActivationMessage) (int, error) {
	ctx := context.Background()
	key := ri.instanceKey(instanceId)
	queueKey := ri.getNamespaceKey(persistence.ACTIVATION_QUEUE, strconv.Itoa(ri.ring.GetPartition(instanceId)))
	messages := make([][]byte, 0, len(activations))
	for _, msg := range activations {
		data, err := ri.msgEncDec.Encode(*msg)
		if err != nil {
			return 0, err
		}
		messages = append(messages, data)
	}
	var remaining int
	txn := func(tx *rd.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, rd.Nil) {
				return persistence.NotFoundError{Kind: "instance", Id: instanceId}
			}
			return err
		}
		instance, err := ri.instanceEncDec.Decode([]byte(raw))
		if err != nil {
			return err
		}
		if instance.Pending == nil {
			instance.Pending = make(map[string]int)
		}
		delete(instance.Pending, completedNodeId)
		for _, msg := range activations {
			instance.Pending[msg.NodeId] = 1
		}
		remaining = len(instance.Pending)
		data, err := ri.instanceEncDec.Encode(*instance)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			for _, m := range messages {
				pipe.LPush(ctx, queueKey, m)
			}
			return nil
		})
		return err
	}
	for i := 0; i < dispatchRetries; i++ {
		err := ri.redisClient.Watch(ctx, txn, key)
		if err == nil {
			return remaining, nil
		}
		if errors.Is(err, rd.TxFailedErr) {
			continue
		}
		var notFound persistence.NotFoundError
		if errors.As(err, &notFound) {
			return 0, err
		}
		logger.Error("error dispatching activations", zap.String("instanceId", instanceId), zap.Error(err))
		return 0, persistence.StorageLayerError{Message: err.Error()}
	}
	return 0, persistence.StorageLayerError{Message: "dispatch transaction retries exhausted"}
}
