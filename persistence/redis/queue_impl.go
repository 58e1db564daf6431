package redis

import (
	"context"
	"errors"
	"strconv"

	rd "github.com/go-redis/redis/v9"
	"github.com/loomworks/loom/logger"
	"github.com/loomworks/loom/persistence"
	"go.uber.org/zap"
)

type redisQueue struct {
	*baseDao
	ring *Ring
}

var _ persistence.Queue = new(redisQueue)

func newRedisQueue(baseDao *baseDao, ring *Ring) *redisQueue {
	return &redisQueue{
		baseDao: baseDao,
		ring:    ring,
	}
}

func (rq *redisQueue) Push(queueName string, instanceId string, message []byte) error {
	partition := strconv.Itoa(rq.ring.GetPartition(instanceId))
	key := rq.getNamespaceKey(queueName, partition)
	ctx := context.Background()
	err := rq.redisClient.LPush(ctx, key, message).Err()
	if err != nil {
		logger.Error("error while push to redis list", zap.String("queue", key), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rq *redisQueue) Pop(queueName string, batchSize int) ([]string, error) {
	result := make([]string, 0, batchSize)
	for _, partition := range rq.ring.GetPartitions() {
		key := rq.getNamespaceKey(queueName, strconv.Itoa(partition))
		items, err := rq.pop(key, batchSize-len(result))
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
		if len(result) >= batchSize {
			break
		}
	}
	return result, nil
}

func (rq *redisQueue) pop(key string, batchSize int) ([]string, error) {
	ctx := context.Background()
	res, err := rq.redisClient.RPopCount(ctx, key, batchSize).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []string{}, nil
		}
		logger.Error("error while pop from redis list", zap.String("queue", key), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return res, nil
}
