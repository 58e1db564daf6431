package redis

import (
	rd "github.com/go-redis/redis/v9"
	"github.com/loomworks/loom/persistence"
)

type Storage struct {
	client      rd.UniversalClient
	workflowDao *redisWorkflowDao
	instanceDao *redisInstanceDao
	queue       *redisQueue
	delayQueue  *redisDelayQueue
}

var _ persistence.Storage = new(Storage)

func NewStorage(config Config, partitionCount int) *Storage {
	client := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs:    config.Addrs,
		Password: config.Password,
	})
	base := &baseDao{
		redisClient: client,
		namespace:   config.Namespace,
	}
	ring := NewRing(partitionCount)
	return &Storage{
		client:      client,
		workflowDao: newRedisWorkflowDao(base),
		instanceDao: newRedisInstanceDao(base, ring),
		queue:       newRedisQueue(base, ring),
		delayQueue:  newRedisDelayQueue(base),
	}
}

func (s *Storage) Workflows() persistence.WorkflowDao {
	return s.workflowDao
}

func (s *Storage) Instances() persistence.InstanceDao {
	return s.instanceDao
}

func (s *Storage) Queue() persistence.Queue {
	return s.queue
}

func (s *Storage) DelayQueue() persistence.DelayQueue {
	return s.delayQueue
}

func (s *Storage) Close() error {
	return s.client.Close()
}
