package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/loomworks/loom/logger"
	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/persistence"
	"github.com/loomworks/loom/util"
	"go.uber.org/zap"
)

const WORKFLOW_DEF string = "WORKFLOW"

type redisWorkflowDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Workflow]
}

var _ persistence.WorkflowDao = new(redisWorkflowDao)

func newRedisWorkflowDao(baseDao *baseDao) *redisWorkflowDao {
	return &redisWorkflowDao{
		baseDao:        baseDao,
		encoderDecoder: util.NewJsonEncoderDecoder[model.Workflow](),
	}
}

func (rw *redisWorkflowDao) Save(wf *model.Workflow) error {
	key := rw.getNamespaceKey(WORKFLOW_DEF)
	ctx := context.Background()
	data, err := rw.encoderDecoder.Encode(*wf)
	if err != nil {
		return err
	}
	if err := rw.redisClient.HSet(ctx, key, []string{wf.Id, string(data)}).Err(); err != nil {
		logger.Error("error in saving workflow definition", zap.String("workflow", wf.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rw *redisWorkflowDao) Get(id string) (*model.Workflow, error) {
	key := rw.getNamespaceKey(WORKFLOW_DEF)
	ctx := context.Background()
	val, err := rw.redisClient.HGet(ctx, key, id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "workflow", Id: id}
		}
		logger.Error("error in getting workflow definition", zap.String("workflow", id), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return rw.encoderDecoder.Decode([]byte(val))
}

func (rw *redisWorkflowDao) Delete(id string) error {
	key := rw.getNamespaceKey(WORKFLOW_DEF)
	ctx := context.Background()
	if err := rw.redisClient.HDel(ctx, key, id).Err(); err != nil {
		logger.Error("error in deleting workflow definition", zap.String("workflow", id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
