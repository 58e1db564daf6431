package executor

import (
	"fmt"
	"sync"
	"time"

	"github.com/loomworks/loom/engine"
	"github.com/loomworks/loom/logger"
	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/persistence"
	"github.com/loomworks/loom/util"
	"go.uber.org/zap"
)

var _ Executor = new(ActivationExecutor)

// ActivationExecutor polls the work queue and feeds decoded activations
// to a worker pool. Messages that cannot be decoded are logged and
// dropped, they would never become processable.
type ActivationExecutor struct {
	storage      persistence.Storage
	dispatcher   *engine.Dispatcher
	encDec       util.EncoderDecoder[model.ActivationMessage]
	batchSize    int
	pollInterval time.Duration
	capacity     int
	worker       *util.Worker
	stop         chan struct{}
	wg           *sync.WaitGroup
}

func NewActivationExecutor(storage persistence.Storage, dispatcher *engine.Dispatcher, batchSize int, pollInterval time.Duration, capacity int, wg *sync.WaitGroup) *ActivationExecutor {
	return &ActivationExecutor{
		storage:      storage,
		dispatcher:   dispatcher,
		encDec:       util.NewJsonEncoderDecoder[model.ActivationMessage](),
		batchSize:    batchSize,
		pollInterval: pollInterval,
		capacity:     capacity,
		stop:         make(chan struct{}),
		wg:           wg,
	}
}

func (ex *ActivationExecutor) Name() string {
	return "activation-executor"
}

func (ex *ActivationExecutor) handler(task util.Task) error {
	msg, ok := task.(*model.ActivationMessage)
	if !ok {
		return fmt.Errorf("can not handle task of type other than model.ActivationMessage")
	}
	return ex.dispatcher.Execute(msg)
}

func (ex *ActivationExecutor) Start() error {
	ex.worker = util.NewWorker(ex.Name(), ex.wg, ex.handler, ex.capacity)
	ex.worker.Start()
	fn := func() {
		res, err := ex.storage.Queue().Pop(persistence.ACTIVATION_QUEUE, ex.batchSize)
		if err != nil {
			logger.Error("error while polling activation queue", zap.Error(err))
			return
		}
		for _, r := range res {
			msg, err := ex.encDec.Decode([]byte(r))
			if err != nil {
				logger.Error("dropping undecodable activation message", zap.Error(err))
				continue
			}
			ex.worker.Sender() <- msg
		}
	}
	tw := util.NewTickWorker("activation-poller", ex.pollInterval, ex.stop, fn, ex.wg)
	tw.Start()
	logger.Info("activation executor started")
	return nil
}

func (ex *ActivationExecutor) Stop() error {
	ex.stop <- struct{}{}
	ex.worker.Stop()
	return nil
}
