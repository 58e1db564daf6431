package executor

import (
	"sync"
	"time"

	"github.com/loomworks/loom/engine"
	"github.com/loomworks/loom/logger"
	"github.com/loomworks/loom/model"
	"github.com/loomworks/loom/persistence"
	"github.com/loomworks/loom/util"
	"go.uber.org/zap"
)

var _ Executor = new(TimerExecutor)

// TimerExecutor polls the delay queue for fired timers. A firing that
// cannot be processed is logged and dropped, never requeued, the closing
// transition on the activity keeps duplicates harmless.
type TimerExecutor struct {
	storage      persistence.Storage
	dispatcher   *engine.Dispatcher
	encDec       util.EncoderDecoder[model.TimerMessage]
	pollInterval time.Duration
	stop         chan struct{}
	wg           *sync.WaitGroup
}

func NewTimerExecutor(storage persistence.Storage, dispatcher *engine.Dispatcher, pollInterval time.Duration, wg *sync.WaitGroup) *TimerExecutor {
	return &TimerExecutor{
		storage:      storage,
		dispatcher:   dispatcher,
		encDec:       util.NewJsonEncoderDecoder[model.TimerMessage](),
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
		wg:           wg,
	}
}

func (ex *TimerExecutor) Name() string {
	return "timer-executor"
}

func (ex *TimerExecutor) Start() error {
	fn := func() {
		res, err := ex.storage.DelayQueue().Pop(persistence.TIMER_QUEUE)
		if err != nil {
			logger.Error("error while polling timer queue", zap.Error(err))
			return
		}
		for _, r := range res {
			msg, err := ex.encDec.Decode([]byte(r))
			if err != nil {
				logger.Error("dropping undecodable timer message", zap.Error(err))
				continue
			}
			if err := ex.dispatcher.HandleTimerFired(msg); err != nil {
				logger.Error("dropping unprocessable timer firing", zap.String("instance", msg.InstanceId), zap.String("activity", msg.ActivityId), zap.Error(err))
			}
		}
	}
	tw := util.NewTickWorker("timer-poller", ex.pollInterval, ex.stop, fn, ex.wg)
	tw.Start()
	logger.Info("timer executor started")
	return nil
}

func (ex *TimerExecutor) Stop() error {
	ex.stop <- struct{}{}
	return nil
}
