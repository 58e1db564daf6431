package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/loomworks/loom/action"
	"github.com/loomworks/loom/analytics"
	"github.com/loomworks/loom/config"
	"github.com/loomworks/loom/engine"
	"github.com/loomworks/loom/executor"
	"github.com/loomworks/loom/logger"
	"github.com/loomworks/loom/metadata"
	"github.com/loomworks/loom/persistence"
	"github.com/loomworks/loom/persistence/memory"
	"github.com/loomworks/loom/persistence/redis"
	"github.com/loomworks/loom/rest"
	"github.com/loomworks/loom/service"
)

// Agent wires storage, engine, executors and the http surface into one
// runnable process.
type Agent struct {
	Config       config.Config
	storage      persistence.Storage
	metadata     metadata.Service
	dispatcher   *engine.Dispatcher
	executors    []executor.Executor
	httpServer   *rest.Server
	shutdown     bool
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(cfg config.Config) (*Agent, error) {
	a := &Agent{
		Config: cfg,
	}
	setup := []func() error{
		a.setupAnalytics,
		a.setupStorage,
		a.setupDispatcher,
		a.setupExecutors,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupAnalytics() error {
	return analytics.Init(a.Config.AnalyticsFile)
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		a.storage = redis.NewStorage(redis.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
		}, a.Config.PartitionCount)
	case config.STORAGE_TYPE_INMEM:
		a.storage = memory.NewStorage()
	default:
		return fmt.Errorf("unknown storage implementation %s", a.Config.StorageType)
	}
	a.metadata = metadata.NewService(a.storage.Workflows())
	return nil
}

func (a *Agent) setupDispatcher() error {
	httpExecutor := action.NewHttpExecutor(time.Duration(a.Config.ActionTimeoutMillis) * time.Millisecond)
	a.dispatcher = engine.NewDispatcher(a.storage, a.metadata, httpExecutor)
	return nil
}

func (a *Agent) setupExecutors() error {
	pollInterval := time.Duration(a.Config.PollIntervalMillis) * time.Millisecond
	a.executors = []executor.Executor{
		executor.NewActivationExecutor(a.storage, a.dispatcher, a.Config.ActivityBatchSize, pollInterval, a.Config.ActionExecutorCapacity, &a.wg),
		executor.NewTimerExecutor(a.storage, a.dispatcher, pollInterval, &a.wg),
	}
	return nil
}

func (a *Agent) setupHttpServer() error {
	executionService := service.NewWorkflowExecutionService(a.storage, a.metadata, a.dispatcher)
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, executionService)
	return err
}

func (a *Agent) Start() error {
	for _, ex := range a.executors {
		if err := ex.Start(); err != nil {
			return err
		}
	}
	go func() {
		if err := a.httpServer.Start(); err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	for _, ex := range a.executors {
		if err := ex.Stop(); err != nil {
			return err
		}
	}
	if err := a.httpServer.Stop(); err != nil {
		return err
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return a.storage.Close()
}
