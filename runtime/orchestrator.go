package runtime

import (
	"context"
	"fmt"
	"locals-bot/contract"
	"locals-bot/runtime/workers"
	"log/slog"
	"time"
)

// Orchestrator owns the event pipeline: ingress workers feed the dispatcher,
// one chat worker per shard consumes it.
type Orchestrator struct {
	log             *slog.Logger
	dispatcher      *Dispatcher
	handler         contract.EventHandler
	handlerTimeout  time.Duration
	restartInterval time.Duration
	pool            *workers.Supervisor
	ingress         *workers.Supervisor
	poolDone        chan struct{}
	ingressDone     chan struct{}
}

func NewOrchestrator(log *slog.Logger, handler contract.EventHandler,
	numWorkers, bufferSize int, handlerTimeout, restartInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		log:             log,
		dispatcher:      NewDispatcher(numWorkers, bufferSize, log),
		handler:         handler,
		handlerTimeout:  handlerTimeout,
		restartInterval: restartInterval,
		pool:            workers.NewSupervisor(log, restartInterval),
		ingress:         workers.NewSupervisor(log, restartInterval),
		poolDone:        make(chan struct{}),
		ingressDone:     make(chan struct{}),
	}
}

// Dispatcher is the entry point for ingress components.
func (o *Orchestrator) Dispatcher() *Dispatcher {
	return o.dispatcher
}

// Start launches the chat workers and the given ingress workers. Ingress
// stops with ctx; chat workers only stop once Stop drained the shards.
func (o *Orchestrator) Start(ctx context.Context, ingress ...contract.Worker) {
	for i, shard := range o.dispatcher.Shards() {
		o.pool.Add(workers.NewChatWorker(shard, o.handler, o.handlerTimeout, o.log.With("shard", i)))
	}
	go func() {
		defer close(o.poolDone)
		o.pool.Run(context.Background())
	}()

	o.ingress.Add(ingress...)
	go func() {
		defer close(o.ingressDone)
		o.ingress.Run(ctx)
	}()
	o.log.Info("Orchestrator started", "shards", len(o.dispatcher.Shards()), "ingress", len(ingress))
}

// Stop halts ingress, then lets in-flight and queued events finish within
// drainTimeout.
func (o *Orchestrator) Stop(drainTimeout time.Duration) error {
	o.ingress.Stop()
	<-o.ingressDone

	o.dispatcher.Close()
	select {
	case <-o.poolDone:
		o.log.Info("All events drained")
		return nil
	case <-time.After(drainTimeout):
		o.pool.Stop()
		<-o.poolDone
		return fmt.Errorf("drain did not complete within %s", drainTimeout)
	}
}
