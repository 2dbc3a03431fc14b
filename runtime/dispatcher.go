// Package runtime moves inbound events from the ingress to the workers
// handling them.
package runtime

import (
	"context"
	"locals-bot/contract"
	"locals-bot/domain"
	"locals-bot/errors"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"
)

var _ contract.Dispatcher = (*Dispatcher)(nil)

// Dispatcher spreads events over a fixed set of shards. Events of one
// conversation always land on the same shard, and each shard is consumed by
// one worker, so a conversation is handled one event at a time while
// different conversations run in parallel.
type Dispatcher struct {
	mu     sync.RWMutex
	closed bool
	shards []chan domain.Event
	log    *slog.Logger
}

func NewDispatcher(shards, bufferSize int, log *slog.Logger) *Dispatcher {
	if shards <= 0 {
		shards = 1
	}
	d := &Dispatcher{shards: make([]chan domain.Event, shards), log: log}
	for i := range d.shards {
		d.shards[i] = make(chan domain.Event, bufferSize)
	}
	return d
}

// Shards returns the receiving side of every shard, one per worker.
func (d *Dispatcher) Shards() []<-chan domain.Event {
	out := make([]<-chan domain.Event, len(d.shards))
	for i, ch := range d.shards {
		out[i] = ch
	}
	return out
}

func (d *Dispatcher) shardOf(key domain.SessionKey) int {
	return int(xxhash.Sum64String(key.String()) % uint64(len(d.shards)))
}

// Dispatch queues the event on its shard. It blocks while the shard is full.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errors.ErrDispatcherClosed
	}

	select {
	case d.shards[d.shardOf(event.Key())] <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events. Workers drain what is already queued and
// return once their shard is empty.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
	d.log.Info("Dispatcher closed, draining shards", "shards", len(d.shards))
}
