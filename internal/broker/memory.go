// ABOUTME: In-process Broker backed by channels, for tests and single-binary runs.
// ABOUTME: Outbound fan-out mirrors pub/sub: every subscriber sees every message.

package broker

import (
	"context"
	"sync"
)

const memoryBufferSize = 64

// MemoryBroker is a channel-backed Broker for in-process wiring.
type MemoryBroker struct {
	turns chan *TurnRequest

	mu     sync.Mutex
	subs   map[int]chan *Outbound
	nextID int
	closed bool
}

// NewMemoryBroker creates an in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		turns: make(chan *TurnRequest, memoryBufferSize),
		subs:  make(map[int]chan *Outbound),
	}
}

// PublishTurn enqueues a turn for the runner.
func (b *MemoryBroker) PublishTurn(ctx context.Context, turn *TurnRequest) error {
	if b.isClosed() {
		return ErrClosed
	}
	select {
	case b.turns <- turn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Turns delivers enqueued turns until ctx is cancelled.
func (b *MemoryBroker) Turns(ctx context.Context) (<-chan *TurnRequest, error) {
	out := make(chan *TurnRequest, memoryBufferSize)
	go func() {
		defer close(out)
		for {
			select {
			case turn := <-b.turns:
				select {
				case out <- turn:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// PublishOutbound broadcasts to every subscriber. Slow subscribers drop.
func (b *MemoryBroker) PublishOutbound(ctx context.Context, out *Outbound) error {
	if b.isClosed() {
		return ErrClosed
	}
	b.mu.Lock()
	targets := make([]chan *Outbound, 0, len(b.subs))
	for _, ch := range b.subs {
		targets = append(targets, ch)
	}
	b.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- out:
		default:
		}
	}
	return nil
}

// Outbound subscribes to published agent output until ctx is cancelled.
func (b *MemoryBroker) Outbound(ctx context.Context) (<-chan *Outbound, error) {
	ch := make(chan *Outbound, memoryBufferSize)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = ch
	b.mu.Unlock()

	out := make(chan *Outbound, memoryBufferSize)
	go func() {
		defer close(out)
		defer func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		}()
		for {
			select {
			case msg := <-ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *MemoryBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close stops accepting publishes; subscriber goroutines exit with their
// contexts.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}
