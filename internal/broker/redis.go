// ABOUTME: Redis-backed Broker: Streams for turn delivery, pub/sub for agent output.
// ABOUTME: The production bridge when gateway and runner are separate processes.

package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	turnStream      = "agentwire:turns"
	outboundChannel = "agentwire:outbound"
)

// RedisBroker implements Broker on a Redis instance shared by the gateway
// and the agent runner.
type RedisBroker struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisBroker connects to the Redis instance at url
// (redis://host:port/db form).
func NewRedisBroker(url string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &RedisBroker{
		rdb:    redis.NewClient(opts),
		logger: slog.Default().With("component", "broker"),
	}, nil
}

// PublishTurn appends the turn to the inbound stream.
func (b *RedisBroker) PublishTurn(ctx context.Context, turn *TurnRequest) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encoding turn: %w", err)
	}
	err = b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: turnStream,
		Values: map[string]any{"turn": string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("appending turn to stream: %w", err)
	}
	return nil
}

// Turns tails the inbound stream from now on, delivering each turn once.
func (b *RedisBroker) Turns(ctx context.Context) (<-chan *TurnRequest, error) {
	out := make(chan *TurnRequest, memoryBufferSize)
	go func() {
		defer close(out)
		lastID := "$"
		for {
			streams, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{turnStream, lastID},
				Count:   16,
				Block:   0,
			}).Result()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
					return
				}
				b.logger.Warn("reading turn stream failed", "error", err)
				continue
			}

			for _, stream := range streams {
				for _, msg := range stream.Messages {
					lastID = msg.ID
					raw, ok := msg.Values["turn"].(string)
					if !ok {
						b.logger.Warn("turn stream entry missing payload", "id", msg.ID)
						continue
					}
					var turn TurnRequest
					if err := json.Unmarshal([]byte(raw), &turn); err != nil {
						b.logger.Warn("dropping malformed turn", "id", msg.ID, "error", err)
						continue
					}
					select {
					case out <- &turn:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

// PublishOutbound broadcasts agent output on the outbound channel.
func (b *RedisBroker) PublishOutbound(ctx context.Context, msg *Outbound) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding outbound message: %w", err)
	}
	if err := b.rdb.Publish(ctx, outboundChannel, payload).Err(); err != nil {
		return fmt.Errorf("publishing outbound message: %w", err)
	}
	return nil
}

// Outbound subscribes to the outbound channel until ctx is cancelled.
func (b *RedisBroker) Outbound(ctx context.Context) (<-chan *Outbound, error) {
	pubsub := b.rdb.Subscribe(ctx, outboundChannel)
	// Confirm the subscription before handing back the channel, so callers
	// do not miss messages published right after this call returns.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribing to outbound channel: %w", err)
	}

	out := make(chan *Outbound, memoryBufferSize)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var decoded Outbound
				if err := json.Unmarshal([]byte(msg.Payload), &decoded); err != nil {
					b.logger.Warn("dropping malformed outbound message", "error", err)
					continue
				}
				select {
				case out <- &decoded:
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

// Close releases the Redis connection.
func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}
