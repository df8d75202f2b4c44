// ABOUTME: Scripted agent runner for exercising a gateway end to end
// ABOUTME: Consumes turns from the broker and replays a canned progress stream

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minuet-ai/agentwire/internal/broker"
	"github.com/minuet-ai/agentwire/internal/protocol"
)

func main() {
	redisURL := flag.String("redis", "redis://localhost:6379/0", "broker redis URL")
	delay := flag.Duration("delay", 300*time.Millisecond, "pause between scripted events")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(ctx, logger, *redisURL, *delay); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, redisURL string, delay time.Duration) error {
	br, err := broker.NewRedisBroker(redisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer br.Close()

	turns, err := br.Turns(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to turns: %w", err)
	}

	logger.Info("fake runner waiting for turns", "redis", redisURL)

	for turn := range turns {
		logger.Info("handling turn",
			"session_id", turn.SessionID,
			"message_id", turn.MessageID)
		if err := playTurn(ctx, br, turn, delay); err != nil {
			logger.Error("turn playback failed", "session_id", turn.SessionID, "error", err)
		}
	}
	return ctx.Err()
}

// playTurn replays a fixed progress script and a terminal response for one turn.
func playTurn(ctx context.Context, br broker.Broker, turn *broker.TurnRequest, delay time.Duration) error {
	script := []protocol.AgentEvent{
		{Type: protocol.AgentStarted},
		{Type: protocol.AgentThinking, Data: &protocol.EventData{Message: "reading the request"}},
		{Type: protocol.ToolStarted, Data: &protocol.EventData{ToolName: "search"}},
		{Type: protocol.ToolProgress, Data: &protocol.EventData{ToolName: "search", Progress: 50}},
		{Type: protocol.ToolCompleted, Data: &protocol.EventData{ToolName: "search"}},
		{Type: protocol.TodosUpdated, Data: &protocol.EventData{Todos: []protocol.Todo{
			{Content: "answer the question", Status: protocol.TodoCompleted},
		}}},
		{Type: protocol.AgentCompleted},
	}

	for i := range script {
		ev := script[i]
		ev.SessionID = turn.SessionID
		ev.Timestamp = time.Now().UTC()
		if err := br.PublishOutbound(ctx, &broker.Outbound{
			SessionID: turn.SessionID,
			Event:     &ev,
		}); err != nil {
			return err
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return br.PublishOutbound(ctx, &broker.Outbound{
		SessionID: turn.SessionID,
		Response: &protocol.ResponseBatch{
			Responses: []protocol.AgentResponse{{
				Output: fmt.Sprintf("Echoing back: %s", turn.Message),
			}},
			IsComplete: true,
			SessionID:  turn.SessionID,
		},
	})
}
