// ABOUTME: Full-path scenario test: real client stack against a live gateway.
// ABOUTME: Covers promotion, turn delivery, the progress stream, and the reducer.

package gateway

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuet-ai/agentwire/internal/activity"
	"github.com/minuet-ai/agentwire/internal/broker"
	"github.com/minuet-ai/agentwire/internal/channel"
	"github.com/minuet-ai/agentwire/internal/client"
	"github.com/minuet-ai/agentwire/internal/protocol"
)

// scriptedRunner consumes one turn and replays tool activity ending in a
// complete response batch.
func scriptedRunner(ctx context.Context, t *testing.T, br broker.Broker) {
	t.Helper()
	turns, err := br.Turns(ctx)
	require.NoError(t, err)

	go func() {
		turn, ok := <-turns
		if !ok {
			return
		}

		events := []protocol.AgentEvent{
			{Type: protocol.AgentStarted},
			{Type: protocol.AgentThinking, Data: &protocol.EventData{Message: "looking into it"}},
			{Type: protocol.ToolStarted, Data: &protocol.EventData{ToolName: "search"}},
			{Type: protocol.ToolCompleted, Data: &protocol.EventData{ToolName: "search"}},
			{Type: protocol.ToolStarted, Data: &protocol.EventData{ToolName: "read"}},
			{Type: protocol.ToolCompleted, Data: &protocol.EventData{ToolName: "read"}},
			{Type: protocol.ToolStarted, Data: &protocol.EventData{ToolName: "summarize"}},
			{Type: protocol.ToolCompleted, Data: &protocol.EventData{ToolName: "summarize"}},
			{Type: protocol.AgentCompleted},
		}
		for i := range events {
			ev := events[i]
			ev.SessionID = turn.SessionID
			ev.Timestamp = time.Now().UTC()
			if err := br.PublishOutbound(ctx, &broker.Outbound{SessionID: turn.SessionID, Event: &ev}); err != nil {
				return
			}
		}

		br.PublishOutbound(ctx, &broker.Outbound{
			SessionID: turn.SessionID,
			Response: &protocol.ResponseBatch{
				Responses:  []protocol.AgentResponse{{Output: "done: " + turn.Message}},
				IsComplete: true,
				SessionID:  turn.SessionID,
			},
		})
	}()
}

func TestScenario_FullConversationTurn(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.gateway.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	scriptedRunner(ctx, t, h.broker)

	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	ch := channel.New(&channel.WebSocketDialer{URL: url}, channel.Options{})
	defer ch.Close()

	cl := client.New(ch, client.Options{})
	defer cl.Close()

	var mu sync.Mutex
	var events []protocol.AgentEvent
	var batches []protocol.ResponseBatch
	var migrations []protocol.MigrationNotice

	cl.OnAgentEvent(func(ev protocol.AgentEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	cl.OnResponse(func(b protocol.ResponseBatch) {
		mu.Lock()
		batches = append(batches, b)
		mu.Unlock()
	})
	cl.OnMigration(func(n protocol.MigrationNotice) {
		mu.Lock()
		migrations = append(migrations, n)
		mu.Unlock()
	})

	require.Eventually(t, cl.Ready, 2*time.Second, 10*time.Millisecond)

	provisional := protocol.NewProvisionalSessionID()
	joinCtx, cancelJoin := context.WithTimeout(ctx, 2*time.Second)
	defer cancelJoin()
	ok, err := cl.JoinSession(joinCtx, provisional)
	require.NoError(t, err)
	require.True(t, ok)

	sendCtx, cancelSend := context.WithTimeout(ctx, 5*time.Second)
	defer cancelSend()
	ack, err := cl.Send(sendCtx, protocol.ChatMessage{
		SessionID:      provisional,
		OrganizationID: "org-1",
		UserID:         "user-1",
		Message:        "summarize the report",
	})
	require.NoError(t, err)
	require.True(t, ack.Success)
	assert.True(t, ack.IsNewSession)
	assert.False(t, protocol.IsProvisionalSessionID(ack.SessionID))

	mu.Lock()
	require.Len(t, migrations, 1)
	assert.Equal(t, provisional, migrations[0].OldSessionID)
	assert.Equal(t, ack.SessionID, migrations[0].NewSessionID)
	mu.Unlock()

	// The whole scripted stream and the terminal batch arrive on the
	// promoted session's room.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, "done: summarize the report", batches[0].Responses[0].Output)
	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.Equal(t, ack.SessionID, ev.SessionID)
	}

	// Mid-stream the activity is live; three finished tools read as 100%.
	partial := activity.Reduce(events[:len(events)-1], false)
	assert.True(t, partial.IsActive)

	final := activity.Reduce(events, batches[0].IsComplete)
	assert.False(t, final.IsActive)
	assert.Equal(t, 100, final.ToolProgressPercent)
	assert.Equal(t, "looking into it", final.CurrentThought)
	assert.Len(t, final.RecentEvents, 3)
}
