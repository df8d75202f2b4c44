// ABOUTME: Tests for membership short-circuiting and observer relays.
// ABOUTME: Uses a fake transport that records every emission and request.

package client

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuet-ai/agentwire/internal/channel"
	"github.com/minuet-ai/agentwire/internal/protocol"
)

type handlerEntry struct {
	id string
	h  channel.Handler
}

// fakeTransport is a transport spy: it records emissions and requests and
// lets tests deliver inbound events to registered handlers.
type fakeTransport struct {
	mu       sync.Mutex
	ready    bool
	emitted  []*protocol.Envelope
	requests []*protocol.Envelope
	ackBody  protocol.AckPayload
	handlers map[string][]handlerEntry
	nextID   int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		ready:    true,
		ackBody:  protocol.AckPayload{Success: true},
		handlers: make(map[string][]handlerEntry),
	}
}

func (f *fakeTransport) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeTransport) setReady(ready bool) {
	f.mu.Lock()
	f.ready = ready
	f.mu.Unlock()
}

func (f *fakeTransport) Emit(event string, v any) error {
	env, err := protocol.NewEnvelope(event, v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.emitted = append(f.emitted, env)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Request(ctx context.Context, event string, v any) (*protocol.Envelope, error) {
	env, err := protocol.NewEnvelope(event, v)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.requests = append(f.requests, env)
	body := f.ackBody
	f.mu.Unlock()

	return protocol.NewEnvelope(protocol.EventAck, body)
}

func (f *fakeTransport) On(event string, h channel.Handler) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("h%d", f.nextID)
	f.handlers[event] = append(f.handlers[event], handlerEntry{id: id, h: h})
	return id
}

func (f *fakeTransport) Off(event, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.handlers[event]
	for i, e := range entries {
		if e.id == id {
			f.handlers[event] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// deliver simulates an inbound server event.
func (f *fakeTransport) deliver(t *testing.T, event string, v any) {
	t.Helper()
	env, err := protocol.NewEnvelope(event, v)
	require.NoError(t, err)

	f.mu.Lock()
	entries := append([]handlerEntry(nil), f.handlers[event]...)
	f.mu.Unlock()

	for _, e := range entries {
		e.h(env)
	}
}

func (f *fakeTransport) emissions() []*protocol.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*protocol.Envelope, len(f.emitted))
	copy(out, f.emitted)
	return out
}

func (f *fakeTransport) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func TestJoinSession_NotReadyShortCircuits(t *testing.T) {
	tr := newFakeTransport()
	tr.setReady(false)
	cli := New(tr, Options{})
	defer cli.Close()

	ok, err := cli.JoinSession(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, tr.requestCount(), "membership must not touch the network while not ready")
}

func TestJoinAndLeaveSession_AckedByServer(t *testing.T) {
	tr := newFakeTransport()
	cli := New(tr, Options{})
	defer cli.Close()

	ok, err := cli.JoinSession(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cli.LeaveSession(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 2, tr.requestCount())
}

func TestJoinSession_ServerRefusal(t *testing.T) {
	tr := newFakeTransport()
	tr.ackBody = protocol.AckPayload{Success: false}
	cli := New(tr, Options{})
	defer cli.Close()

	ok, err := cli.JoinSession(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.False(t, ok, "a refused join is not an error, just unconfirmed")
}

func TestOnMigration_DeliveredExactlyOncePerSubscriber(t *testing.T) {
	tr := newFakeTransport()
	cli := New(tr, Options{})
	defer cli.Close()

	var mu sync.Mutex
	counts := map[string]int{}
	sub := func(name string) func(protocol.MigrationNotice) {
		return func(n protocol.MigrationNotice) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
		}
	}
	cli.OnMigration(sub("a"))
	cli.OnMigration(sub("b"))
	removed := cli.OnMigration(sub("c"))
	cli.OffMigration(removed)

	tr.deliver(t, protocol.EventSessionCreated, protocol.MigrationNotice{
		OldSessionID: "new-1",
		NewSessionID: "sess-42",
		Session:      protocol.SessionInfo{ID: "sess-42", Title: "Quarterly review", CreatedAt: time.Now()},
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 1, counts["b"])
	assert.Zero(t, counts["c"], "removed observer must not be called")
}

func TestOnResponse_ReceivesBatches(t *testing.T) {
	tr := newFakeTransport()
	cli := New(tr, Options{})
	defer cli.Close()

	got := make(chan protocol.ResponseBatch, 1)
	cli.OnResponse(func(b protocol.ResponseBatch) { got <- b })

	tr.deliver(t, protocol.EventAIResponse, protocol.ResponseBatch{
		Responses:  []protocol.AgentResponse{{Output: "done"}},
		IsComplete: true,
		SessionID:  "sess-1",
	})

	select {
	case batch := <-got:
		assert.True(t, batch.IsComplete)
		require.Len(t, batch.Responses, 1)
		assert.Equal(t, "done", batch.Responses[0].Output)
	default:
		t.Fatal("response observer not invoked")
	}
}

func TestOnAgentEvent_MalformedPayloadDropped(t *testing.T) {
	tr := newFakeTransport()
	cli := New(tr, Options{})
	defer cli.Close()

	var calls int
	cli.OnAgentEvent(func(protocol.AgentEvent) { calls++ })

	// Deliver an envelope whose payload is not an AgentEvent object.
	env := &protocol.Envelope{Event: protocol.EventAgentEvent, Data: []byte(`"not an object"`)}
	tr.mu.Lock()
	entries := append([]handlerEntry(nil), tr.handlers[protocol.EventAgentEvent]...)
	tr.mu.Unlock()
	for _, e := range entries {
		e.h(env)
	}

	assert.Zero(t, calls)
}

func TestClose_DetachesHandlers(t *testing.T) {
	tr := newFakeTransport()
	cli := New(tr, Options{})

	var calls int
	cli.OnAgentEvent(func(protocol.AgentEvent) { calls++ })
	cli.Close()

	tr.deliver(t, protocol.EventAgentEvent, protocol.AgentEvent{
		Type:      protocol.AgentStarted,
		SessionID: "sess-1",
		Timestamp: time.Now(),
	})
	assert.Zero(t, calls)
}
