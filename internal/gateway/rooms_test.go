// ABOUTME: Tests for the session room membership table.
// ABOUTME: Covers join/leave, rebind on promotion, and non-blocking broadcast.

package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuet-ai/agentwire/internal/protocol"
)

func TestRooms_BroadcastReachesEveryMember(t *testing.T) {
	rooms := NewRooms(nil)
	a := make(chan *protocol.Envelope, 1)
	b := make(chan *protocol.Envelope, 1)
	rooms.Join("s1", "conn-a", a)
	rooms.Join("s1", "conn-b", b)

	env, err := protocol.NewEnvelope(protocol.EventAgentEvent, nil)
	require.NoError(t, err)
	rooms.Broadcast("s1", env)

	assert.Same(t, env, <-a)
	assert.Same(t, env, <-b)
}

func TestRooms_LeaveStopsDelivery(t *testing.T) {
	rooms := NewRooms(nil)
	a := make(chan *protocol.Envelope, 1)
	rooms.Join("s1", "conn-a", a)
	rooms.Leave("s1", "conn-a")

	env, err := protocol.NewEnvelope(protocol.EventAgentEvent, nil)
	require.NoError(t, err)
	rooms.Broadcast("s1", env)

	assert.Empty(t, a)
	assert.Zero(t, rooms.Count("s1"))
}

func TestRooms_LeaveAllRemovesConnectionEverywhere(t *testing.T) {
	rooms := NewRooms(nil)
	send := make(chan *protocol.Envelope, 1)
	rooms.Join("s1", "conn-a", send)
	rooms.Join("s2", "conn-a", send)

	rooms.LeaveAll("conn-a")

	assert.Zero(t, rooms.Count("s1"))
	assert.Zero(t, rooms.Count("s2"))
}

func TestRooms_RebindMovesMembersToNewSession(t *testing.T) {
	rooms := NewRooms(nil)
	a := make(chan *protocol.Envelope, 1)
	b := make(chan *protocol.Envelope, 1)
	rooms.Join("new-abc", "conn-a", a)
	rooms.Join("durable", "conn-b", b)

	rooms.Rebind("new-abc", "durable")

	env, err := protocol.NewEnvelope(protocol.EventAgentEvent, nil)
	require.NoError(t, err)
	rooms.Broadcast("durable", env)

	assert.Same(t, env, <-a)
	assert.Same(t, env, <-b)
	assert.Zero(t, rooms.Count("new-abc"))
}

func TestRooms_BroadcastSkipsFullBuffers(t *testing.T) {
	rooms := NewRooms(nil)
	slow := make(chan *protocol.Envelope, 1)
	fast := make(chan *protocol.Envelope, 2)
	rooms.Join("s1", "conn-slow", slow)
	rooms.Join("s1", "conn-fast", fast)

	first, err := protocol.NewEnvelope(protocol.EventAgentEvent, nil)
	require.NoError(t, err)
	second, err := protocol.NewEnvelope(protocol.EventAgentEvent, nil)
	require.NoError(t, err)

	rooms.Broadcast("s1", first)
	rooms.Broadcast("s1", second)

	assert.Len(t, slow, 1, "slow member keeps the frame that fit")
	assert.Len(t, fast, 2)
}
