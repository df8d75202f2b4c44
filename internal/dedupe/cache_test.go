// ABOUTME: Tests for the dedupe cache: TTL expiry, size eviction, atomicity.

package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckAndMark_FirstSeenWins(t *testing.T) {
	c := New(time.Minute, 100)
	defer c.Close()

	assert.False(t, c.CheckAndMark("env-1"), "first sighting is not a duplicate")
	assert.True(t, c.CheckAndMark("env-1"), "second sighting is")
	assert.False(t, c.CheckAndMark("env-2"))
}

func TestCheckAndMark_ExpiredKeyIsFreshAgain(t *testing.T) {
	c := New(10*time.Millisecond, 100)
	defer c.Close()

	assert.False(t, c.CheckAndMark("env-1"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, c.CheckAndMark("env-1"))
}

func TestMark_EvictsOldestAtCapacity(t *testing.T) {
	c := New(time.Minute, 3)
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.CheckAndMark(fmt.Sprintf("env-%d", i))
	}
	c.CheckAndMark("env-3") // evicts env-0

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.CheckAndMark("env-0"), "oldest entry was evicted")
	assert.True(t, c.CheckAndMark("env-3"))
}

func TestCheckAndMark_ConcurrentSingleWinner(t *testing.T) {
	c := New(time.Minute, 100)
	defer c.Close()

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.CheckAndMark("env-contested") {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fresh, "exactly one caller may treat the key as fresh")
}

func TestForget_AllowsRetry(t *testing.T) {
	c := New(time.Minute, 10)
	defer c.Close()

	assert.False(t, c.CheckAndMark("env-1"))
	assert.True(t, c.CheckAndMark("env-1"))

	c.Forget("env-1")
	assert.False(t, c.CheckAndMark("env-1"), "forgotten key reads as fresh again")

	// Forgetting an unknown key is harmless.
	c.Forget("env-never-seen")
}

func TestClose_Idempotent(t *testing.T) {
	c := New(time.Minute, 10)
	c.Close()
	c.Close()
}
