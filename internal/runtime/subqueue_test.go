package runtime

import (
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmdmdm-nz/addrhookd/internal/tracker"
)

func update(s string) tracker.Update {
	return tracker.Update{Current: netip.MustParseAddr(s)}
}

func receive[T any](t *testing.T, sq *SubQueue[T]) T {
	t.Helper()
	select {
	case v, ok := <-sq.Chan():
		require.True(t, ok, "channel closed early")
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for value")
		var zero T
		return zero
	}
}

func assertQuiet[T any](t *testing.T, sq *SubQueue[T]) {
	t.Helper()
	select {
	case v := <-sq.Chan():
		t.Fatalf("unexpected value while paused: %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubQueue_HoldsUpdatesWhilePaused(t *testing.T) {
	sq := NewSubQueue[tracker.Update](4, 0)
	defer sq.Close()

	// New queues start paused.
	sq.Enqueue(update("2606:4700:4700::1111"))
	assertQuiet(t, sq)

	sq.SetPaused(false)
	assert.Equal(t, update("2606:4700:4700::1111"), receive(t, sq))

	sq.SetPaused(true)
	sq.Enqueue(update("2a00:1450:4001:82b::200e"))
	sq.Enqueue(update("2606:4700:4700::1001"))
	assertQuiet(t, sq)

	sq.SetPaused(false)
	assert.Equal(t, update("2a00:1450:4001:82b::200e"), receive(t, sq))
	assert.Equal(t, update("2606:4700:4700::1001"), receive(t, sq))
}

func TestSubQueue_PrimeGoesFirst(t *testing.T) {
	sq := NewSubQueue[string](10, 0)
	defer sq.Close()

	// Live events arrive while the snapshot is being taken.
	sq.Enqueue("live-1")
	sq.Prime("snap-1", "snap-2")
	sq.Enqueue("live-2")
	sq.SetPaused(false)

	for _, want := range []string{"snap-1", "snap-2", "live-1", "live-2"} {
		assert.Equal(t, want, receive(t, sq))
	}
}

func TestSubQueue_BacklogDropsOldest(t *testing.T) {
	sq := NewSubQueue[int](1, 3)
	defer sq.Close()

	// Paused, so everything stays in the backlog.
	for i := 0; i < 6; i++ {
		sq.Enqueue(i)
	}
	assert.Equal(t, 3, sq.Dropped())

	sq.SetPaused(false)
	for _, want := range []int{3, 4, 5} {
		assert.Equal(t, want, receive(t, sq))
	}
}

func TestSubQueue_ConcurrentProducers(t *testing.T) {
	const producers, perProducer = 8, 25

	sq := NewSubQueue[int](4, 0)
	defer sq.Close()
	sq.SetPaused(false)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				sq.Enqueue(p*perProducer + i)
			}
		}(p)
	}

	seen := make(map[int]bool)
	for len(seen) < producers*perProducer {
		seen[receive(t, sq)] = true
	}
	wg.Wait()
	assert.Zero(t, sq.Dropped())
}

func TestSubQueue_Close(t *testing.T) {
	for _, paused := range []bool{true, false} {
		name := "running"
		if paused {
			name = "paused"
		}
		t.Run(name, func(t *testing.T) {
			sq := NewSubQueue[int](4, 0)
			sq.SetPaused(paused)
			sq.Enqueue(1)
			if !paused {
				assert.Equal(t, 1, receive(t, sq))
			}

			sq.Close()

			select {
			case _, ok := <-sq.Chan():
				assert.False(t, ok, "channel should be closed")
			case <-time.After(time.Second):
				t.Fatal("timeout waiting for channel close")
			}
			require.NotPanics(t, func() {
				sq.Enqueue(2)
				sq.Prime(3)
				sq.Close()
			})
		})
	}
}

func TestSubQueue_CloseWithStalledReader(t *testing.T) {
	sq := NewSubQueue[int](0, 0)
	sq.SetPaused(false)

	// Nobody reads; the dispatcher is blocked on the unbuffered send.
	sq.Enqueue(1)
	time.Sleep(20 * time.Millisecond)
	sq.Close()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sq.Chan():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel was not closed")
		}
	}
}
