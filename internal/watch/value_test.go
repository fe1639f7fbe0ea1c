package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
		return 0
	}
}

func TestValue_GetBeforeAndAfterSet(t *testing.T) {
	v := NewValue[int]()

	_, ok := v.Get()
	assert.False(t, ok)

	v.Set(42)
	got, ok := v.Get()
	require.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestValue_WatchReplaysLatest(t *testing.T) {
	v := NewValue[int]()
	v.Set(1)
	v.Set(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A late subscriber sees only the most recent value.
	ch := v.Watch(ctx)
	assert.Equal(t, 2, recv(t, ch))
}

func TestValue_WatchWithoutValueBlocks(t *testing.T) {
	v := NewValue[int]()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := v.Watch(ctx)
	select {
	case got := <-ch:
		t.Fatalf("unexpected value %v before first Set", got)
	case <-time.After(50 * time.Millisecond):
	}

	v.Set(7)
	assert.Equal(t, 7, recv(t, ch))
}

func TestValue_SlowSubscriberConflates(t *testing.T) {
	v := NewValue[int]()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := v.Watch(ctx)

	// Publish a burst without the subscriber reading. Only the newest value
	// survives; intermediate ones are dropped, never reordered.
	v.Set(1)
	v.Set(2)
	v.Set(3)

	assert.Equal(t, 3, recv(t, ch))

	select {
	case got := <-ch:
		t.Fatalf("unexpected extra value %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestValue_MultipleSubscribersEachReceive(t *testing.T) {
	v := NewValue[int]()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1 := v.Watch(ctx)
	ch2 := v.Watch(ctx)

	v.Set(9)
	assert.Equal(t, 9, recv(t, ch1))
	assert.Equal(t, 9, recv(t, ch2))
}

func TestValue_CancelClosesChannel(t *testing.T) {
	v := NewValue[int]()

	ctx, cancel := context.WithCancel(context.Background())
	ch := v.Watch(ctx)
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after the subscriber is gone must not panic or block.
	v.Set(1)
}
