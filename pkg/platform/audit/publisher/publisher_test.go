package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certgate/pkg/platform/audit"
	"certgate/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	event := audit.Event{
		ActorID:     "admin",
		Action:      audit.ActionAdd,
		TargetGroup: "Administrators",
		Status:      audit.StatusSuccess,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events := store.ByGroup("Administrators")
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionAdd, events[0].Action)
	assert.NotEmpty(t, events[0].ID)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	event := audit.Event{
		ActorID:     "admin",
		Action:      audit.ActionDelete,
		TargetGroup: "Auditors",
		Status:      audit.StatusSuccess,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Close drains the buffer before returning.
	pub.Close()

	events := store.ByGroup("Auditors")
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionDelete, events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		event := audit.Event{
			Action:      audit.ActionAdd,
			TargetGroup: "Administrators",
			Status:      audit.StatusSuccess,
		}
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	pub.Close()

	assert.Len(t, store.Events(), 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	// Fill the buffer with concurrent writes
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := audit.Event{
				Action:      audit.ActionAdd,
				TargetGroup: "Administrators",
			}
			_ = pub.Emit(context.Background(), event)
		}()
	}
	wg.Wait()

	// Some events may have been dropped (buffer size 1).
	// Just verify no panic and publisher still works.
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	before := time.Now()
	err := pub.Emit(context.Background(), audit.Event{
		Action:      audit.ActionAdd,
		TargetGroup: "Administrators",
	})
	require.NoError(t, err)
	after := time.Now()

	events := store.Events()
	require.Len(t, events, 1)
	assert.True(t, !events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.True(t, !events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), audit.Event{
		Action:      audit.ActionAdd,
		TargetGroup: "Administrators",
		Timestamp:   customTime,
	})
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}
