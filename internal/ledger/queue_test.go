package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dieti-tracker/internal/models"
)

func pending(id string) models.PendingFoodEntry {
	return models.PendingFoodEntry{Entry: models.FoodLogEntry{ID: id, Description: id}}
}

func ids(entries []models.PendingFoodEntry) []string {
	out := make([]string, len(entries))
	for i, p := range entries {
		out[i] = p.Entry.ID
	}
	return out
}

func TestQueuePushDedupes(t *testing.T) {
	q, err := NewQueue(nil)
	require.NoError(t, err)

	assert.True(t, q.Push(pending("a")))
	assert.False(t, q.Push(pending("a")))
	assert.True(t, q.Push(pending("b")))
	assert.Equal(t, 2, q.Len())
}

func TestQueueRemoveAndMarkAttemptKeepOrder(t *testing.T) {
	q, _ := NewQueue(nil)
	q.Push(pending("a"))
	q.Push(pending("b"))
	q.Push(pending("c"))

	q.MarkAttempt("a")
	assert.True(t, q.Remove("b"))
	assert.False(t, q.Remove("b"))
	q.MarkAttempt("missing")

	got := q.Snapshot()
	assert.Equal(t, []string{"a", "c"}, ids(got))
	assert.Equal(t, 1, got[0].Attempts)

	drained := q.Drain()
	assert.Equal(t, []string{"a", "c"}, ids(drained))
	assert.Zero(t, q.Len())
}

func TestBadgerQueueStoreRestoresOrder(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenQueueStore(dir)
	require.NoError(t, err)

	q, err := NewQueue(store)
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		q.Push(pending(fmt.Sprintf("e%d", i)))
	}
	q.Remove("e0")
	q.MarkAttempt("e3")
	require.NoError(t, store.Close())

	store, err = OpenQueueStore(dir)
	require.NoError(t, err)
	defer store.Close()

	restored, err := NewQueue(store)
	require.NoError(t, err)
	got := restored.Snapshot()
	require.Len(t, got, 11)
	assert.Equal(t, "e1", got[0].Entry.ID)
	assert.Equal(t, "e3", got[2].Entry.ID)
	assert.Equal(t, 1, got[2].Attempts)
	assert.Equal(t, "e11", got[10].Entry.ID)
}

// storeCheckingBackend records how many entries the durable queue holds each
// time a write reaches it.
type storeCheckingBackend struct {
	*fakeBackend
	t       *testing.T
	store   *BadgerQueueStore
	durable []int
}

func (b *storeCheckingBackend) AddFoodEntry(ctx context.Context, e models.FoodLogEntry) error {
	entries, err := b.store.Load()
	require.NoError(b.t, err)
	b.durable = append(b.durable, len(entries))
	return b.fakeBackend.AddFoodEntry(ctx, e)
}

func TestReplayKeepsEntriesDurableUntilStored(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenQueueStore(dir)
	require.NoError(t, err)
	defer store.Close()

	q, err := NewQueue(store)
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		p := pending(id)
		p.Entry.Date = models.DateOf(testNow)
		q.Push(p)
	}

	b := &storeCheckingBackend{fakeBackend: newFakeBackend(), t: t, store: store}
	b.failAdd["b"] = errors.New("rejected")
	l := New(Session{UserID: "u1"}, b, q, &recordingObserver{},
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
		WithDispatcher(func(fn func()) { fn() }),
	)

	res := l.Replay(context.Background())
	assert.Equal(t, ReplayResult{Persisted: 2, Failed: 1}, res)
	// every entry is still on disk while it is being sent
	assert.Equal(t, []int{3, 2, 2}, b.durable)

	entries, err := store.Load()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Entry.ID)
	assert.Equal(t, 1, entries[0].Attempts)
}

func TestBadgerQueueStoreInMemory(t *testing.T) {
	store, err := OpenQueueStore("")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save([]models.PendingFoodEntry{pending("a"), pending("b")}))
	require.NoError(t, store.Save([]models.PendingFoodEntry{pending("b")}))

	entries, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(entries))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		connectivity bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"reset", syscall.ECONNRESET, true},
		{"url error", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("eof")}, true},
		{"server error", errors.New("status 500"), false},
		{"already persist", &PersistError{Err: context.DeadlineExceeded}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.err)
			assert.Equal(t, tt.connectivity, IsConnectivity(err))
			if tt.connectivity {
				var ce *ConnectivityError
				assert.ErrorAs(t, err, &ce)
			} else {
				var pe *PersistError
				assert.ErrorAs(t, err, &pe)
			}
		})
	}
	assert.NoError(t, Classify(nil))
}
