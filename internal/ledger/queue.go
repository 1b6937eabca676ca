package ledger

import (
	"log"
	"sync"

	"dieti-tracker/internal/models"
)

// QueueStore makes the offline queue survive restarts.
type QueueStore interface {
	Load() ([]models.PendingFoodEntry, error)
	Save(entries []models.PendingFoodEntry) error
}

// Queue is the FIFO of food writes waiting for connectivity. An entry ID is
// held at most once.
type Queue struct {
	mu      sync.Mutex
	entries []models.PendingFoodEntry
	store   QueueStore
}

// NewQueue restores the queue from store. A nil store keeps it in memory.
func NewQueue(store QueueStore) (*Queue, error) {
	q := &Queue{store: store}
	if store != nil {
		entries, err := store.Load()
		if err != nil {
			return nil, err
		}
		q.entries = entries
	}
	queueDepth.Set(float64(len(q.entries)))
	return q, nil
}

// Push appends p unless an entry with the same ID is already queued.
func (q *Queue) Push(p models.PendingFoodEntry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.Entry.ID == p.Entry.ID {
			return false
		}
	}
	q.entries = append(q.entries, p)
	q.persistLocked()
	return true
}

// Drain removes and returns every queued entry in FIFO order. Used when the
// user discards the queue.
func (q *Queue) Drain() []models.PendingFoodEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.entries
	q.entries = nil
	q.persistLocked()
	return out
}

// Remove drops the entry with id once the store has accepted it. It
// reports whether the entry was still queued.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.Entry.ID == id {
			q.entries = append(q.entries[:i:i], q.entries[i+1:]...)
			q.persistLocked()
			return true
		}
	}
	return false
}

// MarkAttempt counts a failed send of id. The entry keeps its position.
func (q *Queue) MarkAttempt(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].Entry.ID == id {
			q.entries[i].Attempts++
			q.persistLocked()
			return
		}
	}
}

// Snapshot returns a copy of the queued entries.
func (q *Queue) Snapshot() []models.PendingFoodEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.PendingFoodEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) persistLocked() {
	queueDepth.Set(float64(len(q.entries)))
	if q.store == nil {
		return
	}
	if err := q.store.Save(q.entries); err != nil {
		log.Println("Failed to persist offline queue:", err)
	}
}
