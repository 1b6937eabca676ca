package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"dieti-tracker/internal/models"
)

var pendingPrefix = []byte("pending/")

// BadgerQueueStore keeps the offline queue in a local badger database, one
// key per entry ordered by queue position.
type BadgerQueueStore struct {
	db *badger.DB
}

// OpenQueueStore opens (or creates) the queue database in dir. An empty dir
// opens an in-memory database.
func OpenQueueStore(dir string) (*BadgerQueueStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue store: %w", err)
	}
	return &BadgerQueueStore{db: db}, nil
}

func (s *BadgerQueueStore) Close() error {
	return s.db.Close()
}

func (s *BadgerQueueStore) Load() ([]models.PendingFoodEntry, error) {
	var entries []models.PendingFoodEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = pendingPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var p models.PendingFoodEntry
				if err := json.Unmarshal(val, &p); err != nil {
					return err
				}
				entries = append(entries, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load offline queue: %w", err)
	}
	return entries, nil
}

// Save replaces the stored queue with entries.
func (s *BadgerQueueStore) Save(entries []models.PendingFoodEntry) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = pendingPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for i, p := range entries {
			val, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if err := txn.Set(pendingKey(i), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save offline queue: %w", err)
	}
	return nil
}

func pendingKey(pos int) []byte {
	return []byte(fmt.Sprintf("%s%020d", pendingPrefix, pos))
}
