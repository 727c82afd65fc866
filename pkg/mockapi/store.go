package mockapi

import (
	"context"
	"fmt"
	"sync"
)

// SeedCount is the number of items a fresh store holds.
const SeedCount = 100

// Item is one stored item.
type Item struct {
	ID   int    `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// Store holds the mock upstream's items in insertion order.
type Store interface {
	// Page returns up to limit items starting at offset, and the total
	// number of items.
	Page(ctx context.Context, offset, limit int) ([]Item, int, error)

	// Create appends an item with id = total + 1.
	Create(ctx context.Context, name string) (Item, error)

	Close() error
}

func seedItems() []Item {
	items := make([]Item, SeedCount)
	for i := range items {
		items[i] = Item{ID: i + 1, Name: fmt.Sprintf("Item %d", i+1)}
	}
	return items
}

// MemoryStore is a mutex-guarded in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Item
}

// NewMemoryStore returns a store seeded with [SeedCount] items.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: seedItems()}
}

func (s *MemoryStore) Page(_ context.Context, offset, limit int) ([]Item, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.items)
	start := min(max(offset, 0), total)
	end := min(start+max(limit, 0), total)
	page := make([]Item, end-start)
	copy(page, s.items[start:end])
	return page, total, nil
}

func (s *MemoryStore) Create(_ context.Context, name string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := Item{ID: len(s.items) + 1, Name: name}
	s.items = append(s.items, item)
	return item, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
