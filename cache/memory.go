package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-seller-inventory/models"
)

// MemoryTier keeps recently used snapshots in an LRU in front of another Store.
type MemoryTier struct {
	next   Store
	recent *lru.Cache[string, *models.InventorySnapshot]
	window time.Duration
	now    func() time.Time

	// load serialises backing reads that refill the LRU against Puts.
	load sync.Mutex
}

// NewMemoryTier wraps next with an LRU of size entries.
func NewMemoryTier(next Store, size int, window time.Duration) (*MemoryTier, error) {
	recent, err := lru.New[string, *models.InventorySnapshot](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &MemoryTier{next: next, recent: recent, window: window, now: time.Now}, nil
}

// Get implements Store. Callers receive a copy.
func (m *MemoryTier) Get(ctx context.Context, sellerID, marketplace string) (*models.InventorySnapshot, bool) {
	key := Key(sellerID, marketplace)
	if snapshot, ok := m.recent.Get(key); ok {
		if snapshot.Fresh(m.now(), m.window) {
			return snapshot.Clone(), true
		}
		m.recent.Remove(key)
	}

	m.load.Lock()
	defer m.load.Unlock()
	snapshot, ok := m.next.Get(ctx, sellerID, marketplace)
	if !ok {
		return nil, false
	}
	m.recent.Add(key, snapshot.Clone())
	return snapshot, true
}

// Put implements Store. The memory entry is dropped after the backing write
// so the next Get reloads what the backing store now holds.
func (m *MemoryTier) Put(ctx context.Context, snapshot *models.InventorySnapshot) error {
	m.load.Lock()
	defer m.load.Unlock()
	err := m.next.Put(ctx, snapshot)
	m.recent.Remove(Key(snapshot.SellerID, snapshot.Marketplace))
	return err
}

// Close implements Store.
func (m *MemoryTier) Close() error {
	m.recent.Purge()
	return m.next.Close()
}
