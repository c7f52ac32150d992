package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aluiziolira/go-seller-inventory/models"
)

// FileStore keeps one JSON document per key under a directory.
type FileStore struct {
	dir    string
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string, window time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache dir %q: %v", ErrCacheIO, dir, err)
	}
	return &FileStore{
		dir:    dir,
		window: window,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Path returns the file backing a key.
func (s *FileStore) Path(sellerID, marketplace string) string {
	return filepath.Join(s.dir, Key(sellerID, marketplace)+".json")
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, sellerID, marketplace string) (*models.InventorySnapshot, bool) {
	path := s.Path(sellerID, marketplace)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("cache read failed", slog.String("path", path), slog.Any("error", err))
		}
		return nil, false
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		slog.Warn("cache entry unreadable", slog.String("path", path), slog.Any("error", err))
		return nil, false
	}
	if !snapshot.Fresh(s.now(), s.window) {
		slog.Info("cache entry stale",
			slog.String("seller_id", sellerID),
			slog.Time("captured_at", snapshot.CapturedAt),
			slog.Duration("window", s.window),
		)
		return nil, false
	}
	return snapshot, true
}

// Put implements Store. Writes go to a temp file renamed over the target so
// readers never observe a partial document.
func (s *FileStore) Put(_ context.Context, snapshot *models.InventorySnapshot) error {
	stamped := stamp(snapshot, s.now())
	data, err := encodeSnapshot(stamped)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrCacheIO, err)
	}

	lock := s.keyLock(Key(stamped.SellerID, stamped.Marketplace))
	lock.Lock()
	defer lock.Unlock()

	path := s.Path(stamped.SellerID, stamped.Marketplace)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrCacheIO, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrCacheIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", ErrCacheIO, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", ErrCacheIO, path, err)
	}

	slog.Info("saved snapshot",
		slog.String("seller_id", stamped.SellerID),
		slog.String("marketplace", stamped.Marketplace),
		slog.Int("products", stamped.ProductCount),
		slog.String("path", path),
	)
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
