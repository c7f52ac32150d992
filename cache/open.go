package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aluiziolira/go-seller-inventory/config"
)

// Open builds the store named by cfg.CacheBackend, wrapped in a memory tier
// when cfg.CacheMemorySize is positive.
func Open(cfg *config.Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.CacheBackend {
	case "sqlite":
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create cache dir %q: %v", ErrCacheIO, cfg.CacheDir, err)
		}
		store, err = NewSQLiteStore(filepath.Join(cfg.CacheDir, "snapshots.db"), cfg.FreshnessWindow)
	default:
		store, err = NewFileStore(cfg.CacheDir, cfg.FreshnessWindow)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheMemorySize > 0 {
		tier, err := NewMemoryTier(store, cfg.CacheMemorySize, cfg.FreshnessWindow)
		if err != nil {
			store.Close()
			return nil, err
		}
		return tier, nil
	}
	return store, nil
}
