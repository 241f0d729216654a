package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/WangYihang/storefront-detector/pkg/domain/repository"
)

// Supported cache backends
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendSQLite  = "sqlite"
	BackendRedis   = "redis"
)

// StoreConfig selects and configures the cache backend
type StoreConfig struct {
	Backend string
	Path    string
	Redis   RedisConfig
}

// OpenStore opens the configured KV backend
func OpenStore(cfg StoreConfig) (repository.KVStore, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendLevelDB:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		return NewLevelDBStore(cfg.Path)
	case BackendSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create cache dir: %w", err)
			}
		}
		return NewSQLiteStore(cfg.Path)
	case BackendRedis:
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
