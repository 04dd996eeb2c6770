package storage

import (
	"fmt"

	"nihilism/server/internal/config"
	"nihilism/server/internal/interfaces"
)

// Open builds the snapshot store selected by the persistence config.
func Open(cfg config.PersistenceConfig, debug bool) (interfaces.SnapshotStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.File.Dir)
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLite.Path)
	case config.BackendMySQL:
		return NewMySQLStore(cfg.MySQL, debug)
	case config.BackendRedis:
		return NewRedisStore(cfg.Redis)
	case config.BackendMongo:
		return NewMongoStore(cfg.Mongo)
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Backend)
	}
}
