package storage

import "time"

type StorageOption func(*StorageEngine)

// WithDefaultLimit sets the result limit used when a query sets none
func WithDefaultLimit(n int) StorageOption {
	return func(engine *StorageEngine) {
		engine.defaultLimit = n
	}
}

// WithDataFile sets the snapshot file used by background saves
func WithDataFile(path string) StorageOption {
	return func(engine *StorageEngine) {
		engine.dataFile = path
	}
}

func WithBackgroundSave(interval time.Duration) StorageOption {
	return func(engine *StorageEngine) {
		engine.backgroundSave = interval > 0
		engine.saveInterval = interval
	}
}

// WithClock replaces the time source used for createdAt/updatedAt
func WithClock(now func() time.Time) StorageOption {
	return func(engine *StorageEngine) {
		engine.now = now
	}
}
