package services

import (
	"fmt"

	"dice-offline/internal/config"
)

// OpenBackend opens the store named by driver.
func OpenBackend(cfg *config.Config, driver, sqlitePath string) (Backend, error) {
	switch driver {
	case config.DriverRedis:
		store, err := NewRedisService(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		store, err := OpenSQLiteStore(sqlitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", driver)
	}
}
