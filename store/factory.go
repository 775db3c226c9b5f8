package store

import (
	"context"
	"fmt"

	"github.com/MrBlankCoding/StockDashboard/config"
)

// Open builds the Store selected by the storage config.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.URL)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
