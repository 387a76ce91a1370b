package cli

import (
	"fmt"

	"github.com/gptstore/gptstore/internal/config"
	"github.com/gptstore/gptstore/internal/store"
)

// openStore opens the configured database for a management command.
func openStore() (*store.Store, error) {
	cfg := config.Load()
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
