package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := Load()

	// The default store must be file-backed: a server restart keeps its data.
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "gptstore.db" {
		t.Errorf("database defaults = %q %q, want sqlite gptstore.db", cfg.Database.Driver, cfg.Database.DSN)
	}
	if cfg.Server.Port != 8080 || cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Pagination.DefaultPageSize != 50 || cfg.Pagination.MaxPageSize != 200 {
		t.Errorf("pagination defaults = %+v", cfg.Pagination)
	}
	if cfg.RateLimits != "key:60/m,write:10/m,ip:600/5m" {
		t.Errorf("rate limit defaults = %q", cfg.RateLimits)
	}
}
