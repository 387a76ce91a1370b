package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gptstore/gptstore/internal/auth"
	"github.com/gptstore/gptstore/internal/config"
	"github.com/gptstore/gptstore/internal/pagination"
	"github.com/gptstore/gptstore/internal/ratelimit"
	"github.com/gptstore/gptstore/internal/server"
	"github.com/gptstore/gptstore/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the GPT Object Store API server",
		Long:  "Start the HTTP server exposing the collection and object endpoints for all provisioned GPTs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().String("db", "", "database DSN (default ./gptstore.db, an embedded SQLite file)")
	cmd.Flags().String("rate-limits", "", `limiter rules, e.g. "key:60/m,write:10/m,ip:600/5m"`)
	cmd.Flags().String("bootstrap", "", "yaml seed file applied at startup")
	cmd.Flags().Bool("dev", false, "development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("database.dsn", cmd.Flags().Lookup("db"))
	viper.BindPFlag("rate_limits", cmd.Flags().Lookup("rate-limits"))
	viper.BindPFlag("bootstrap_file", cmd.Flags().Lookup("bootstrap"))
	viper.BindPFlag("dev", cmd.Flags().Lookup("dev"))

	return cmd
}

func runServe() error {
	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store opened", "driver", cfg.Database.Driver)

	if cfg.BootstrapFile != "" {
		seed, err := config.LoadBootstrap(cfg.BootstrapFile)
		if err != nil {
			return fmt.Errorf("load bootstrap: %w", err)
		}
		if err := seed.Apply(context.Background(), st, logger); err != nil {
			return fmt.Errorf("apply bootstrap: %w", err)
		}
		logger.Info("bootstrap applied", "file", cfg.BootstrapFile)
	}

	rules, err := ratelimit.ParseRules(cfg.RateLimits)
	if err != nil {
		return fmt.Errorf("parse rate limits %q: %w", cfg.RateLimits, err)
	}
	limiter := ratelimit.New(rules, nil)

	stop := make(chan struct{})
	defer close(stop)
	go limiter.Janitor(stop, time.Minute)

	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		MaxBodySize:     cfg.Server.MaxBodySize,
		PageLimits: pagination.Limits{
			Default: cfg.Pagination.DefaultPageSize,
			Max:     cfg.Pagination.MaxPageSize,
		},
	}

	srv := server.New(srvCfg, st, auth.NewResolver(st, logger), limiter, logger)

	fmt.Printf("→ GPT Object Store\n")
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:  http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:   http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
