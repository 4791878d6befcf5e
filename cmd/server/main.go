package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pg-ai-query/internal/config"
	"pg-ai-query/internal/db"
	apperrors "pg-ai-query/internal/errors"
	"pg-ai-query/internal/logging"
	"pg-ai-query/internal/query"
)

const (
	keyListen     = "listen"
	keyDSN        = "dsn"
	keyDriver     = "driver"
	keySchemaFile = "schema-file"
	keyConfig     = "config"
	keyVerbose    = "verbose"
	keyJSONLogs   = "json-logs"
	keyCacheTTL   = "cache-ttl"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("PG_AI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "pg-ai-query-server",
		Short:         "HTTP API for natural language PostgreSQL queries",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(v)
		},
	}
	flags := cmd.Flags()
	flags.String(keyListen, ":8080", "listen address (env PG_AI_LISTEN)")
	flags.String(keyDSN, "", "PostgreSQL DSN (env PG_AI_DSN)")
	flags.String(keyDriver, db.DriverPostgres, "database/sql driver: postgres or pgx")
	flags.String(keySchemaFile, "", "offline schema snapshot instead of a live database")
	flags.String(keyConfig, "", "config file path (default ~/.pg_ai.config)")
	flags.Duration(keyCacheTTL, 5*time.Minute, "catalog metadata cache TTL")
	flags.BoolP(keyVerbose, "v", false, "debug logging")
	flags.Bool(keyJSONLogs, false, "JSON log output")
	_ = v.BindPFlags(flags)

	if err := cmd.Execute(); err != nil {
		os.Exit(apperrors.Print(os.Stderr, err, false, false))
	}
}

func openCatalog(ctx context.Context, v *viper.Viper) (db.Catalog, error) {
	if path := v.GetString(keySchemaFile); path != "" {
		c, err := db.OpenSnapshot(path)
		if err != nil {
			return nil, apperrors.NewInputError("Cannot read schema snapshot", err.Error(), "")
		}
		return c, nil
	}
	dsn := v.GetString(keyDSN)
	if dsn == "" {
		return nil, apperrors.NewInputError(
			"No database configured",
			"Neither --dsn nor --schema-file was given.",
			"Set PG_AI_DSN or pass --dsn.",
		)
	}
	cfg := db.DefaultConfig(dsn)
	cfg.Driver = v.GetString(keyDriver)
	c, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, apperrors.NewDatabaseError("Cannot connect to PostgreSQL", err.Error(), "Check the DSN.", err)
	}
	return c, nil
}

func serve(v *viper.Viper) error {
	verbose := v.GetBool(keyVerbose)
	logOpts := logging.Options{JSON: v.GetBool(keyJSONLogs), Verbose: verbose}
	logger := logging.New(nil, os.Stderr, logOpts)

	fmt.Println(`
╔═══════════════════════════════════════════════════════════╗
║                 🐘 pg-ai-query Server                     ║
╚═══════════════════════════════════════════════════════════╝`)

	opts := []config.Option{config.WithLogger(logger)}
	if path := v.GetString(keyConfig); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	manager := config.NewManager(opts...)
	base, err := manager.Base()
	if err != nil {
		return apperrors.FromConfig(err)
	}
	logger = logging.New(base, os.Stderr, logOpts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := openCatalog(ctx, v)
	if err != nil {
		return err
	}
	defer catalog.Close()

	cached := db.NewCachedCatalog(catalog, 0, v.GetDuration(keyCacheTTL))
	gen := query.NewGenerator(manager, cached, query.WithLogger(logger))
	srv := NewServer(manager, gen, config.OverridesFromEnv(os.LookupEnv), logger)

	server := &http.Server{
		Addr:              v.GetString(keyListen),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server.start", slog.String("addr", server.Addr), slog.String("catalog", catalog.Name()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return apperrors.NewNetworkError("Cannot start HTTP server", err.Error(), "Pick another --listen address.", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("server.shutdown")
	if err := server.Shutdown(shutdownCtx); err != nil {
		_ = server.Close()
		return apperrors.NewInternalError("Graceful shutdown failed", err.Error(), "", err)
	}
	return nil
}
