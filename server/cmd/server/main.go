package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quickbite/quickbite/server/internal/api"
	"github.com/quickbite/quickbite/server/internal/auth"
	"github.com/quickbite/quickbite/server/internal/config"
	"github.com/quickbite/quickbite/server/internal/hub"
	"github.com/quickbite/quickbite/server/internal/metrics"
	"github.com/quickbite/quickbite/server/internal/notify"
	"github.com/quickbite/quickbite/server/internal/store"
)

type options struct {
	configPath string
	envFile    string
	uiDir      string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "quickbite-server:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "quickbite-server",
		Short:         "Real-time order notification server for campus pre-orders",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to config file (defaults apply when empty)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with secrets; ignored when missing")
	cmd.Flags().StringVar(&opts.uiDir, "ui-dir", "", "serve static UI files from this directory; leave empty to disable")
	return cmd
}

func run(ctx context.Context, opts options) error {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("quickbite-server starting", "config", opts.configPath)

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	level.Set(cfg.Server.Level())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"store", cfg.Server.Store.Backend,
		"webhooks", len(cfg.Server.Notify.Webhooks),
	)

	if opts.configPath != "" {
		go func() {
			if err := config.Watch(ctx, opts.configPath, func(updated *config.Config) {
				level.Set(updated.Server.Level())
				slog.Info("config hot-reloaded", "log_level", updated.Server.LogLevel)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	st, closeStore, err := openStore(ctx, cfg.Server.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	apiKey := auth.NewAPIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)
	if cfg.Server.Auth.Mode == auth.ModeAPIKey && !apiKey.Enabled() {
		slog.Warn("auth mode is apikey but no key is set; admin routes are open", "key_env", cfg.Server.Auth.KeyEnv)
	}

	// The gauges closure reads h at scrape time, after it is assigned.
	var h *hub.Hub
	collector := metrics.New(func() (int, int) {
		s := h.Stats()
		return s.Rooms, s.Connections
	})
	hubOpts := []hub.Option{
		hub.WithRecorder(collector),
		hub.WithTransport(cfg.Server.Hub.SendBuffer, cfg.Server.Hub.MaxMessageSize),
	}
	if apiKey.Enabled() {
		hubOpts = append(hubOpts, hub.WithAdminCheck(apiKey.Check))
	}
	h = hub.New(hubOpts...)

	notifier := notify.New(cfg.Server.Notify)
	h.Observe(notifier.Handle)

	apiHandler := api.New(api.Deps{
		Store:         st,
		Hub:           h,
		Notifications: notifier,
		Auth:          apiKey,
		WS:            h,
		Metrics:       collector,
		CORSOrigins:   cfg.Server.CORSOrigins,
	})

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/ws", apiHandler)
	httpMux.Handle("/metrics", apiHandler)

	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if opts.uiDir != "" {
		fs := http.FileServer(http.Dir(opts.uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := opts.uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, opts.uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", opts.uiDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("quickbite-server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// openStore builds the configured order store and starts its background
// maintenance.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	switch cfg.Backend {
	case "redis":
		rdb, err := store.DialRedis(ctx, cfg.RedisURL())
		if err != nil {
			return nil, nil, err
		}
		slog.Info("order store: redis", "prefix", cfg.KeyPrefix, "retention", cfg.Retention)
		return store.NewRedis(rdb, cfg.KeyPrefix, cfg.Retention), func() { rdb.Close() }, nil
	default:
		mem := store.NewMemory(cfg.Retention)
		go mem.Run(ctx)
		slog.Info("order store: memory", "retention", cfg.Retention)
		return mem, func() {}, nil
	}
}
