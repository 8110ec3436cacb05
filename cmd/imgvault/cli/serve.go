package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imgvault/imgvault/internal/auth"
	"github.com/imgvault/imgvault/internal/config"
	"github.com/imgvault/imgvault/internal/server"
	"github.com/imgvault/imgvault/internal/service"
	"github.com/imgvault/imgvault/internal/storage"
	"github.com/imgvault/imgvault/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the imgvault API server",
		Long:  "Start the HTTP server that exposes the team, user, api key, and image resource API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	cfg := loadConfig()

	logger := newLogger(cfg.Logging, dev)

	// 1. Metadata store
	st, err := openConfiguredStore(cfg)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "driver", cfg.Store.Driver)

	// 2. Blob store
	blobRoot := cfg.Storage.Root
	if !filepath.IsAbs(blobRoot) {
		blobRoot = filepath.Join(resolveDataDir(), blobRoot)
	}
	blobs, err := storage.NewBlobStore(blobRoot)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}
	logger.Info("blob store initialized", "root", blobRoot)

	// 3. Auth service and root key bootstrap
	signingSecret := firstNonEmpty(viper.GetString("auth.signing_secret"), cfg.Auth.SigningSecret)
	if signingSecret == "" {
		return fmt.Errorf("auth.signing_secret is required (set IMGVAULT_AUTH_SIGNING_SECRET)")
	}
	hasher := auth.NewHasher(cfg.Auth.KeyIterations)
	authSvc, err := service.NewAuthService(st, hasher, signingSecret, logger)
	if err != nil {
		return fmt.Errorf("init auth service: %w", err)
	}

	rootKey := firstNonEmpty(viper.GetString("auth.root_key"), cfg.Auth.RootKey)
	if rootKey != "" {
		if err := authSvc.EnsureRootKey(context.Background(), rootKey); err != nil {
			return fmt.Errorf("provision root key: %w", err)
		}
	} else {
		logger.Warn("no root key configured - run 'imgvault bootstrap' or set IMGVAULT_AUTH_ROOT_KEY")
	}

	// 4. Authorizer with the default permission table
	authorizer := auth.NewAuthorizer(auth.NewRuleTable(auth.DefaultRules()), st)

	// 5. Build and start HTTP server
	shutdownTimeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = 30 * time.Second
	}
	srvCfg := server.Config{
		Host:            host,
		Port:            port,
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     cfg.Server.CORS.Origins,
		APIKeyHeader:    cfg.Auth.APIKeyHeader,
		RateLimit:       cfg.Server.RateLimit,
		KeyRateLimit:    cfg.Server.KeyRateLimit,
	}
	srv := server.New(srvCfg, st, blobs, authSvc, authorizer, logger)

	if err := writePID(os.Getpid()); err != nil {
		logger.Warn("failed to write pid file", "error", err)
	}
	defer removePID()

	fmt.Printf("→ imgvault listening on http://%s:%d\n", host, port)
	fmt.Printf("→ OpenAPI: http://%s:%d/openapi.json\n", host, port)
	fmt.Printf("→ Health:  http://%s:%d/healthz\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}

// loadConfig resolves the YAML config file, falling back to defaults when no
// file is present.
func loadConfig() *config.YAMLConfig {
	path := cfgFile
	if path == "" {
		if used := viper.ConfigFileUsed(); used != "" {
			path = used
		} else {
			path = "imgvault.yaml"
		}
	}
	cfg, err := config.LoadYAMLConfig(path)
	if err != nil {
		return config.DefaultYAMLConfig()
	}
	return cfg
}

// openConfiguredStore opens the configured backend: the SQLite file under the
// data directory by default, or PostgreSQL when a DSN is given.
func openConfiguredStore(cfg *config.YAMLConfig) (*store.Store, error) {
	driver := firstNonEmpty(viper.GetString("store.driver"), cfg.Store.Driver)
	dsn := firstNonEmpty(viper.GetString("store.dsn"), cfg.Store.DSN)

	if driver == store.DriverPostgres {
		return store.Open(store.DriverPostgres, dsn)
	}
	if dsn != "" {
		return store.Open(store.DriverSQLite, dsn)
	}
	return store.NewStore(resolveDataDir())
}

func newLogger(cfg config.LoggingConfig, dev bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if dev {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
