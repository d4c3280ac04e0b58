package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/skybox-io/skybox/internal/config"
	"github.com/skybox-io/skybox/internal/handlers"
	"github.com/skybox-io/skybox/internal/middleware"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/repository"
	"github.com/skybox-io/skybox/internal/services"
	"github.com/skybox-io/skybox/internal/worker"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "skyboxd",
		Short: "Skybox cloud storage daemon",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(serveCmd(), sweepCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			app, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			router := handlers.NewRouter(app.Auth, app.Nodes, app.Permissions, nil, app.Logger)
			server := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      router,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Sweep.Interval > 0 {
				retention := worker.NewRetentionWorker(app.Nodes, app.Logger)
				go retention.Start(ctx, cfg.Sweep.Interval)
			}

			errCh := make(chan error, 1)
			go func() {
				app.Logger.Info("server listening", map[string]interface{}{
					"addr": cfg.Server.Addr,
				})
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			app.Logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single retention sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			app, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			retention := worker.NewRetentionWorker(app.Nodes, app.Logger)
			_, err = retention.RunOnce(cmd.Context())
			return err
		},
	}
}

// app bundles the wired services and their owned connections
type app struct {
	Logger      *pkg.Logger
	Auth        *services.AuthService
	Nodes       *services.NodeService
	Permissions *services.PermissionService

	db       *repository.MongoDB
	sessions *middleware.RedisSessionStore
}

func buildApp(cfg *config.Config) (*app, error) {
	level := pkg.ParseLogLevel(cfg.Log.Level)
	var logger *pkg.Logger
	if cfg.Log.File != "" {
		logger = pkg.NewFileLogger(level, cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays)
	} else {
		logger = pkg.NewLogger(level)
	}

	db, err := repository.Connect(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	sessions, err := middleware.NewRedisSessionStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	store, err := services.NewObjectStore(&cfg.Objects)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepository(db)

	jwtManager := pkg.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, cfg.JWT.Issuer)
	authService := services.NewAuthService(repos.User, sessions, jwtManager, cfg.JWT.RefreshTTL, logger)

	permissionService := services.NewPermissionService(repos.Permission, repos.Node, logger)
	quotaService := services.NewQuotaService(repos.Storage, logger)
	retentionService := services.NewRetentionService(repos.User, repos.Settings, logger)
	nodeService := services.NewNodeService(repos.Node, permissionService, quotaService, retentionService, store, logger)

	return &app{
		Logger:      logger,
		Auth:        authService,
		Nodes:       nodeService,
		Permissions: permissionService,
		db:          db,
		sessions:    sessions,
	}, nil
}

func (a *app) Close() {
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.db != nil {
		a.db.Disconnect()
	}
}
