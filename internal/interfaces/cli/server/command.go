package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"vulntrack/internal/infrastructure/migration"
	"vulntrack/internal/infrastructure/scheduler"
	"vulntrack/internal/interfaces/bootstrap"
	httpRouter "vulntrack/internal/interfaces/http"
	"vulntrack/internal/shared/constants"
	"vulntrack/internal/shared/goroutine"
	"vulntrack/internal/shared/logger"
)

var (
	env         string
	configPath  string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the Vulntrack HTTP API together with the acceptance expiry scheduler.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Apply pending migrations on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := bootstrap.LoadConfig(env, configPath)
	if err != nil {
		return err
	}
	cfg.Server.Mode = mapEnvToGinMode(env)
	defer logger.Sync()

	log := logger.NewLogger()
	log.Infow("starting server", "environment", env, "auto_migrate", autoMigrate)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard

	app, err := bootstrap.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := handleMigrations(app); err != nil {
		return err
	}

	var sched *scheduler.SchedulerManager
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.NewSchedulerManager(log.Named("scheduler"))
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		if err := sched.RegisterAcceptanceExpiry(cfg.Scheduler.ExpireAcceptances, scheduler.BatchJobFunc(app.Engine.ExpireAcceptances)); err != nil {
			return fmt.Errorf("failed to register acceptance expiry: %w", err)
		}
		sched.Start()
	}

	router := httpRouter.NewRouter(app)
	router.SetupRoutes()

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	goroutine.SafeGo(log, "http-server", func() {
		log.Infow("server starting", "address", cfg.Server.GetAddr(), "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		log.Errorw("server failed", "error", err)
	}

	log.Infow("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Errorw("failed to stop scheduler", "error", err)
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func handleMigrations(app *bootstrap.App) error {
	manager, err := migration.NewManager(app.Config.Database.Driver, app.Log)
	if err != nil {
		return err
	}

	if autoMigrate {
		if env == constants.EnvProduction {
			app.Log.Warnw("auto-migration is enabled in production environment")
		}
		if err := manager.Up(app.DB); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
		return nil
	}

	version, err := manager.Version(app.DB)
	if err != nil {
		app.Log.Warnw("failed to check migration status", "error", err)
		return nil
	}
	app.Log.Infow("current migration version", "version", version)
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case constants.EnvProduction, "prod", "release":
		return gin.ReleaseMode
	case constants.EnvTest, "testing":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
