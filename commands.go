package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fenilmodi00/ipo-catalog/database"
	"github.com/fenilmodi00/ipo-catalog/handlers"
	"github.com/fenilmodi00/ipo-catalog/jobs"
	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const cacheCleanupInterval = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled incremental sync.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := loadConfig()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		a.syncJob.Start(ctx, cfg.App.Sync.Interval)
		jobs.NewCacheCleanupJob(a.cache).Start(ctx, cacheCleanupInterval)

		server := fiber.New(fiber.Config{DisableStartupMessage: true})
		server.Use(recover.New())
		server.Use(logger.New())
		server.Use(cors.New())
		handlers.RegisterRoutes(server,
			handlers.NewHealthHandler(a.db, a.cache),
			handlers.NewListingHandler(a.queries),
			handlers.NewAdminHandler(a.syncJob),
			cfg.AdminToken,
		)

		listenErr := make(chan error, 1)
		go func() {
			logrus.WithField("port", cfg.ServerPort).Info("Server starting")
			listenErr <- server.Listen(":" + cfg.ServerPort)
		}()

		select {
		case err := <-listenErr:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		logrus.Info("Shutting down server")
		return server.ShutdownWithTimeout(15 * time.Second)
	},
}

var syncFull bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync pass and print its summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := loadConfig()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		mode := models.SyncModeIncremental
		if syncFull {
			mode = models.SyncModeFull
		}

		summary, passErr := a.syncJob.RunPass(ctx, mode, "cli")
		if summary != nil {
			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return errors.Join(passErr, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
		}
		return passErr
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the catalog schema to DATABASE_URL.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}

		db, err := database.Open(cfg.DatabaseURL, &cfg.App.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		return database.Migrate(cmd.Context(), db)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration after env and CONFIG_FILE overrides.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := loadConfig().App.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "purge the catalog and rebuild it from the source")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
}
