package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-mirror/core/loader"
	"task-mirror/core/logger"
	"task-mirror/core/middleware/auth"
	"task-mirror/core/middleware/rayid"
	"task-mirror/feature/mirror"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveSyncInterval time.Duration

// @title task-mirror API
// @version 1.0
// @description Read-only API over the local task mirror.
// @host localhost:8080
// @BasePath /

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mirror over HTTP",
	Long: `Starts the local browse and search API. With --sync-interval the server
also runs background sync passes on a timer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()
		logg := a.log

		svc, err := a.service()
		if err != nil {
			return err
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           a.cfg.Server.ReadTimeout(),
		})

		mgr := loader.NewManager()
		mgr.Register(mirror.NewFeature(svc, logg))

		// RayID first so every later log line carries it.
		app.Use(rayid.New())
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Debug("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})
		if a.cfg.Server.RequiresAuth() {
			app.Use(auth.New(auth.Config{ApiKey: a.cfg.Server.ApiKey}))
		}

		loaded, err := mgr.LoadAll(app)
		if err != nil {
			return err
		}
		logg.Debug("Features loaded", zap.Strings("features", loaded))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveSyncInterval > 0 {
			go syncEvery(ctx, svc, serveSyncInterval, logg)
		}

		errCh := make(chan error, 1)
		go func() {
			logg.Info("Starting server", zap.String("addr", a.cfg.Server.Addr()))
			errCh <- app.Listen(a.cfg.Server.Addr())
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		logg.Info("Shutting down server...")
		return app.ShutdownWithTimeout(5 * time.Second)
	},
}

// syncEvery runs background passes until ctx ends. Overlapping triggers
// share one pass inside the service.
func syncEvery(ctx context.Context, svc *mirror.Service, every time.Duration, logg *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.Sync(ctx, true); err != nil {
				logg.Warn("Background sync failed", zap.Error(err))
			}
		}
	}
}

func init() {
	serveCmd.Flags().DurationVar(&serveSyncInterval, "sync-interval", 0, "run a background sync this often (0 disables)")
	RootCmd.AddCommand(serveCmd)
}
