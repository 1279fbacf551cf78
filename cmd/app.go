package cmd

import (
	"fmt"
	"os"

	"task-mirror/core/config"
	"task-mirror/core/database"
	"task-mirror/core/logger"
	"task-mirror/core/remote"
	"task-mirror/feature/mirror"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app is the wiring shared by every command.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func setup() (*app, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	if err := os.MkdirAll(cfg.Sync.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	log.Debug("Opened mirror database",
		zap.String("driver", cfg.Database.Driver),
		zap.String("data_dir", cfg.Sync.DataDir),
	)

	return &app{cfg: cfg, log: log, db: db}, nil
}

// service builds the mirror service over the remote client.
func (a *app) service() (*mirror.Service, error) {
	client, err := remote.NewClient(a.cfg.Remote)
	if err != nil {
		return nil, err
	}
	launcher, err := mirror.NewExecLauncher(a.log, "--config", configDir)
	if err != nil {
		return nil, err
	}

	sc := a.cfg.Sync
	return mirror.NewService(mirror.Config{
		LockFile:            sc.LockFile,
		StateFile:           sc.StateFile,
		PrefsFile:           sc.PrefsFile,
		LockPoll:            sc.LockPoll(),
		Workers:             sc.Workers,
		BatchSize:           sc.BatchSize,
		AlwaysSyncReminders: sc.AlwaysSyncReminders,
	}, a.db, client, launcher, a.log)
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
