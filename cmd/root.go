package cmd

import (
	"fmt"
	"os"

	"task-mirror/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// configDir holds config.yaml and .env.
var configDir string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "task-mirror",
	Short: "Local mirror of a remote task service",
	Long: `task-mirror keeps a local database in step with a remote task service
so that lists, tasks and reminders can be browsed and searched offline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with the development config for readable timestamps.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing config.yaml and .env")
}
