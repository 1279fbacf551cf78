package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncBackground bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Bring the local mirror up to date",
	Long: `Runs one sync pass. By default it waits for a pass already running in
another process; with --background it exits at once instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		svc, err := a.service()
		if err != nil {
			return err
		}

		report, err := svc.Sync(cmd.Context(), syncBackground)
		if err != nil {
			return err
		}
		if report.Skipped {
			a.log.Info("Sync already running, skipped")
			return nil
		}
		a.log.Info("Sync complete",
			zap.String("run_id", report.RunID),
			zap.Int64("revision", report.RootRevision),
			zap.Bool("changed", report.Changed()),
			zap.Duration("duration", report.Duration),
		)
		return nil
	},
}

var syncMaxAge time.Duration

var syncIfStaleCmd = &cobra.Command{
	Use:   "sync-if-stale",
	Short: "Start a background sync when the mirror is older than --max-age",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		svc, err := a.service()
		if err != nil {
			return err
		}

		maxAge := syncMaxAge
		if !cmd.Flags().Changed("max-age") {
			maxAge = a.cfg.Sync.MaxAge()
		}
		launched, err := svc.SyncIfStale(cmd.Context(), maxAge)
		if err != nil {
			return err
		}
		a.log.Debug("Staleness check", zap.Duration("max_age", maxAge), zap.Bool("launched", launched))
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncBackground, "background", false, "skip instead of waiting when a sync is running")
	syncIfStaleCmd.Flags().DurationVar(&syncMaxAge, "max-age", 10*time.Minute, "maximum age of the last successful sync")
	RootCmd.AddCommand(syncCmd, syncIfStaleCmd)
}
