package cmd

import (
	"task-mirror/core/storage"
	"task-mirror/feature/export"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportSync bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Publish a JSON snapshot of the mirror to object storage",
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
		if exportSync {
			if _, err := svc.Sync(cmd.Context(), false); err != nil {
				return err
			}
		}

		client, err := storage.NewClient(a.cfg.Storage)
		if err != nil {
			return err
		}
		res, err := export.NewExporter(client, a.cfg.Storage, a.db, a.log).Export(cmd.Context())
		if err != nil {
			return err
		}
		a.log.Info("Export complete",
			zap.String("object", res.Object),
			zap.Int("tasks", res.Tasks),
			zap.Strings("removed", res.Removed),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportSync, "sync", false, "sync before exporting")
	RootCmd.AddCommand(exportCmd)
}
