package cli

import (
	"github.com/spf13/cobra"

	"canvas/internal/logging"
	"canvas/internal/relay"
	"canvas/internal/storage"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr, driver string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logging.FromContext(ctx)

			cfg := c.cfg
			if addr != "" {
				cfg.Relay.Addr = addr
			}
			if driver != "" {
				cfg.Storage.Driver = driver
			}

			store, err := storage.Open(ctx, cfg.Storage, cfg.DataDir, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := relay.NewServer(store, logger)
			if err := srv.ScheduleCompaction(cfg.Relay.SnapshotSchedule); err != nil {
				return err
			}
			logger.Info("relay starting", "addr", cfg.Relay.Addr, "storage", cfg.Storage.Driver)
			return srv.ListenAndServe(ctx, cfg.Relay.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides relay.addr)")
	cmd.Flags().StringVar(&driver, "storage", "", "storage driver: sqlite, postgres, mysql, mongodb, memory")
	return cmd
}
