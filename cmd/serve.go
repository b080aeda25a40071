package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scout-analytics/scout-etl/internal/share"
	"github.com/scout-analytics/scout-etl/internal/warehouse"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve gold tables to partners over the sharing facade",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		wh, err := warehouse.Open(cfg.Warehouse)
		if err != nil {
			return err
		}
		defer wh.Close()

		shareCfg := cfg.Share
		if servePort != 0 {
			shareCfg.Port = servePort
		}

		srv, err := share.NewServer(shareCfg, wh)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
