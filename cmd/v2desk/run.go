package main

import (
	"os"
	"os/signal"
	"syscall"

	"v2desk/internal/logger"
	"v2desk/internal/xray"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the core with every connected server until interrupted",
	Long:  `Starts the embedded core with local socks and http inbounds routed through the connected servers. Servers flagged autoConnect are connected first. Send SIGHUP to reload the server list.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.closer.Close()

		supervisor := xray.NewSupervisor(s.cfg.Inbound, s.cfg.Core.LogLevel)
		defer supervisor.Stop()

		svc := s.service(supervisor, nil)
		ctx := cmd.Context()
		if err := svc.AutoConnect(ctx); err != nil {
			return err
		}
		if !supervisor.Running() {
			logger.Log.Warn("No connected servers. Connect one and send SIGHUP to start the core.")
		}

		reload := make(chan os.Signal, 1)
		signal.Notify(reload, syscall.SIGHUP)
		defer signal.Stop(reload)

		for {
			select {
			case <-ctx.Done():
				logger.Log.Info("Shutting down core.")
				return nil
			case <-reload:
				logger.Log.Info("Reloading servers.")
				if err := svc.Restart(ctx); err != nil {
					logger.Log.Errorf("Reload failed: %v", err)
				} else if !supervisor.Running() {
					logger.Log.Warn("No connected servers. Core idle.")
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
