package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smazurov/lampnode/internal/logging"
	"github.com/smazurov/lampnode/internal/nats"
	"github.com/spf13/cobra"
)

// CreateWatchCmd creates the watch command, which prints lamp state changes
// announced on NATS until interrupted.
func CreateWatchCmd() *cobra.Command {
	var natsURL string
	var installationID string

	cmd := &cobra.Command{
		Use:          "watch",
		Short:        "Follow lamp state changes",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			logger := logging.GetLogger("watch")

			out := cmd.OutOrStdout()
			stop, err := nats.WatchState(natsURL, installationID, func(m nats.StateMessage) {
				fmt.Fprintf(out, "%s %s %s -> %s (%s)\n", m.Timestamp, m.InstallationID, m.From, m.State, m.Source)
			}, logger)
			if err != nil {
				return fmt.Errorf("failed to subscribe at %s: %w", natsURL, err)
			}
			defer stop()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			<-quit
			return nil
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats-url", DefaultNATSURL, "NATS server URL")
	cmd.Flags().StringVarP(&installationID, "installation-id", "i", "*", "Installation id to follow, * for all")

	return cmd
}
