package cmd

import (
	"fmt"

	"github.com/smazurov/lampnode/internal/device"
	"github.com/smazurov/lampnode/internal/logging"
	"github.com/smazurov/lampnode/internal/nats"
	"github.com/smazurov/lampnode/internal/push"
	"github.com/spf13/cobra"
)

// DefaultNATSURL is the NATS address the CLI commands use unless told
// otherwise.
const DefaultNATSURL = "nats://127.0.0.1:4222"

// CreatePushCmd creates the push command, which sends a notification in the
// backend's payload shape so a running lamp can be driven without the
// backend.
func CreatePushCmd() *cobra.Command {
	var natsURL string
	var installationID string
	var raw bool

	cmd := &cobra.Command{
		Use:   "push <off|on|blink>",
		Short: "Send a push notification to a lamp",
		Long: `Publishes {"data":"{\"alert\":\"<state>\"}"} on lampnode.push.<installation-id>. ` +
			`With --raw the argument is sent verbatim, which is useful for testing malformed payloads.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("push")

			payload, err := pushPayload(args[0], raw)
			if err != nil {
				return err
			}

			publisher, err := nats.NewPushPublisher(natsURL, logger)
			if err != nil {
				return fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
			}
			defer publisher.Close()

			if err := publisher.Publish(installationID, payload); err != nil {
				return fmt.Errorf("failed to publish push: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats-url", DefaultNATSURL, "NATS server URL")
	cmd.Flags().StringVarP(&installationID, "installation-id", "i", "", "Installation id of the target lamp")
	cmd.Flags().BoolVar(&raw, "raw", false, "Send the argument as the payload without encoding")
	_ = cmd.MarkFlagRequired("installation-id")

	return cmd
}

func pushPayload(arg string, raw bool) ([]byte, error) {
	if raw {
		return []byte(arg), nil
	}
	if _, ok := device.ParseState(arg); !ok {
		return nil, fmt.Errorf("%q is not a lamp state (off, on, blink)", arg)
	}
	return push.Encode(arg)
}
