package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/ffjob/internal/config"
	"github.com/smazurov/ffjob/internal/logging"
	"github.com/smazurov/ffjob/internal/nats"
)

// CreateCancelCmd creates the cancel command.
func CreateCancelCmd(settings *config.Options) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel RUN_ID",
		Short: "Ask a running encode to stop",
		Long: `Publishes a cancel command for RUN_ID on the NATS server given by --nats-url. ` +
			`The encode stops the way it does on Ctrl-C and exits with status 130.`,
		Args: cobra.ExactArgs(1),
		Run: func(c *cobra.Command, args []string) {
			if err := cancelRun(settings.NatsURL, args[0], reason); err != nil {
				logging.GetLogger("nats").Error("Failed to cancel run", "run_id", args[0], "error", err)
				os.Exit(ExitFailure)
			}
			fmt.Fprintf(c.OutOrStdout(), "cancel sent to %s\n", args[0])
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "manual", "Reason recorded in the encode's log")
	return cmd
}

func cancelRun(url, runID, reason string) error {
	if url == "" {
		return errors.New("no NATS server configured, pass --nats-url or set nats.url")
	}
	publisher, err := nats.NewControlPublisher(url, logging.GetLogger("nats"))
	if err != nil {
		return err
	}
	defer publisher.Close()
	return publisher.Cancel(runID, reason)
}
