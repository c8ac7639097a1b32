package root

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docker/turnwire/pkg/retry"
)

func newBackoffCmd(root *rootFlags) *cobra.Command {
	var (
		attempts     int
		initialDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:     "backoff",
		Short:   "Print the retry delay schedule",
		GroupID: "advanced",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if attempts < 1 {
				return fmt.Errorf("--attempts must be at least 1, got %d", attempts)
			}

			delay := initialDelay
			if !cmd.Flags().Changed("initial-delay") {
				cfg, err := root.loadConfig()
				if err != nil {
					return err
				}
				if delay, err = cfg.InitialDelay(); err != nil {
					return err
				}
			}
			if delay <= 0 {
				return fmt.Errorf("--initial-delay must be positive, got %s", delay)
			}

			out := cmd.OutOrStdout()
			for attempt := 1; attempt <= attempts; attempt++ {
				fmt.Fprintf(out, "attempt %d: %s\n", attempt, retry.Delay(attempt, delay))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&attempts, "attempts", "n", 5, "Number of attempts to show")
	cmd.Flags().DurationVar(&initialDelay, "initial-delay", retry.InitialDelay, "Backoff unit (default from config)")

	return cmd
}
