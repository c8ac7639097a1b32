package root

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docker/turnwire/pkg/compliance"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <model-messages.json>",
		Short: "Check provider model messages against the tool call rules",
		Long: `Read a JSON array of model messages ("-" for stdin) and check that every
tool call is immediately answered by its result. Prints "ok", or the first
violation and exits non-zero.`,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var msgs []compliance.ModelMessage
			if err := json.Unmarshal(data, &msgs); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			if err := compliance.Validate(msgs); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), err)
				return RuntimeError{Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
