package root

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/docker/turnwire/pkg/chat"
	"github.com/docker/turnwire/pkg/model/provider"
	"github.com/docker/turnwire/pkg/turn"
)

const (
	formatModel   = "model"
	formatPayload = "payload"
)

// kindFlag is a --provider flag value checked at parse time.
type kindFlag struct {
	kind provider.Kind
	set  bool
}

var _ pflag.Value = (*kindFlag)(nil)

func (f *kindFlag) String() string {
	if !f.set {
		return ""
	}
	return f.kind.String()
}

func (f *kindFlag) Set(s string) error {
	kind, err := provider.ParseKind(s)
	if err != nil {
		return err
	}
	f.kind, f.set = kind, true
	return nil
}

func (f *kindFlag) Type() string {
	return "provider"
}

type transformFlags struct {
	provider kindFlag
	mode     string
	tools    []string
	format   string
}

func newTransformCmd(root *rootFlags) *cobra.Command {
	var flags transformFlags

	cmd := &cobra.Command{
		Use:   "transform <history.json>",
		Short: "Build a provider-compliant request from a conversation log",
		Long: `Read a JSON array of canonical messages ("-" for stdin) and print the
messages that would be sent to the provider, after sentinel and mode
transition injection, tool output redaction and compliance transformation.

With --format payload, the provider SDK's request messages are printed instead.`,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, root, &flags, args[0])
		},
	}

	cmd.Flags().VarP(&flags.provider, "provider", "p", "Provider to build for: anthropic, openai, google or bedrock (default from config)")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "Agent mode of the next turn")
	cmd.Flags().StringArrayVar(&flags.tools, "tool", nil, "Tool available in the mode (repeatable)")
	cmd.Flags().StringVar(&flags.format, "format", formatModel, "Output format: model or payload")

	return cmd
}

func runTransform(cmd *cobra.Command, root *rootFlags, flags *transformFlags, path string) error {
	if flags.format != formatModel && flags.format != formatPayload {
		return fmt.Errorf("invalid --format %q: expected %s or %s", flags.format, formatModel, formatPayload)
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	kind := cfg.ProviderKind()
	if flags.provider.set {
		kind = flags.provider.kind
	}
	opts := turn.Options{Provider: kind, Mode: cfg.Mode, Tools: cfg.Tools}
	if cmd.Flags().Changed("mode") {
		opts.Mode = flags.mode
	}
	if cmd.Flags().Changed("tool") {
		opts.Tools = flags.tools
	}

	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	var msgs []*chat.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	out, err := turn.NewBuilder(cfg.Redactor()).Build(cmd.Context(), msgs, opts)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return RuntimeError{Err: err}
	}

	var result []byte
	if flags.format == formatPayload {
		payload, err := turn.EncodePayload(kind, out)
		if err != nil {
			return RuntimeError{Err: err}
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, payload, "", "  "); err != nil {
			return err
		}
		result = buf.Bytes()
	} else {
		if result, err = json.MarshalIndent(out, "", "  "); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(result))
	return err
}
