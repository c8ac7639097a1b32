package root

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docker/turnwire/pkg/concurrent"
	"github.com/docker/turnwire/pkg/stream"
	"github.com/docker/turnwire/pkg/turn"
)

const maxEventLine = 16 * 1024 * 1024

type replayResult struct {
	index  int
	path   string
	output []byte
}

func newReplayCmd() *cobra.Command {
	var canonical bool

	cmd := &cobra.Command{
		Use:   "replay <events.jsonl>...",
		Short: "Replay recorded stream events through the aggregator",
		Long: `Feed every event of each JSON Lines file through its own conversation and
print the resulting display units. Files are replayed concurrently, one
conversation per file; output keeps the order of the arguments.`,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args, canonical)
		},
	}

	cmd.Flags().BoolVar(&canonical, "canonical", false, "Print the canonical message log instead of display units")

	return cmd
}

func runReplay(cmd *cobra.Command, paths []string, canonical bool) error {
	stdin := 0
	for _, path := range paths {
		if path == "-" {
			stdin++
		}
	}
	if stdin > 1 {
		return errors.New("stdin (-) can only be replayed once")
	}

	registry := turn.NewRegistry()
	results := concurrent.NewSlice[replayResult]()

	g, ctx := errgroup.WithContext(cmd.Context())
	for i, path := range paths {
		g.Go(func() error {
			// Keyed by position: the same file given twice gets two owners.
			conv, _ := registry.GetOrCreate(fmt.Sprintf("%d:%s", i, path))
			if err := replayFile(cmd, path, conv.Aggregator); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			var out []byte
			var err error
			if canonical {
				out, err = json.MarshalIndent(conv.Aggregator.GetAllMessages(), "", "  ")
			} else {
				out = renderDisplayed(conv.Aggregator.GetDisplayedMessages())
			}
			if err != nil {
				return err
			}
			results.Append(replayResult{index: i, path: path, output: out})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sorted := results.All()
	slices.SortFunc(sorted, func(a, b replayResult) int { return cmp.Compare(a.index, b.index) })

	w := cmd.OutOrStdout()
	for _, r := range sorted {
		if len(paths) > 1 {
			fmt.Fprintf(w, "==> %s <==\n", r.path)
		}
		fmt.Fprintln(w, strings.TrimRight(string(r.output), "\n"))
	}
	return nil
}

func replayFile(cmd *cobra.Command, path string, agg *stream.Aggregator) error {
	r, err := openInput(cmd, path)
	if err != nil {
		return err
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		ev, err := stream.DecodeEvent(data)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		agg.HandleEvent(ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	slog.Debug("Replayed event log", "path", path, "events", line, "messages", agg.Len())
	return nil
}

func renderDisplayed(units []*stream.DisplayedMessage) []byte {
	var buf bytes.Buffer
	for _, d := range units {
		var flags []string
		if d.IsStreaming {
			flags = append(flags, "streaming")
		}
		if d.IsPartial {
			flags = append(flags, "partial")
		}
		if d.IsSynthetic {
			flags = append(flags, "synthetic")
		}

		fmt.Fprintf(&buf, "[%s] %s", d.Kind, d.ID)
		if len(flags) > 0 {
			fmt.Fprintf(&buf, " (%s)", strings.Join(flags, ", "))
		}

		switch d.Kind {
		case stream.DisplayedKindTool:
			fmt.Fprintf(&buf, " %s %s", d.ToolName, d.ToolState)
			if d.Result != nil {
				fmt.Fprintf(&buf, " -> %s", d.Result.String())
			}
		case stream.DisplayedKindInit:
			fmt.Fprintf(&buf, " %d lines", len(d.Lines))
			if d.ExitCode != nil {
				fmt.Fprintf(&buf, ", exit %d", *d.ExitCode)
			}
		default:
			if d.Content != "" {
				fmt.Fprintf(&buf, ": %s", d.Content)
			}
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
