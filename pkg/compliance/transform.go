package compliance

import (
	"log/slog"
	"strings"

	"github.com/docker/turnwire/pkg/model/provider"
)

// Transform rewrites msgs into a sequence the given provider accepts.
//
// The passes run in order:
//
//  0. coalesce adjacent text and adjacent reasoning parts
//  1. split assistant messages into text runs and tool-call runs, keeping
//     only calls whose result follows right after
//  2. apply the provider's content policy
//  3. merge consecutive user messages
//
// Transform never fails. Fragments that cannot be sent are dropped. The
// input is not modified.
//
// Output is always in split form: an assistant message holding both text and
// tool calls comes back as a text message followed by a tool-call message,
// even when the input already validates. Running Transform on its own output
// changes nothing beyond coalescing parts that stripping made adjacent.
func Transform(msgs []ModelMessage, kind provider.Kind) []ModelMessage {
	out := Coalesce(msgs)
	out = SplitToolRuns(out)
	out = ApplyPolicy(out, kind)
	return MergeUserMessages(out)
}

// Coalesce merges adjacent text parts and adjacent reasoning parts of each
// message. Fragments separated by any other part stay distinct. Tool calls,
// tool results and files are never merged.
func Coalesce(msgs []ModelMessage) []ModelMessage {
	out := make([]ModelMessage, 0, len(msgs))
	for _, m := range msgs {
		parts := make([]ModelPart, 0, len(m.Parts))
		for _, p := range m.Parts {
			if n := len(parts); n > 0 && mergeable(parts[n-1], p) {
				parts[n-1].Text += p.Text
				if parts[n-1].Signature == "" {
					parts[n-1].Signature = p.Signature
				}
				continue
			}
			parts = append(parts, p)
		}
		out = append(out, ModelMessage{Role: m.Role, Parts: parts})
	}
	return out
}

func mergeable(prev, next ModelPart) bool {
	if prev.Type != next.Type {
		return false
	}
	switch prev.Type {
	case PartTypeText:
		return true
	case PartTypeReasoning:
		// Two signed blocks are distinct thoughts for the provider.
		return prev.Signature == "" || next.Signature == ""
	default:
		return false
	}
}

// SplitToolRuns emits one message per maximal run of an assistant message:
// either non-tool content or tool calls. A tool-call run is filtered against
// the tool message that immediately follows the assistant message; calls
// without a result are dropped, and a non-empty run is followed at once by a
// tool message with exactly its results. Runs with no following results
// message, and tool messages that answer nothing, are dropped.
func SplitToolRuns(msgs []ModelMessage) []ModelMessage {
	out := make([]ModelMessage, 0, len(msgs))

	for i := 0; i < len(msgs); i++ {
		m := msgs[i]
		switch m.Role {
		case RoleAssistant:
			var results map[string]ModelPart
			if i+1 < len(msgs) && msgs[i+1].Role == RoleTool {
				results = indexResults(msgs[i+1])
				i++
			}
			out = appendRuns(out, m, results)

		case RoleTool:
			slog.Debug("Dropping orphaned tool results", "tool_call_ids", m.ToolResultIDs())

		default:
			out = append(out, m.clone())
		}
	}

	return out
}

func indexResults(m ModelMessage) map[string]ModelPart {
	results := make(map[string]ModelPart, len(m.Parts))
	for _, p := range m.Parts {
		if p.Type != PartTypeToolResult {
			continue
		}
		if _, dup := results[p.ToolCallID]; !dup {
			results[p.ToolCallID] = p
		}
	}
	return results
}

func appendRuns(out []ModelMessage, m ModelMessage, results map[string]ModelPart) []ModelMessage {
	var (
		run      []ModelPart
		toolRun  bool
		consumed = make(map[string]bool)
	)

	flush := func() {
		if len(run) == 0 {
			return
		}
		if !toolRun {
			out = append(out, AssistantMessage(run...))
			run = nil
			return
		}

		var calls, matched []ModelPart
		for _, call := range run {
			res, ok := results[call.ToolCallID]
			if !ok || consumed[call.ToolCallID] {
				continue
			}
			consumed[call.ToolCallID] = true
			calls = append(calls, call)
			matched = append(matched, res)
		}
		if dropped := len(run) - len(calls); dropped > 0 {
			slog.Debug("Dropping unresolved tool calls", "dropped", dropped, "kept", len(calls))
		}
		if len(calls) > 0 {
			out = append(out, AssistantMessage(calls...), ToolMessage(matched...))
		}
		run = nil
	}

	for _, p := range m.Parts {
		isCall := p.Type == PartTypeToolCall
		if len(run) > 0 && isCall != toolRun {
			flush()
		}
		toolRun = isCall
		run = append(run, p)
	}
	flush()

	if len(m.Parts) == 0 {
		out = append(out, AssistantMessage())
	}
	return out
}

// ApplyPolicy filters assistant messages through the content policy of kind.
func ApplyPolicy(msgs []ModelMessage, kind provider.Kind) []ModelMessage {
	policy := PolicyFor(kind)
	out := make([]ModelMessage, 0, len(msgs))
	for _, m := range msgs {
		filtered, ok := policy.Apply(m)
		if !ok {
			slog.Debug("Dropping assistant message without sendable content", "provider", policy.Name)
			continue
		}
		out = append(out, filtered)
	}
	return out
}

// MergeUserMessages merges each run of consecutive user messages into one.
// Text parts are joined with newlines into a single leading text part;
// other parts follow in arrival order.
func MergeUserMessages(msgs []ModelMessage) []ModelMessage {
	out := make([]ModelMessage, 0, len(msgs))
	for i := 0; i < len(msgs); {
		if msgs[i].Role != RoleUser {
			out = append(out, msgs[i])
			i++
			continue
		}

		j := i + 1
		for j < len(msgs) && msgs[j].Role == RoleUser {
			j++
		}
		if j == i+1 {
			out = append(out, msgs[i])
			i = j
			continue
		}

		var (
			texts []string
			other []ModelPart
		)
		for _, m := range msgs[i:j] {
			for _, p := range m.Parts {
				if p.Type == PartTypeText {
					texts = append(texts, p.Text)
				} else {
					other = append(other, p)
				}
			}
		}

		merged := ModelMessage{Role: RoleUser}
		if len(texts) > 0 {
			merged.Parts = append(merged.Parts, TextPart(strings.Join(texts, "\n")))
		}
		merged.Parts = append(merged.Parts, other...)
		out = append(out, merged)
		i = j
	}
	return out
}
