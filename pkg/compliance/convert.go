package compliance

import (
	"github.com/docker/turnwire/pkg/chat"
	"github.com/docker/turnwire/pkg/redact"
)

// ToModelMessages converts the canonical log into provider-neutral messages.
//
// An assistant message keeps its parts in arrival order with tool
// invocations turned into tool-call parts; the results of its resolved
// invocations go into a tool message right after it. Pending invocations keep
// their call and get no result, which the transform later drops. Tool
// outputs are redacted with r; a nil r sends them unchanged.
func ToModelMessages(msgs []*chat.Message, r *redact.Registry) []ModelMessage {
	var out []ModelMessage

	appendResults := func(results []ModelPart) {
		if len(results) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == RoleTool {
			out[n-1].Parts = append(out[n-1].Parts, results...)
			return
		}
		out = append(out, ToolMessage(results...))
	}

	for _, msg := range msgs {
		if msg == nil {
			continue
		}

		switch msg.Role {
		case chat.MessageRoleUser:
			m := ModelMessage{Role: RoleUser}
			for _, p := range msg.Parts {
				switch p.Type {
				case chat.MessagePartTypeText:
					m.Parts = append(m.Parts, TextPart(p.Text))
				case chat.MessagePartTypeFile:
					if p.File != nil {
						m.Parts = append(m.Parts, FilePart(*p.File))
					}
				}
			}
			if len(m.Parts) > 0 {
				out = append(out, m)
			}

		case chat.MessageRoleAssistant:
			m := ModelMessage{Role: RoleAssistant}
			var results []ModelPart
			for _, p := range msg.Parts {
				switch p.Type {
				case chat.MessagePartTypeText:
					m.Parts = append(m.Parts, TextPart(p.Text))
				case chat.MessagePartTypeReasoning:
					m.Parts = append(m.Parts, ReasoningPart(p.Text, p.Signature))
				case chat.MessagePartTypeFile:
					if p.File != nil {
						m.Parts = append(m.Parts, FilePart(*p.File))
					}
				case chat.MessagePartTypeToolInvocation:
					m.Parts = append(m.Parts, ToolCallPart(p.ToolCallID, p.ToolName, p.Input))
					if p.IsResolved() {
						results = append(results, resultPart(p, r))
					}
				}
			}
			out = append(out, m)
			appendResults(results)

		case chat.MessageRoleTool:
			var results []ModelPart
			for _, p := range msg.Parts {
				if p.IsResolved() {
					results = append(results, resultPart(p, r))
				}
			}
			appendResults(results)
		}
	}

	return out
}

func resultPart(p chat.Part, r *redact.Registry) ModelPart {
	var output chat.ToolOutput
	if p.Output != nil {
		output = r.Redact(p.ToolName, *p.Output)
	} else {
		output = chat.RawOutput(nil)
	}
	return ToolResultPart(p.ToolCallID, p.ToolName, output, p.IsError)
}
