package stream

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docker/turnwire/pkg/chat"
)

type DisplayedKind string

const (
	DisplayedKindUser      DisplayedKind = "user"
	DisplayedKindAssistant DisplayedKind = "assistant"
	DisplayedKindReasoning DisplayedKind = "reasoning"
	DisplayedKindTool      DisplayedKind = "tool"
	DisplayedKindInit      DisplayedKind = "init"
)

// DisplayedMessage is one renderable unit derived from a canonical message.
// It is never persisted and must not be mutated by consumers.
type DisplayedMessage struct {
	ID              string        `json:"id"`
	Kind            DisplayedKind `json:"kind"`
	MessageID       string        `json:"messageId"`
	HistorySequence int64         `json:"historySequence"`
	Content         string        `json:"content,omitempty"`

	ToolCallID string           `json:"toolCallId,omitempty"`
	ToolName   string           `json:"toolName,omitempty"`
	ToolState  chat.ToolState   `json:"toolState,omitempty"`
	Args       json.RawMessage  `json:"args,omitempty"`
	Result     *chat.ToolOutput `json:"result,omitempty"`
	IsError    bool             `json:"isError,omitempty"`

	Files []chat.File `json:"files,omitempty"`

	IsStreaming         bool      `json:"isStreaming,omitempty"`
	IsPartial           bool      `json:"isPartial,omitempty"`
	IsSynthetic         bool      `json:"isSynthetic,omitempty"`
	IsLastPartOfMessage bool      `json:"isLastPartOfMessage,omitempty"`
	Model               string    `json:"model,omitempty"`
	Mode                string    `json:"mode,omitempty"`
	Timestamp           time.Time `json:"timestamp,omitzero"`

	// Init hook output
	Lines    []string `json:"lines,omitempty"`
	ExitCode *int     `json:"exitCode,omitempty"`
}

// projectMessage splits one canonical message into display units.
//
// User messages become a single unit. Assistant messages are grouped by part
// kind: consecutive text parts merge, consecutive reasoning parts merge, and
// every tool invocation is its own unit.
func projectMessage(msg *chat.Message, streaming bool) []*DisplayedMessage {
	base := DisplayedMessage{
		MessageID:       msg.ID,
		HistorySequence: msg.Metadata.HistorySequence,
		IsStreaming:     streaming,
		IsPartial:       msg.Metadata.Partial,
		IsSynthetic:     msg.Metadata.Synthetic,
		Model:           msg.Metadata.Model,
		Mode:            msg.Metadata.Mode,
		Timestamp:       msg.Metadata.Timestamp,
	}

	var units []*DisplayedMessage
	newUnit := func(kind DisplayedKind) *DisplayedMessage {
		u := base
		u.ID = fmt.Sprintf("%s-%d", msg.ID, len(units))
		u.Kind = kind
		units = append(units, &u)
		return &u
	}

	if msg.Role != chat.MessageRoleAssistant {
		u := newUnit(DisplayedKindUser)
		if msg.Role == chat.MessageRoleTool {
			u.Kind = DisplayedKindTool
		}
		var sb strings.Builder
		for _, p := range msg.Parts {
			switch p.Type {
			case chat.MessagePartTypeText:
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(p.Text)
			case chat.MessagePartTypeFile:
				if p.File != nil {
					u.Files = append(u.Files, *p.File)
				}
			}
		}
		u.Content = sb.String()
		u.IsLastPartOfMessage = true
		return units
	}

	var (
		current *DisplayedMessage
		sb      strings.Builder
	)
	flush := func() {
		if current != nil {
			current.Content = sb.String()
			sb.Reset()
			current = nil
		}
	}

	for _, p := range msg.Parts {
		switch p.Type {
		case chat.MessagePartTypeText, chat.MessagePartTypeReasoning:
			kind := DisplayedKindAssistant
			if p.Type == chat.MessagePartTypeReasoning {
				kind = DisplayedKindReasoning
			}
			if current == nil || current.Kind != kind {
				flush()
				current = newUnit(kind)
			}
			sb.WriteString(p.Text)
		case chat.MessagePartTypeToolInvocation:
			flush()
			u := newUnit(DisplayedKindTool)
			u.ToolCallID = p.ToolCallID
			u.ToolName = p.ToolName
			u.ToolState = p.State
			u.Args = p.Input
			u.IsError = p.IsError
			if p.Output != nil {
				out := *p.Output
				u.Result = &out
			}
		case chat.MessagePartTypeFile:
			flush()
			u := newUnit(DisplayedKindAssistant)
			if p.File != nil {
				u.Files = []chat.File{*p.File}
			}
		}
	}
	flush()

	if len(units) > 0 {
		units[len(units)-1].IsLastPartOfMessage = true
	}
	return units
}

func projectInit(m *InitMessage) *DisplayedMessage {
	return &DisplayedMessage{
		ID:                  "init",
		Kind:                DisplayedKindInit,
		MessageID:           "init",
		HistorySequence:     -1,
		Content:             m.HookPath,
		Lines:               m.Lines,
		ExitCode:            m.ExitCode,
		IsStreaming:         m.Status == InitStatusRunning,
		IsLastPartOfMessage: true,
		Timestamp:           m.Timestamp,
	}
}
