package chat

import (
	"slices"
	"strings"
	"time"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// Metadata is the per-message bookkeeping attached to every canonical message.
//
// HistorySequence is assigned by the backend when the message is first
// recorded and is never recomputed here.
type Metadata struct {
	HistorySequence int64     `json:"historySequence"`
	Timestamp       time.Time `json:"timestamp,omitzero"`
	Model           string    `json:"model,omitempty"`
	Mode            string    `json:"mode,omitempty"`
	Partial         bool      `json:"partial,omitempty"`
	Synthetic       bool      `json:"synthetic,omitempty"`
	Compacted       bool      `json:"compacted,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// Message is one canonical conversation turn.
//
// A *Message that has been handed out is treated as immutable: every change
// goes through a copy (WithParts, AppendPart, WithMetadata) so that holders of
// the old pointer keep seeing the old value.
type Message struct {
	ID       string      `json:"id"`
	Role     MessageRole `json:"role"`
	Parts    []Part      `json:"parts"`
	Metadata Metadata    `json:"metadata"`
}

// NewUserMessage creates a user message holding a single text part.
func NewUserMessage(id, text string, historySequence int64) *Message {
	return &Message{
		ID:    id,
		Role:  MessageRoleUser,
		Parts: []Part{NewTextPart(text)},
		Metadata: Metadata{
			HistorySequence: historySequence,
			Timestamp:       time.Now(),
		},
	}
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Parts = make([]Part, len(m.Parts))
	for i := range m.Parts {
		c.Parts[i] = m.Parts[i].Clone()
	}
	return &c
}

// WithParts returns a copy of the message with its parts replaced.
func (m *Message) WithParts(parts []Part) *Message {
	c := *m
	c.Parts = slices.Clone(parts)
	return &c
}

// AppendPart returns a copy of the message with p appended.
func (m *Message) AppendPart(p Part) *Message {
	c := *m
	c.Parts = append(slices.Clone(m.Parts), p)
	return &c
}

// WithMetadata returns a copy of the message with its metadata replaced.
func (m *Message) WithMetadata(md Metadata) *Message {
	c := *m
	c.Parts = slices.Clone(m.Parts)
	c.Metadata = md
	return &c
}

// Text concatenates the message's text parts.
func (m *Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type == MessagePartTypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// ToolInvocations returns the tool invocation parts in arrival order.
func (m *Message) ToolInvocations() []Part {
	var out []Part
	for _, p := range m.Parts {
		if p.Type == MessagePartTypeToolInvocation {
			out = append(out, p)
		}
	}
	return out
}

// FindToolInvocation returns the index of the tool invocation with the given call id, or -1.
func (m *Message) FindToolInvocation(toolCallID string) int {
	return slices.IndexFunc(m.Parts, func(p Part) bool {
		return p.Type == MessagePartTypeToolInvocation && p.ToolCallID == toolCallID
	})
}
