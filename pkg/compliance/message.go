// Package compliance turns a canonical conversation log into a request that
// satisfies a model provider's structural rules, and checks the result.
package compliance

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/docker/turnwire/pkg/chat"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type PartType string

const (
	PartTypeText       PartType = "text"
	PartTypeReasoning  PartType = "reasoning"
	PartTypeToolCall   PartType = "tool-call"
	PartTypeToolResult PartType = "tool-result"
	PartTypeFile       PartType = "file"
)

// ModelPart is one element of a provider-bound message.
type ModelPart struct {
	Type PartType `json:"type"`

	Text      string `json:"text,omitempty"`
	Signature string `json:"signature,omitempty"`

	ToolCallID string           `json:"toolCallId,omitempty"`
	ToolName   string           `json:"toolName,omitempty"`
	Input      json.RawMessage  `json:"input,omitempty"`
	Output     *chat.ToolOutput `json:"output,omitempty"`
	IsError    bool             `json:"isError,omitempty"`

	File *chat.File `json:"file,omitempty"`
}

// ModelMessage is a provider-neutral request message.
type ModelMessage struct {
	Role  Role        `json:"role"`
	Parts []ModelPart `json:"parts"`
}

func TextPart(text string) ModelPart {
	return ModelPart{Type: PartTypeText, Text: text}
}

func ReasoningPart(text, signature string) ModelPart {
	return ModelPart{Type: PartTypeReasoning, Text: text, Signature: signature}
}

func ToolCallPart(id, name string, input json.RawMessage) ModelPart {
	return ModelPart{Type: PartTypeToolCall, ToolCallID: id, ToolName: name, Input: input}
}

func ToolResultPart(id, name string, output chat.ToolOutput, isError bool) ModelPart {
	return ModelPart{Type: PartTypeToolResult, ToolCallID: id, ToolName: name, Output: &output, IsError: isError}
}

func FilePart(f chat.File) ModelPart {
	return ModelPart{Type: PartTypeFile, File: &f}
}

// UserMessage builds a user message from plain text parts.
func UserMessage(texts ...string) ModelMessage {
	m := ModelMessage{Role: RoleUser}
	for _, t := range texts {
		m.Parts = append(m.Parts, TextPart(t))
	}
	return m
}

// AssistantMessage builds an assistant message from parts.
func AssistantMessage(parts ...ModelPart) ModelMessage {
	return ModelMessage{Role: RoleAssistant, Parts: parts}
}

// ToolMessage builds a tool message from tool-result parts.
func ToolMessage(results ...ModelPart) ModelMessage {
	return ModelMessage{Role: RoleTool, Parts: results}
}

// ResultText returns the result value as text: JSON strings are unquoted,
// anything else is returned as JSON.
func (p ModelPart) ResultText() string {
	if p.Output == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Output.Value, &s); err == nil {
		return s
	}
	return string(p.Output.Value)
}

// IsBlankText reports whether p is a text part with nothing but whitespace.
func (p ModelPart) IsBlankText() bool {
	return p.Type == PartTypeText && strings.TrimSpace(p.Text) == ""
}

// ToolCallIDs returns the ids of the message's tool-call parts in order.
func (m ModelMessage) ToolCallIDs() []string {
	return m.idsOf(PartTypeToolCall)
}

// ToolResultIDs returns the ids of the message's tool-result parts in order.
func (m ModelMessage) ToolResultIDs() []string {
	return m.idsOf(PartTypeToolResult)
}

func (m ModelMessage) idsOf(t PartType) []string {
	var ids []string
	for _, p := range m.Parts {
		if p.Type == t {
			ids = append(ids, p.ToolCallID)
		}
	}
	return ids
}

// HasToolCalls reports whether m is an assistant message carrying tool calls.
func (m ModelMessage) HasToolCalls() bool {
	return m.Role == RoleAssistant && slices.ContainsFunc(m.Parts, func(p ModelPart) bool {
		return p.Type == PartTypeToolCall
	})
}

// Text concatenates the message's text parts.
func (m ModelMessage) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func (m ModelMessage) clone() ModelMessage {
	m.Parts = slices.Clone(m.Parts)
	return m
}
