package chat

import (
	"encoding/json"
	"slices"
)

type MessagePartType string

const (
	MessagePartTypeText           MessagePartType = "text"
	MessagePartTypeReasoning      MessagePartType = "reasoning"
	MessagePartTypeToolInvocation MessagePartType = "tool-invocation"
	MessagePartTypeFile           MessagePartType = "file"
)

type ToolState string

const (
	ToolStatePending         ToolState = "pending"
	ToolStateOutputAvailable ToolState = "output-available"
)

// File is an attachment carried by a user message.
type File struct {
	MediaType string `json:"mediaType"`
	Filename  string `json:"filename,omitempty"`
	// URL is either a data: URL or a remote http(s) URL.
	URL string `json:"url"`
}

// Part is one element of a message. Type selects which fields are meaningful.
type Part struct {
	Type MessagePartType `json:"type"`

	// text, reasoning
	Text string `json:"text,omitempty"`
	// Signature is the provider's opaque signature for a reasoning block.
	Signature string `json:"signature,omitempty"`

	// tool-invocation
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	State      ToolState       `json:"state,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     *ToolOutput     `json:"output,omitempty"`
	IsError    bool            `json:"isError,omitempty"`

	// file
	File *File `json:"file,omitempty"`
}

func NewTextPart(text string) Part {
	return Part{Type: MessagePartTypeText, Text: text}
}

func NewReasoningPart(text string) Part {
	return Part{Type: MessagePartTypeReasoning, Text: text}
}

func NewFilePart(f File) Part {
	return Part{Type: MessagePartTypeFile, File: &f}
}

// NewToolInvocationPart creates a pending tool invocation.
func NewToolInvocationPart(toolCallID, toolName string, input json.RawMessage) Part {
	return Part{
		Type:       MessagePartTypeToolInvocation,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		State:      ToolStatePending,
		Input:      slices.Clone(input),
	}
}

// IsResolved reports whether the part is a tool invocation with its output available.
func (p Part) IsResolved() bool {
	return p.Type == MessagePartTypeToolInvocation && p.State == ToolStateOutputAvailable
}

// Resolve returns a copy of a pending tool invocation carrying the given output.
// Resolving an already resolved invocation returns it unchanged and false, so
// an invocation never moves back out of output-available.
func (p Part) Resolve(output ToolOutput, isError bool) (Part, bool) {
	if p.Type != MessagePartTypeToolInvocation || p.State == ToolStateOutputAvailable {
		return p, false
	}
	p.State = ToolStateOutputAvailable
	p.Output = &output
	p.IsError = isError
	return p, true
}

// Clone returns a copy that shares no mutable memory with p.
func (p Part) Clone() Part {
	c := p
	c.Input = slices.Clone(p.Input)
	if p.Output != nil {
		o := p.Output.Clone()
		c.Output = &o
	}
	if p.File != nil {
		f := *p.File
		c.File = &f
	}
	return c
}
