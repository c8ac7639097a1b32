package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/docker/turnwire/pkg/chat"
)

// ErrUnknownEvent is returned by DecodeEvent for an unrecognised "type".
var ErrUnknownEvent = errors.New("unknown event type")

// Event is one transport event for a conversation.
type Event interface {
	isEvent()
	EventType() string
}

// StreamStartEvent opens an assistant message at HistorySequence.
type StreamStartEvent struct {
	Type            string    `json:"type"`
	MessageID       string    `json:"messageId"`
	Model           string    `json:"model,omitempty"`
	HistorySequence int64     `json:"historySequence"`
	Mode            string    `json:"mode,omitempty"`
	Timestamp       time.Time `json:"timestamp,omitzero"`
}

func StreamStart(messageID, model string, historySequence int64) *StreamStartEvent {
	return &StreamStartEvent{
		Type:            "stream-start",
		MessageID:       messageID,
		Model:           model,
		HistorySequence: historySequence,
		Timestamp:       time.Now(),
	}
}

func (e *StreamStartEvent) isEvent()          {}
func (e *StreamStartEvent) EventType() string { return "stream-start" }

// StreamDeltaEvent carries one text fragment.
type StreamDeltaEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

func StreamDelta(messageID, text string) *StreamDeltaEvent {
	return &StreamDeltaEvent{Type: "stream-delta", MessageID: messageID, Text: text}
}

func (e *StreamDeltaEvent) isEvent()          {}
func (e *StreamDeltaEvent) EventType() string { return "stream-delta" }

// ReasoningDeltaEvent carries one reasoning fragment.
type ReasoningDeltaEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
	Signature string `json:"signature,omitempty"`
}

func ReasoningDelta(messageID, text string) *ReasoningDeltaEvent {
	return &ReasoningDeltaEvent{Type: "reasoning-delta", MessageID: messageID, Text: text}
}

func (e *ReasoningDeltaEvent) isEvent()          {}
func (e *ReasoningDeltaEvent) EventType() string { return "reasoning-delta" }

// ToolCallStartEvent is sent when the model requests a tool call.
type ToolCallStartEvent struct {
	Type       string          `json:"type"`
	MessageID  string          `json:"messageId"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args,omitempty"`
}

func ToolCallStart(messageID, toolCallID, toolName string, args json.RawMessage) *ToolCallStartEvent {
	return &ToolCallStartEvent{
		Type:       "tool-call-start",
		MessageID:  messageID,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Args:       args,
	}
}

func (e *ToolCallStartEvent) isEvent()          {}
func (e *ToolCallStartEvent) EventType() string { return "tool-call-start" }

// ToolCallEndEvent carries a tool result. Result is normalised into a
// chat.ToolOutput while decoding.
type ToolCallEndEvent struct {
	Type       string          `json:"type"`
	MessageID  string          `json:"messageId"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Result     chat.ToolOutput `json:"result"`
	IsError    bool            `json:"isError,omitempty"`
}

func ToolCallEnd(messageID, toolCallID, toolName string, result chat.ToolOutput) *ToolCallEndEvent {
	return &ToolCallEndEvent{
		Type:       "tool-call-end",
		MessageID:  messageID,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Result:     result,
	}
}

func (e *ToolCallEndEvent) isEvent()          {}
func (e *ToolCallEndEvent) EventType() string { return "tool-call-end" }

// StreamEndEvent finalizes a message with the authoritative set of parts.
type StreamEndEvent struct {
	Type      string        `json:"type"`
	MessageID string        `json:"messageId"`
	Metadata  chat.Metadata `json:"metadata"`
	Parts     []chat.Part   `json:"parts"`
}

func StreamEnd(messageID string, metadata chat.Metadata, parts []chat.Part) *StreamEndEvent {
	return &StreamEndEvent{Type: "stream-end", MessageID: messageID, Metadata: metadata, Parts: parts}
}

func (e *StreamEndEvent) isEvent()          {}
func (e *StreamEndEvent) EventType() string { return "stream-end" }

// StreamAbortEvent is sent when a stream terminates abnormally.
type StreamAbortEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	Error     string `json:"error,omitempty"`
}

func StreamAbort(messageID, errMsg string) *StreamAbortEvent {
	return &StreamAbortEvent{Type: "stream-abort", MessageID: messageID, Error: errMsg}
}

func (e *StreamAbortEvent) isEvent()          {}
func (e *StreamAbortEvent) EventType() string { return "stream-abort" }

// MessageEvent carries an already formed message, e.g. a user turn or
// replayed history.
type MessageEvent struct {
	Type string `json:"type"`
	chat.Message
}

func MessageReceived(msg *chat.Message) *MessageEvent {
	return &MessageEvent{Type: "message", Message: *msg}
}

func (e *MessageEvent) isEvent()          {}
func (e *MessageEvent) EventType() string { return "message" }

// DeleteMessageEvent removes messages by history sequence.
type DeleteMessageEvent struct {
	Type             string  `json:"type"`
	HistorySequences []int64 `json:"historySequences"`
}

func DeleteMessages(historySequences ...int64) *DeleteMessageEvent {
	return &DeleteMessageEvent{Type: "delete-message", HistorySequences: historySequences}
}

func (e *DeleteMessageEvent) isEvent()          {}
func (e *DeleteMessageEvent) EventType() string { return "delete-message" }

// InitStartEvent is sent when a workspace init hook starts running.
type InitStartEvent struct {
	Type      string    `json:"type"`
	HookPath  string    `json:"hookPath"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func (e *InitStartEvent) isEvent()          {}
func (e *InitStartEvent) EventType() string { return "init-start" }

// InitOutputEvent carries one line of init hook output.
type InitOutputEvent struct {
	Type    string `json:"type"`
	Line    string `json:"line"`
	IsError bool   `json:"isError,omitempty"`
}

func (e *InitOutputEvent) isEvent()          {}
func (e *InitOutputEvent) EventType() string { return "init-output" }

// InitEndEvent is sent when the init hook exits.
type InitEndEvent struct {
	Type     string `json:"type"`
	ExitCode int    `json:"exitCode"`
}

func (e *InitEndEvent) isEvent()          {}
func (e *InitEndEvent) EventType() string { return "init-end" }

// DecodeEvent decodes one JSON transport event, dispatching on its "type".
func DecodeEvent(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("decoding event: invalid JSON")
	}

	typ := gjson.GetBytes(data, "type").String()
	var ev Event
	switch typ {
	case "stream-start":
		ev = &StreamStartEvent{}
	case "stream-delta":
		ev = &StreamDeltaEvent{}
	case "reasoning-delta":
		ev = &ReasoningDeltaEvent{}
	case "tool-call-start":
		ev = &ToolCallStartEvent{}
	case "tool-call-end":
		ev = &ToolCallEndEvent{}
	case "stream-end":
		ev = &StreamEndEvent{}
	case "stream-abort":
		ev = &StreamAbortEvent{}
	case "message":
		ev = &MessageEvent{}
	case "delete-message":
		ev = &DeleteMessageEvent{}
	case "init-start":
		ev = &InitStartEvent{}
	case "init-output":
		ev = &InitOutputEvent{}
	case "init-end":
		ev = &InitEndEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, typ)
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decoding %s event: %w", typ, err)
	}
	return ev, nil
}
