package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
)

type ToolOutputKind int

const (
	// ToolOutputRaw is a value stored exactly as the tool returned it.
	ToolOutputRaw ToolOutputKind = iota
	// ToolOutputWrapped is a value that arrived inside a {"type": ..., "value": ...} envelope.
	ToolOutputWrapped
)

// ToolOutput is a tool result with its envelope already detected.
//
// The envelope is recognised once, when the output is decoded, and re-emitted
// in the same shape on encode. Code that inspects or rewrites a result only
// ever touches Value.
type ToolOutput struct {
	Kind ToolOutputKind
	// WrapperType is the envelope's "type" field for wrapped outputs.
	WrapperType string
	Value       json.RawMessage
}

// RawOutput builds an unwrapped output from an arbitrary JSON value.
func RawOutput(value json.RawMessage) ToolOutput {
	return ToolOutput{Kind: ToolOutputRaw, Value: slices.Clone(value)}
}

// WrappedOutput builds an output that encodes as {"type": wrapperType, "value": value}.
func WrappedOutput(wrapperType string, value json.RawMessage) ToolOutput {
	return ToolOutput{Kind: ToolOutputWrapped, WrapperType: wrapperType, Value: slices.Clone(value)}
}

// NormalizeToolOutput detects the {"type", "value"} envelope. Anything else,
// including objects with extra keys, is kept raw.
func NormalizeToolOutput(data json.RawMessage) ToolOutput {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ToolOutput{Kind: ToolOutputRaw, Value: json.RawMessage("null")}
	}
	if trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope) == 2 {
			rawType, hasType := envelope["type"]
			value, hasValue := envelope["value"]
			var wrapperType string
			if hasType && hasValue && json.Unmarshal(rawType, &wrapperType) == nil && wrapperType != "" {
				return WrappedOutput(wrapperType, value)
			}
		}
	}
	return RawOutput(trimmed)
}

// WithValue returns a copy of the output with Value replaced, keeping the envelope.
func (o ToolOutput) WithValue(value json.RawMessage) ToolOutput {
	o.Value = slices.Clone(value)
	return o
}

func (o ToolOutput) Clone() ToolOutput {
	o.Value = slices.Clone(o.Value)
	return o
}

// String returns the JSON text of the unwrapped value.
func (o ToolOutput) String() string {
	return string(o.Value)
}

func (o ToolOutput) MarshalJSON() ([]byte, error) {
	value := o.Value
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	if o.Kind == ToolOutputWrapped {
		return json.Marshal(struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		}{Type: o.WrapperType, Value: value})
	}
	return value, nil
}

func (o *ToolOutput) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return errors.New("invalid tool output JSON")
	}
	*o = NormalizeToolOutput(data)
	return nil
}
