package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/turnwire/pkg/chat"
)

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, ev Event)
	}{
		{
			name:  "stream start",
			input: `{"type":"stream-start","messageId":"a1","model":"gpt-5","historySequence":7}`,
			check: func(t *testing.T, ev Event) {
				t.Helper()
				e := ev.(*StreamStartEvent)
				assert.Equal(t, "a1", e.MessageID)
				assert.Equal(t, "gpt-5", e.Model)
				assert.Equal(t, int64(7), e.HistorySequence)
			},
		},
		{
			name:  "stream delta",
			input: `{"type":"stream-delta","messageId":"a1","text":"hi"}`,
			check: func(t *testing.T, ev Event) {
				t.Helper()
				assert.Equal(t, "hi", ev.(*StreamDeltaEvent).Text)
			},
		},
		{
			name:  "tool call end with wrapped result",
			input: `{"type":"tool-call-end","messageId":"a1","toolCallId":"c1","toolName":"bash","result":{"type":"json","value":{"ok":true}}}`,
			check: func(t *testing.T, ev Event) {
				t.Helper()
				e := ev.(*ToolCallEndEvent)
				assert.Equal(t, chat.ToolOutputWrapped, e.Result.Kind)
				assert.Equal(t, "json", e.Result.WrapperType)
				assert.JSONEq(t, `{"ok":true}`, string(e.Result.Value))
			},
		},
		{
			name:  "tool call end with raw result",
			input: `{"type":"tool-call-end","messageId":"a1","toolCallId":"c1","toolName":"bash","result":{"type":"json","value":1,"extra":2}}`,
			check: func(t *testing.T, ev Event) {
				t.Helper()
				assert.Equal(t, chat.ToolOutputRaw, ev.(*ToolCallEndEvent).Result.Kind)
			},
		},
		{
			name:  "historical message",
			input: `{"type":"message","id":"u1","role":"user","parts":[{"type":"text","text":"hi"}],"metadata":{"historySequence":3}}`,
			check: func(t *testing.T, ev Event) {
				t.Helper()
				e := ev.(*MessageEvent)
				assert.Equal(t, "u1", e.ID)
				assert.Equal(t, chat.MessageRoleUser, e.Role)
				assert.Equal(t, int64(3), e.Metadata.HistorySequence)
				assert.Equal(t, "hi", e.Text())
			},
		},
		{
			name:  "stream end",
			input: `{"type":"stream-end","messageId":"a1","metadata":{"historySequence":2,"mode":"plan"},"parts":[{"type":"reasoning","text":"r"},{"type":"text","text":"t"}]}`,
			check: func(t *testing.T, ev Event) {
				t.Helper()
				e := ev.(*StreamEndEvent)
				assert.Equal(t, "plan", e.Metadata.Mode)
				assert.Len(t, e.Parts, 2)
			},
		},
		{
			name:  "delete",
			input: `{"type":"delete-message","historySequences":[1,2]}`,
			check: func(t *testing.T, ev Event) {
				t.Helper()
				assert.Equal(t, []int64{1, 2}, ev.(*DeleteMessageEvent).HistorySequences)
			},
		},
		{
			name:  "init end",
			input: `{"type":"init-end","exitCode":1}`,
			check: func(t *testing.T, ev Event) {
				t.Helper()
				assert.Equal(t, 1, ev.(*InitEndEvent).ExitCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev, err := DecodeEvent([]byte(tt.input))
			require.NoError(t, err)
			tt.check(t, ev)
		})
	}
}

func TestDecodeEventErrors(t *testing.T) {
	t.Parallel()

	_, err := DecodeEvent([]byte(`{"type":"telepathy"}`))
	require.ErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeEvent([]byte(`{"messageId":"a1"}`))
	require.ErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeEvent([]byte(`{not json`))
	require.Error(t, err)

	_, err = DecodeEvent([]byte(`{"type":"stream-start","historySequence":"seven"}`))
	require.Error(t, err)
}

func TestEventRoundTrip(t *testing.T) {
	t.Parallel()

	in := ToolCallStart("a1", "c1", "bash", json.RawMessage(`{"cmd":"ls"}`))
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
