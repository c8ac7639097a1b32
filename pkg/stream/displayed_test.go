package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/turnwire/pkg/chat"
)

func kinds(units []*DisplayedMessage) []DisplayedKind {
	var out []DisplayedKind
	for _, u := range units {
		out = append(out, u.Kind)
	}
	return out
}

func TestDisplayedProjection(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	a.AddMessage(chat.NewUserMessage("u1", "fix the bug", 1))
	a.HandleStreamStart(StreamStart("a1", "m", 2))
	a.HandleReasoningDelta(ReasoningDelta("a1", "The bug "))
	a.HandleReasoningDelta(ReasoningDelta("a1", "is in main."))
	a.HandleStreamDelta(StreamDelta("a1", "Looking "))
	a.HandleStreamDelta(StreamDelta("a1", "now."))
	a.HandleToolCallStart(ToolCallStart("a1", "c1", "file_read", json.RawMessage(`{"path":"main.go"}`)))
	a.HandleToolCallStart(ToolCallStart("a1", "c2", "file_read", json.RawMessage(`{"path":"util.go"}`)))
	a.HandleStreamDelta(StreamDelta("a1", "Found it."))

	units := a.GetDisplayedMessages()
	assert.Equal(t, []DisplayedKind{
		DisplayedKindUser,
		DisplayedKindReasoning,
		DisplayedKindAssistant,
		DisplayedKindTool,
		DisplayedKindTool,
		DisplayedKindAssistant,
	}, kinds(units))

	assert.Equal(t, "fix the bug", units[0].Content)
	assert.Equal(t, "The bug is in main.", units[1].Content)
	assert.Equal(t, "Looking now.", units[2].Content)
	assert.Equal(t, "c1", units[3].ToolCallID)
	assert.Equal(t, chat.ToolStatePending, units[3].ToolState)
	assert.Equal(t, "c2", units[4].ToolCallID)
	assert.Equal(t, "Found it.", units[5].Content)

	assert.Equal(t, "a1-0", units[1].ID)
	assert.Equal(t, "a1-4", units[5].ID)
	for _, u := range units[1:] {
		assert.True(t, u.IsStreaming)
		assert.Equal(t, "a1", u.MessageID)
	}
	assert.True(t, units[5].IsLastPartOfMessage)
	assert.False(t, units[4].IsLastPartOfMessage)
}

func TestDisplayedMessagesAreCached(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	a.AddMessage(chat.NewUserMessage("u1", "hello", 1))
	a.HandleStreamStart(StreamStart("a1", "m", 2))
	a.HandleStreamDelta(StreamDelta("a1", "Hi"))

	first := a.GetDisplayedMessages()
	second := a.GetDisplayedMessages()
	require.Len(t, first, 2)
	assert.Same(t, &first[0], &second[0], "no mutation returns the same slice")

	a.HandleStreamDelta(StreamDelta("a1", " there"))
	third := a.GetDisplayedMessages()
	assert.NotSame(t, &first[0], &third[0], "a mutation returns a new slice")
	assert.Same(t, first[0], third[0], "unchanged messages keep their units")
	assert.NotSame(t, first[1], third[1], "changed messages get fresh units")
	assert.Equal(t, "Hi", first[1].Content)
	assert.Equal(t, "Hi there", third[1].Content)
}

func TestDisplayedMessagesRefreshWhenStreamingEnds(t *testing.T) {
	t.Parallel()

	a := startedAggregator(t, "a1", 1)
	a.HandleStreamDelta(StreamDelta("a1", "x"))
	before := a.GetDisplayedMessages()
	require.True(t, before[0].IsStreaming)

	a.HandleStreamAbort(StreamAbort("a1", "boom"))
	after := a.GetDisplayedMessages()
	assert.NotSame(t, before[0], after[0])
	assert.False(t, after[0].IsStreaming)
	assert.True(t, after[0].IsPartial)
}

func TestDisplayedToolResult(t *testing.T) {
	t.Parallel()

	a := startedAggregator(t, "a1", 1)
	a.HandleToolCallStart(ToolCallStart("a1", "c1", "bash", json.RawMessage(`{"cmd":"false"}`)))
	end := ToolCallEnd("a1", "c1", "bash", chat.WrappedOutput("text", json.RawMessage(`"exit 1"`)))
	end.IsError = true
	a.HandleToolCallEnd(end)

	units := a.GetDisplayedMessages()
	require.Len(t, units, 1)
	u := units[0]
	assert.Equal(t, chat.ToolStateOutputAvailable, u.ToolState)
	assert.True(t, u.IsError)
	require.NotNil(t, u.Result)
	assert.Equal(t, chat.ToolOutputWrapped, u.Result.Kind)
	assert.JSONEq(t, `{"cmd":"false"}`, string(u.Args))
}

func TestDisplayedInitMessage(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	a.AddMessage(chat.NewUserMessage("u1", "hi", 1))
	a.HandleInitStart(&InitStartEvent{HookPath: "init.sh"})
	a.HandleInitOutput(&InitOutputEvent{Line: "step 1"})

	first := a.GetDisplayedMessages()
	require.Len(t, first, 2)
	assert.Equal(t, DisplayedKindInit, first[0].Kind)
	assert.Equal(t, []string{"step 1"}, first[0].Lines)
	assert.True(t, first[0].IsStreaming)

	a.HandleInitOutput(&InitOutputEvent{Line: "step 2"})
	second := a.GetDisplayedMessages()
	assert.NotSame(t, first[0], second[0])
	assert.Same(t, first[1], second[1])
	assert.Equal(t, []string{"step 1"}, first[0].Lines)
	assert.Equal(t, []string{"step 1", "step 2"}, second[0].Lines)

	a.HandleInitEnd(&InitEndEvent{ExitCode: 0})
	third := a.GetDisplayedMessages()
	assert.False(t, third[0].IsStreaming)
	require.NotNil(t, third[0].ExitCode)
	assert.Equal(t, 0, *third[0].ExitCode)
}

func TestDisplayedUserAttachments(t *testing.T) {
	t.Parallel()

	msg := &chat.Message{
		ID:   "u1",
		Role: chat.MessageRoleUser,
		Parts: []chat.Part{
			chat.NewTextPart("what is this?"),
			chat.NewFilePart(chat.File{MediaType: "image/png", URL: "data:image/png;base64,AAAA"}),
			chat.NewTextPart("and this"),
		},
		Metadata: chat.Metadata{HistorySequence: 1},
	}

	units := projectMessage(msg, false)
	require.Len(t, units, 1)
	assert.Equal(t, "what is this?\nand this", units[0].Content)
	require.Len(t, units[0].Files, 1)
	assert.Equal(t, "image/png", units[0].Files[0].MediaType)
}
