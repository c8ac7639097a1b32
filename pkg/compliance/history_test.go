package compliance

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/turnwire/pkg/chat"
	"github.com/docker/turnwire/pkg/redact"
)

func assistantMsg(id string, seq int64, mode string, partial bool, parts ...chat.Part) *chat.Message {
	if len(parts) == 0 {
		parts = []chat.Part{chat.NewTextPart("reply")}
	}
	return &chat.Message{
		ID:    id,
		Role:  chat.MessageRoleAssistant,
		Parts: parts,
		Metadata: chat.Metadata{
			HistorySequence: seq,
			Timestamp:       time.Unix(1_700_000_000+seq, 0),
			Mode:            mode,
			Partial:         partial,
		},
	}
}

func TestAddInterruptedSentinel(t *testing.T) {
	t.Parallel()

	t.Run("partial message is last", func(t *testing.T) {
		t.Parallel()
		partial := assistantMsg("a1", 2, "", true)
		in := []*chat.Message{chat.NewUserMessage("u1", "go", 1), partial}

		out := AddInterruptedSentinel(in)
		require.Len(t, out, 3)
		s := out[2]
		assert.Equal(t, "interrupted-a1", s.ID)
		assert.Equal(t, chat.MessageRoleUser, s.Role)
		assert.Equal(t, ContinueSentinel, s.Text())
		assert.True(t, s.Metadata.Synthetic)
		assert.Equal(t, partial.Metadata.Timestamp, s.Metadata.Timestamp)
		assert.Equal(t, partial.Metadata.HistorySequence, s.Metadata.HistorySequence)
		assert.Len(t, in, 2)
	})

	t.Run("followed by user message", func(t *testing.T) {
		t.Parallel()
		in := []*chat.Message{
			chat.NewUserMessage("u1", "go", 1),
			assistantMsg("a1", 2, "", true),
			chat.NewUserMessage("u2", "keep going", 3),
		}
		assert.Equal(t, in, AddInterruptedSentinel(in))
	})

	t.Run("followed by assistant message", func(t *testing.T) {
		t.Parallel()
		in := []*chat.Message{
			assistantMsg("a1", 1, "", true),
			assistantMsg("a2", 2, "", false),
		}
		out := AddInterruptedSentinel(in)
		require.Len(t, out, 3)
		assert.Equal(t, "interrupted-a1", out[1].ID)
		assert.Equal(t, "a2", out[2].ID)
	})

	t.Run("complete messages untouched", func(t *testing.T) {
		t.Parallel()
		in := []*chat.Message{chat.NewUserMessage("u1", "go", 1), assistantMsg("a1", 2, "", false)}
		assert.Equal(t, in, AddInterruptedSentinel(in))
	})
}

func TestInjectModeTransition(t *testing.T) {
	t.Parallel()

	history := func() []*chat.Message {
		return []*chat.Message{
			chat.NewUserMessage("u1", "plan it", 1),
			assistantMsg("a1", 2, "plan", false),
			chat.NewUserMessage("u2", "now do it", 3),
		}
	}

	t.Run("mode changed", func(t *testing.T) {
		t.Parallel()
		out := InjectModeTransition(history(), "exec", nil)
		require.Len(t, out, 4)
		assert.Equal(t, "u2", out[3].ID)
		tr := out[2]
		assert.Equal(t, chat.MessageRoleUser, tr.Role)
		assert.True(t, tr.Metadata.Synthetic)
		assert.True(t, strings.HasPrefix(tr.ID, "mode-transition-"))
		assert.Equal(t, "[Mode switched from plan to exec. Follow exec mode instructions.]", tr.Text())
	})

	t.Run("mode changed with tools", func(t *testing.T) {
		t.Parallel()
		out := InjectModeTransition(history(), "exec", []string{"file_read", "bash"})
		require.Len(t, out, 4)
		assert.Equal(t, "[Mode switched from plan to exec. Follow exec mode instructions. Available tools: file_read, bash.]", out[2].Text())
	})

	t.Run("mode unchanged", func(t *testing.T) {
		t.Parallel()
		in := history()
		assert.Equal(t, in, InjectModeTransition(in, "plan", nil))
	})

	t.Run("no current mode", func(t *testing.T) {
		t.Parallel()
		in := history()
		assert.Equal(t, in, InjectModeTransition(in, "", nil))
	})

	t.Run("no previous mode", func(t *testing.T) {
		t.Parallel()
		in := []*chat.Message{chat.NewUserMessage("u1", "hi", 1), assistantMsg("a1", 2, "", false), chat.NewUserMessage("u2", "again", 3)}
		assert.Equal(t, in, InjectModeTransition(in, "exec", nil))
	})

	t.Run("no assistant", func(t *testing.T) {
		t.Parallel()
		in := []*chat.Message{chat.NewUserMessage("u1", "hi", 1)}
		assert.Equal(t, in, InjectModeTransition(in, "exec", nil))
	})

	t.Run("final user message before the assistant", func(t *testing.T) {
		t.Parallel()
		in := history()[:2]
		out := InjectModeTransition(in, "exec", nil)
		require.Len(t, out, 3)
		assert.True(t, out[0].Metadata.Synthetic)
		assert.Equal(t, "[Mode switched from plan to exec. Follow exec mode instructions.]", out[0].Text())
		assert.Equal(t, "u1", out[1].ID)
		assert.Equal(t, "a1", out[2].ID)
		assert.Len(t, in, 2)
	})

	t.Run("no user message", func(t *testing.T) {
		t.Parallel()
		in := []*chat.Message{assistantMsg("a1", 1, "plan", false)}
		assert.Equal(t, in, InjectModeTransition(in, "exec", nil))
	})
}

func TestModeTransitionSurvivesTransform(t *testing.T) {
	t.Parallel()

	msgs := InjectModeTransition([]*chat.Message{
		chat.NewUserMessage("u1", "plan it", 1),
		assistantMsg("a1", 2, "plan", false),
		chat.NewUserMessage("u2", "now do it", 3),
	}, "exec", nil)

	out := Transform(ToModelMessages(msgs, nil), 0)
	require.Len(t, out, 3)
	assert.Equal(t, "[Mode switched from plan to exec. Follow exec mode instructions.]\nnow do it", out[2].Text())
}

func TestToModelMessages(t *testing.T) {
	t.Parallel()

	edit := chat.NewToolInvocationPart("c1", "file_edit_replace_string", json.RawMessage(`{"path":"a.go"}`))
	edit, _ = edit.Resolve(chat.WrappedOutput("json", json.RawMessage(`{"success":true,"diff":"@@ huge @@"}`)), false)
	pending := chat.NewToolInvocationPart("c2", "bash", json.RawMessage(`{"cmd":"sleep 100"}`))

	late := chat.NewToolInvocationPart("c3", "bash", nil)
	late, _ = late.Resolve(chat.RawOutput(json.RawMessage(`"late"`)), true)

	msgs := []*chat.Message{
		{ID: "u1", Role: chat.MessageRoleUser, Parts: []chat.Part{
			chat.NewTextPart("edit a.go"),
			chat.NewFilePart(chat.File{MediaType: "image/png", URL: "data:image/png;base64,AA"}),
		}},
		assistantMsg("a1", 2, "", false,
			chat.NewReasoningPart("need an edit"),
			chat.NewTextPart("Editing."),
			edit,
			pending,
		),
		{ID: "t1", Role: chat.MessageRoleTool, Parts: []chat.Part{late}},
		{ID: "u2", Role: chat.MessageRoleUser},
	}

	out := ToModelMessages(msgs, redact.Default())
	require.Len(t, out, 3)

	assert.Equal(t, RoleUser, out[0].Role)
	assert.Equal(t, []PartType{PartTypeText, PartTypeFile}, []PartType{out[0].Parts[0].Type, out[0].Parts[1].Type})

	assert.Equal(t, RoleAssistant, out[1].Role)
	assert.Equal(t, []string{"c1", "c2"}, out[1].ToolCallIDs())
	assert.Equal(t, PartTypeReasoning, out[1].Parts[0].Type)

	assert.Equal(t, RoleTool, out[2].Role)
	assert.Equal(t, []string{"c1", "c3"}, out[2].ToolResultIDs())
	res := out[2].Parts[0]
	assert.Equal(t, chat.ToolOutputWrapped, res.Output.Kind)
	assert.JSONEq(t, `{"success":true,"diff":"`+redact.DiffPlaceholder+`"}`, string(res.Output.Value))
	assert.True(t, out[2].Parts[1].IsError)

	// The canonical log keeps the full diff.
	assert.JSONEq(t, `{"success":true,"diff":"@@ huge @@"}`, string(msgs[1].Parts[2].Output.Value))

	unredacted := ToModelMessages(msgs, nil)
	assert.JSONEq(t, `{"success":true,"diff":"@@ huge @@"}`, string(unredacted[2].Parts[0].Output.Value))
}

func TestResultText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain", ToolResultPart("c", "t", chat.RawOutput(json.RawMessage(`"plain"`)), false).ResultText())
	assert.JSONEq(t, `{"a":1}`, ToolResultPart("c", "t", chat.RawOutput(json.RawMessage(`{"a":1}`)), false).ResultText())
	assert.Empty(t, ModelPart{Type: PartTypeToolResult}.ResultText())
}
