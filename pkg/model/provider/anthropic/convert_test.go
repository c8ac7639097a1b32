package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/turnwire/pkg/chat"
	"github.com/docker/turnwire/pkg/compliance"
)

func history() []compliance.ModelMessage {
	return []compliance.ModelMessage{
		compliance.UserMessage("list files"),
		compliance.AssistantMessage(
			compliance.ReasoningPart("I should look", "sig-1"),
			compliance.TextPart("Let me check."),
		),
		compliance.AssistantMessage(
			compliance.ToolCallPart("c1", "bash", json.RawMessage(`{"cmd":"ls"}`)),
			compliance.ToolCallPart("c2", "read_file", nil),
		),
		compliance.ToolMessage(
			compliance.ToolResultPart("c1", "bash", chat.RawOutput(json.RawMessage(`"a.go"`)), false),
			compliance.ToolResultPart("c2", "read_file", chat.RawOutput(json.RawMessage(`"denied"`)), true),
		),
		compliance.AssistantMessage(compliance.TextPart("Done.")),
	}
}

func TestConvertMessages(t *testing.T) {
	t.Parallel()

	out, err := ConvertMessages(history())
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, anthropic.MessageParamRoleUser, out[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[1].Role)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[2].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[3].Role)

	// Text run and tool-call run are sent as one assistant turn.
	require.Len(t, out[1].Content, 4)
	require.NotNil(t, out[1].Content[0].OfThinking)
	assert.Equal(t, "sig-1", out[1].Content[0].OfThinking.Signature)
	require.NotNil(t, out[1].Content[1].OfText)
	require.NotNil(t, out[1].Content[2].OfToolUse)
	assert.Equal(t, "c1", out[1].Content[2].OfToolUse.ID)
	assert.Equal(t, map[string]any{"cmd": "ls"}, out[1].Content[2].OfToolUse.Input)
	assert.Equal(t, map[string]any{}, out[1].Content[3].OfToolUse.Input)

	require.Len(t, out[2].Content, 2)
	require.NotNil(t, out[2].Content[0].OfToolResult)
	assert.Equal(t, "c1", out[2].Content[0].OfToolResult.ToolUseID)
	assert.Equal(t, "c2", out[2].Content[1].OfToolResult.ToolUseID)
}

func TestConvertMessagesSkipsUnsignedThinking(t *testing.T) {
	t.Parallel()

	out, err := ConvertMessages([]compliance.ModelMessage{
		compliance.UserMessage("hi"),
		compliance.AssistantMessage(compliance.ReasoningPart("hmm", ""), compliance.TextPart("Hello")),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, out[1].Content, 1)
	assert.NotNil(t, out[1].Content[0].OfText)
}

func TestConvertMessagesAttachments(t *testing.T) {
	t.Parallel()

	user := compliance.UserMessage("see attached")
	user.Parts = append(user.Parts,
		compliance.FilePart(chat.File{MediaType: "image/png", URL: "data:image/png;base64,iVBORw0KGgo="}),
		compliance.FilePart(chat.File{MediaType: "application/pdf", URL: "data:application/pdf;base64,JVBERi0="}),
		compliance.FilePart(chat.File{MediaType: "text/plain", URL: "data:text/plain;base64,aGVsbG8="}),
		compliance.FilePart(chat.File{MediaType: "application/zip", URL: "data:application/zip;base64,UEsDBA=="}),
	)

	out, err := ConvertMessages([]compliance.ModelMessage{user})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].Content, 4)
	assert.NotNil(t, out[0].Content[1].OfImage)
	require.NotNil(t, out[0].Content[2].OfDocument)
	require.NotNil(t, out[0].Content[3].OfDocument)
	require.NotNil(t, out[0].Content[3].OfDocument.Source.OfText)
	assert.Equal(t, "hello", out[0].Content[3].OfDocument.Source.OfText.Data)
}

func toolUse(id string) anthropic.ContentBlockParamUnion {
	return anthropic.ContentBlockParamUnion{
		OfToolUse: &anthropic.ToolUseBlockParam{ID: id, Name: "bash", Input: map[string]any{}},
	}
}

func TestValidateSequencing(t *testing.T) {
	t.Parallel()

	valid := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("hi")),
		anthropic.NewAssistantMessage(toolUse("c1")),
		anthropic.NewUserMessage(anthropic.NewToolResultBlock("c1", "ok", false)),
	}
	require.NoError(t, ValidateSequencing(valid))

	missing := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("hi")),
		anthropic.NewAssistantMessage(
			toolUse("c1"),
			toolUse("c2"),
		),
		anthropic.NewUserMessage(anthropic.NewToolResultBlock("c1", "ok", false)),
	}
	err := ValidateSequencing(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c2")

	dangling := []anthropic.MessageParam{
		anthropic.NewAssistantMessage(toolUse("c1")),
	}
	require.Error(t, ValidateSequencing(dangling))
}
