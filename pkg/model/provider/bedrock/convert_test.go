package bedrock

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/turnwire/pkg/chat"
	"github.com/docker/turnwire/pkg/compliance"
)

func TestConvertMessages(t *testing.T) {
	t.Parallel()

	out, err := ConvertMessages([]compliance.ModelMessage{
		compliance.UserMessage("list files"),
		compliance.AssistantMessage(compliance.TextPart("Let me check.")),
		compliance.AssistantMessage(
			compliance.ToolCallPart("c1", "bash", json.RawMessage(`{"cmd":"ls"}`)),
			compliance.ToolCallPart("c2", "bash", nil),
		),
		compliance.ToolMessage(
			compliance.ToolResultPart("c1", "bash", chat.RawOutput(json.RawMessage(`"a.go"`)), false),
			compliance.ToolResultPart("c2", "bash", chat.RawOutput(json.RawMessage(`"denied"`)), true),
		),
	})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, types.ConversationRoleUser, out[0].Role)
	assert.Equal(t, types.ConversationRoleAssistant, out[1].Role)
	assert.Equal(t, types.ConversationRoleUser, out[2].Role)

	require.Len(t, out[1].Content, 3)
	text, ok := out[1].Content[0].(*types.ContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "Let me check.", text.Value)
	toolUse, ok := out[1].Content[1].(*types.ContentBlockMemberToolUse)
	require.True(t, ok)
	assert.Equal(t, "c1", *toolUse.Value.ToolUseId)
	assert.Equal(t, "bash", *toolUse.Value.Name)

	// All results are grouped into a single user message.
	require.Len(t, out[2].Content, 2)
	first, ok := out[2].Content[0].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, "c1", *first.Value.ToolUseId)
	assert.Empty(t, first.Value.Status)
	second, ok := out[2].Content[1].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, types.ToolResultStatusError, second.Value.Status)
}

func TestConvertImage(t *testing.T) {
	t.Parallel()

	block := convertImage(&chat.File{MediaType: "image/png", URL: "data:image/png;base64,aGVsbG8="})
	img, ok := block.(*types.ContentBlockMemberImage)
	require.True(t, ok)
	assert.Equal(t, types.ImageFormatPng, img.Value.Format)
	src, ok := img.Value.Source.(*types.ImageSourceMemberBytes)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), src.Value)

	assert.Nil(t, convertImage(&chat.File{MediaType: "image/png", URL: "https://example.com/a.png"}))
	assert.Nil(t, convertImage(&chat.File{MediaType: "application/pdf", URL: "data:application/pdf;base64,JVBERi0="}))
}
