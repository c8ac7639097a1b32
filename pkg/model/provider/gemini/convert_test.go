package gemini

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/docker/turnwire/pkg/chat"
	"github.com/docker/turnwire/pkg/compliance"
)

func TestConvertMessages(t *testing.T) {
	t.Parallel()

	out, err := ConvertMessages([]compliance.ModelMessage{
		compliance.UserMessage("list files"),
		compliance.AssistantMessage(compliance.TextPart("Let me check.")),
		compliance.AssistantMessage(compliance.ToolCallPart("c1", "bash", json.RawMessage(`{"cmd":"ls"}`))),
		compliance.ToolMessage(compliance.ToolResultPart("c1", "bash", chat.RawOutput(json.RawMessage(`"a.go"`)), false)),
		compliance.UserMessage("thanks"),
		compliance.AssistantMessage(compliance.TextPart("Done.")),
	})
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, string(genai.RoleUser), out[0].Role)
	assert.Equal(t, string(genai.RoleModel), out[1].Role)
	require.Len(t, out[1].Parts, 2)
	assert.Equal(t, "Let me check.", out[1].Parts[0].Text)
	require.NotNil(t, out[1].Parts[1].FunctionCall)
	assert.Equal(t, "c1", out[1].Parts[1].FunctionCall.ID)
	assert.Equal(t, "bash", out[1].Parts[1].FunctionCall.Name)
	assert.Equal(t, map[string]any{"cmd": "ls"}, out[1].Parts[1].FunctionCall.Args)

	// The function response and the next user text share one user turn.
	assert.Equal(t, string(genai.RoleUser), out[2].Role)
	require.Len(t, out[2].Parts, 2)
	require.NotNil(t, out[2].Parts[0].FunctionResponse)
	assert.Equal(t, "c1", out[2].Parts[0].FunctionResponse.ID)
	assert.Equal(t, map[string]any{"result": "a.go"}, out[2].Parts[0].FunctionResponse.Response)
	assert.Equal(t, "thanks", out[2].Parts[1].Text)
}

func TestConvertMessagesErrorResult(t *testing.T) {
	t.Parallel()

	out, err := ConvertMessages([]compliance.ModelMessage{
		compliance.AssistantMessage(compliance.ToolCallPart("c1", "bash", nil)),
		compliance.ToolMessage(compliance.ToolResultPart("c1", "bash", chat.RawOutput(json.RawMessage(`"boom"`)), true)),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, map[string]any{"error": "boom"}, out[1].Parts[0].FunctionResponse.Response)
}

func TestConvertFile(t *testing.T) {
	t.Parallel()

	part := convertFile(&chat.File{MediaType: "image/png", URL: "data:image/png;base64,aGVsbG8="})
	require.NotNil(t, part)
	require.NotNil(t, part.InlineData)
	assert.Equal(t, []byte("hello"), part.InlineData.Data)
	assert.Equal(t, "image/png", part.InlineData.MIMEType)

	remote := convertFile(&chat.File{MediaType: "image/jpeg", URL: "https://example.com/cat.jpg"})
	require.NotNil(t, remote)
	require.NotNil(t, remote.FileData)
	assert.Equal(t, "https://example.com/cat.jpg", remote.FileData.FileURI)

	assert.Nil(t, convertFile(&chat.File{URL: "file:///tmp/x"}))
	assert.Nil(t, convertFile(nil))
}
