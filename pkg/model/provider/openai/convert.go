// Package openai encodes compliant model messages as OpenAI Chat Completions
// request params.
package openai

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/docker/turnwire/pkg/chat"
	"github.com/docker/turnwire/pkg/compliance"
)

// ConvertMessages converts model messages to OpenAI message params. Every
// tool result becomes its own tool message, in call order.
func ConvertMessages(msgs []compliance.ModelMessage) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case compliance.RoleUser:
			if msg, ok := convertUser(m.Parts); ok {
				out = append(out, msg)
			}

		case compliance.RoleAssistant:
			assistantParam := openai.ChatCompletionAssistantMessageParam{}
			var (
				text      []string
				toolCalls []openai.ChatCompletionMessageToolCallUnionParam
			)
			for _, p := range m.Parts {
				switch p.Type {
				case compliance.PartTypeText:
					text = append(text, p.Text)
				case compliance.PartTypeToolCall:
					args := string(p.Input)
					if strings.TrimSpace(args) == "" {
						args = "{}"
					}
					toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnionParam{
						OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
							ID: p.ToolCallID,
							Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
								Name:      p.ToolName,
								Arguments: args,
							},
						},
					})
				}
			}
			content := strings.Join(text, "")
			hasContent := strings.TrimSpace(content) != ""
			if !hasContent && len(toolCalls) == 0 {
				continue
			}
			if hasContent {
				assistantParam.Content.OfString = param.NewOpt(content)
			}
			if len(toolCalls) > 0 {
				assistantParam.ToolCalls = toolCalls
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistantParam})

		case compliance.RoleTool:
			for _, p := range m.Parts {
				if p.Type != compliance.PartTypeToolResult {
					continue
				}
				toolParam := openai.ChatCompletionToolMessageParam{ToolCallID: p.ToolCallID}
				toolParam.Content.OfString = param.NewOpt(p.ResultText())
				out = append(out, openai.ChatCompletionMessageParamUnion{OfTool: &toolParam})
			}

		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}

	return out, nil
}

func convertUser(parts []compliance.ModelPart) (openai.ChatCompletionMessageParamUnion, bool) {
	hasFiles := false
	for _, p := range parts {
		if p.Type == compliance.PartTypeFile {
			hasFiles = true
			break
		}
	}

	if !hasFiles {
		var text []string
		for _, p := range parts {
			if p.Type == compliance.PartTypeText {
				text = append(text, p.Text)
			}
		}
		content := strings.Join(text, "\n")
		if strings.TrimSpace(content) == "" {
			return openai.ChatCompletionMessageParamUnion{}, false
		}
		return openai.UserMessage(content), true
	}

	contentParts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case compliance.PartTypeText:
			if strings.TrimSpace(p.Text) != "" {
				contentParts = append(contentParts, openai.TextContentPart(p.Text))
			}
		case compliance.PartTypeFile:
			if p.File == nil {
				continue
			}
			if !chat.IsImageMimeType(p.File.MediaType) {
				slog.Warn("Skipping attachment the chat completions API cannot carry", "media_type", p.File.MediaType)
				continue
			}
			contentParts = append(contentParts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: p.File.URL,
			}))
		}
	}
	if len(contentParts) == 0 {
		return openai.ChatCompletionMessageParamUnion{}, false
	}
	return openai.UserMessage(contentParts), true
}
