// Package bedrock encodes compliant model messages for the Bedrock Converse API.
package bedrock

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/docker/turnwire/pkg/chat"
	"github.com/docker/turnwire/pkg/compliance"
)

// ConvertMessages converts model messages to Bedrock Converse messages.
//
// The Converse API requires tool results to immediately follow the assistant
// message with the tool_use blocks, grouped into a single user message, and
// roles to alternate. Consecutive messages with the same role are merged.
func ConvertMessages(msgs []compliance.ModelMessage) ([]types.Message, error) {
	var out []types.Message

	for _, m := range msgs {
		var (
			role   types.ConversationRole
			blocks []types.ContentBlock
		)
		switch m.Role {
		case compliance.RoleUser:
			role = types.ConversationRoleUser
			blocks = convertUserContent(m.Parts)
		case compliance.RoleAssistant:
			role = types.ConversationRoleAssistant
			blocks = convertAssistantContent(m.Parts)
		case compliance.RoleTool:
			role = types.ConversationRoleUser
			for _, p := range m.Parts {
				if p.Type != compliance.PartTypeToolResult || p.ToolCallID == "" {
					continue
				}
				result := types.ToolResultBlock{
					ToolUseId: aws.String(p.ToolCallID),
					Content: []types.ToolResultContentBlock{
						&types.ToolResultContentBlockMemberText{Value: p.ResultText()},
					},
				}
				if p.IsError {
					result.Status = types.ToolResultStatusError
				}
				blocks = append(blocks, &types.ContentBlockMemberToolResult{Value: result})
			}
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}

		if len(blocks) == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, types.Message{Role: role, Content: blocks})
	}

	return out, nil
}

func convertUserContent(parts []compliance.ModelPart) []types.ContentBlock {
	var blocks []types.ContentBlock
	for _, p := range parts {
		switch p.Type {
		case compliance.PartTypeText:
			if strings.TrimSpace(p.Text) != "" {
				blocks = append(blocks, &types.ContentBlockMemberText{Value: p.Text})
			}
		case compliance.PartTypeFile:
			if block := convertImage(p.File); block != nil {
				blocks = append(blocks, block)
			}
		}
	}
	return blocks
}

func convertAssistantContent(parts []compliance.ModelPart) []types.ContentBlock {
	var blocks []types.ContentBlock
	for _, p := range parts {
		switch p.Type {
		case compliance.PartTypeText:
			if strings.TrimSpace(p.Text) != "" {
				blocks = append(blocks, &types.ContentBlockMemberText{Value: p.Text})
			}
		case compliance.PartTypeToolCall:
			var input map[string]any
			if len(p.Input) > 0 {
				_ = json.Unmarshal(p.Input, &input)
			}
			if input == nil {
				input = make(map[string]any)
			}
			blocks = append(blocks, &types.ContentBlockMemberToolUse{
				Value: types.ToolUseBlock{
					ToolUseId: aws.String(p.ToolCallID),
					Name:      aws.String(p.ToolName),
					Input:     document.NewLazyDocument(input),
				},
			})
		}
	}
	return blocks
}

// convertImage converts an inline image attachment to a Bedrock ImageBlock.
// Remote URLs and non-image attachments are not supported by Converse.
func convertImage(f *chat.File) types.ContentBlock {
	if f == nil {
		return nil
	}
	mediaType, data, ok := chat.SplitDataURL(f.URL)
	if !ok {
		slog.Warn("Skipping attachment that is not a data URL", "filename", f.Filename)
		return nil
	}
	if f.MediaType != "" {
		mediaType = f.MediaType
	}

	var format types.ImageFormat
	switch mediaType {
	case "image/jpeg":
		format = types.ImageFormatJpeg
	case "image/png":
		format = types.ImageFormatPng
	case "image/gif":
		format = types.ImageFormatGif
	case "image/webp":
		format = types.ImageFormatWebp
	default:
		slog.Warn("Skipping attachment with unsupported media type", "media_type", mediaType)
		return nil
	}

	imageData, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		slog.Warn("Skipping undecodable image", "filename", f.Filename, "error", err)
		return nil
	}

	return &types.ContentBlockMemberImage{
		Value: types.ImageBlock{
			Format: format,
			Source: &types.ImageSourceMemberBytes{Value: imageData},
		},
	}
}
