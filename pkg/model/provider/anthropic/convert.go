// Package anthropic encodes compliant model messages as Anthropic Messages
// API request params.
package anthropic

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/docker/turnwire/pkg/chat"
	"github.com/docker/turnwire/pkg/compliance"
)

// ConvertMessages converts model messages to Anthropic message params.
//
// Tool messages become user messages of tool_result blocks. Consecutive
// messages with the same Anthropic role are merged, so a text run followed
// by its tool-call run is sent as one assistant turn. Reasoning is only sent
// when it carries a signature; Anthropic rejects unsigned thinking blocks.
func ConvertMessages(msgs []compliance.ModelMessage) ([]anthropic.MessageParam, error) {
	var out []anthropic.MessageParam

	for _, m := range msgs {
		var (
			role   anthropic.MessageParamRole
			blocks []anthropic.ContentBlockParamUnion
		)
		switch m.Role {
		case compliance.RoleUser:
			role = anthropic.MessageParamRoleUser
			blocks = convertUserParts(m.Parts)
		case compliance.RoleAssistant:
			role = anthropic.MessageParamRoleAssistant
			blocks = convertAssistantParts(m.Parts)
		case compliance.RoleTool:
			role = anthropic.MessageParamRoleUser
			for _, p := range m.Parts {
				if p.Type == compliance.PartTypeToolResult {
					blocks = append(blocks, anthropic.NewToolResultBlock(p.ToolCallID, p.ResultText(), p.IsError))
				}
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
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	if err := ValidateSequencing(out); err != nil {
		return nil, err
	}
	return out, nil
}

func convertUserParts(parts []compliance.ModelPart) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case compliance.PartTypeText:
			if txt := strings.TrimSpace(p.Text); txt != "" {
				blocks = append(blocks, anthropic.NewTextBlock(txt))
			}
		case compliance.PartTypeFile:
			if block, ok := convertFile(p.File); ok {
				blocks = append(blocks, block)
			}
		}
	}
	return blocks
}

func convertAssistantParts(parts []compliance.ModelPart) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case compliance.PartTypeReasoning:
			if p.Signature == "" {
				slog.Debug("Skipping unsigned thinking block")
				continue
			}
			blocks = append(blocks, anthropic.NewThinkingBlock(p.Signature, p.Text))
		case compliance.PartTypeText:
			if txt := strings.TrimSpace(p.Text); txt != "" {
				blocks = append(blocks, anthropic.NewTextBlock(txt))
			}
		case compliance.PartTypeToolCall:
			var input map[string]any
			if err := json.Unmarshal(p.Input, &input); err != nil || input == nil {
				input = map[string]any{}
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    p.ToolCallID,
					Input: input,
					Name:  p.ToolName,
				},
			})
		}
	}
	return blocks
}

func convertFile(f *chat.File) (anthropic.ContentBlockParamUnion, bool) {
	if f == nil {
		return anthropic.ContentBlockParamUnion{}, false
	}

	if strings.HasPrefix(f.URL, "http://") || strings.HasPrefix(f.URL, "https://") {
		if chat.IsImageMimeType(f.MediaType) {
			return anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: f.URL}), true
		}
		slog.Warn("Skipping remote attachment that is not an image", "media_type", f.MediaType)
		return anthropic.ContentBlockParamUnion{}, false
	}

	mediaType, data, ok := chat.SplitDataURL(f.URL)
	if !ok {
		slog.Warn("Skipping attachment with unsupported URL", "filename", f.Filename)
		return anthropic.ContentBlockParamUnion{}, false
	}
	if f.MediaType != "" {
		mediaType = f.MediaType
	}

	switch {
	case chat.IsImageMimeType(mediaType):
		return anthropic.NewImageBlock(anthropic.Base64ImageSourceParam{
			Data:      data,
			MediaType: anthropic.Base64ImageSourceMediaType(mediaType),
		}), true
	case mediaType == "application/pdf":
		return anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: data}), true
	case mediaType == "text/plain":
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			slog.Warn("Skipping undecodable text attachment", "filename", f.Filename, "error", err)
			return anthropic.ContentBlockParamUnion{}, false
		}
		return anthropic.NewDocumentBlock(anthropic.PlainTextSourceParam{Data: string(decoded)}), true
	default:
		slog.Warn("Skipping attachment with unsupported media type", "media_type", mediaType)
		return anthropic.ContentBlockParamUnion{}, false
	}
}

// ValidateSequencing checks that every assistant tool_use is answered by a
// tool_result in the next user message. It inspects the marshaled params so
// it does not depend on the SDK's union internals.
func ValidateSequencing(msgs []anthropic.MessageParam) error {
	for i := range msgs {
		m, ok := marshalToMap(msgs[i])
		if !ok || m["role"] != "assistant" {
			continue
		}

		toolUseIDs := collectIDs(contentArray(m), "tool_use", "id")
		if len(toolUseIDs) == 0 {
			continue
		}

		if i+1 >= len(msgs) {
			slog.Warn("Anthropic sequencing invalid: assistant tool_use present but no next user tool_result message", "assistant_index", i)
			return errors.New("assistant tool_use present but no subsequent user message with tool_result blocks")
		}

		next, ok := marshalToMap(msgs[i+1])
		if !ok || next["role"] != "user" {
			slog.Warn("Anthropic sequencing invalid: next message after assistant tool_use is not user", "assistant_index", i)
			return errors.New("assistant tool_use must be followed by a user message containing corresponding tool_result blocks")
		}

		toolResultIDs := collectIDs(contentArray(next), "tool_result", "tool_use_id")
		for id := range toolUseIDs {
			if _, found := toolResultIDs[id]; !found {
				slog.Warn("Anthropic sequencing invalid: missing tool_result", "assistant_index", i, "tool_use_id", id)
				return fmt.Errorf("missing tool_result for tool_use id %s in the next user message", id)
			}
		}
	}
	return nil
}

func marshalToMap(v any) (map[string]any, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if json.Unmarshal(b, &m) != nil {
		return nil, false
	}
	return m, true
}

func contentArray(m map[string]any) []any {
	if a, ok := m["content"].([]any); ok {
		return a
	}
	return nil
}

func collectIDs(content []any, blockType, idField string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, c := range content {
		if cb, ok := c.(map[string]any); ok {
			if t, _ := cb["type"].(string); t == blockType {
				if id, _ := cb[idField].(string); id != "" {
					ids[id] = struct{}{}
				}
			}
		}
	}
	return ids
}
