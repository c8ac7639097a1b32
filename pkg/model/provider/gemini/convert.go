// Package gemini encodes compliant model messages as Gemini contents.
package gemini

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/docker/turnwire/pkg/chat"
	"github.com/docker/turnwire/pkg/compliance"
)

// ConvertMessages converts model messages to Gemini contents.
//
// Tool calls become function calls on a model content and tool results
// become function responses on a user content. Consecutive contents with the
// same role are merged, since Gemini expects user and model turns to
// alternate.
func ConvertMessages(msgs []compliance.ModelMessage) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(msgs))

	for _, m := range msgs {
		var (
			role  genai.Role
			parts []*genai.Part
		)
		switch m.Role {
		case compliance.RoleUser:
			role = genai.RoleUser
			parts = convertUserParts(m.Parts)
		case compliance.RoleAssistant:
			role = genai.RoleModel
			parts = convertModelParts(m.Parts)
		case compliance.RoleTool:
			role = genai.RoleUser
			for _, p := range m.Parts {
				if p.Type != compliance.PartTypeToolResult {
					continue
				}
				key := "result"
				if p.IsError {
					key = "error"
				}
				part := genai.NewPartFromFunctionResponse(p.ToolName, map[string]any{key: p.ResultText()})
				part.FunctionResponse.ID = p.ToolCallID
				parts = append(parts, part)
			}
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}

		if len(parts) == 0 {
			continue
		}
		if n := len(contents); n > 0 && contents[n-1].Role == string(role) {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			continue
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}

	return contents, nil
}

func convertUserParts(parts []compliance.ModelPart) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case compliance.PartTypeText:
			if strings.TrimSpace(p.Text) != "" {
				out = append(out, genai.NewPartFromText(p.Text))
			}
		case compliance.PartTypeFile:
			if part := convertFile(p.File); part != nil {
				out = append(out, part)
			}
		}
	}
	return out
}

func convertModelParts(parts []compliance.ModelPart) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case compliance.PartTypeText:
			if strings.TrimSpace(p.Text) != "" {
				out = append(out, genai.NewPartFromText(p.Text))
			}
		case compliance.PartTypeToolCall:
			var args map[string]any
			if len(p.Input) > 0 {
				_ = json.Unmarshal(p.Input, &args)
			}
			fc := genai.NewPartFromFunctionCall(p.ToolName, args)
			fc.FunctionCall.ID = p.ToolCallID
			out = append(out, fc)
		}
	}
	return out
}

func convertFile(f *chat.File) *genai.Part {
	if f == nil {
		return nil
	}
	if strings.HasPrefix(f.URL, "http://") || strings.HasPrefix(f.URL, "https://") {
		return genai.NewPartFromURI(f.URL, f.MediaType)
	}

	mediaType, data, ok := chat.SplitDataURL(f.URL)
	if !ok {
		slog.Warn("Skipping attachment with unsupported URL", "filename", f.Filename)
		return nil
	}
	if f.MediaType != "" {
		mediaType = f.MediaType
	}
	if !chat.IsSupportedMimeType(mediaType) {
		slog.Warn("Skipping attachment with unsupported media type", "media_type", mediaType)
		return nil
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		slog.Warn("Skipping undecodable attachment", "filename", f.Filename, "error", err)
		return nil
	}
	return genai.NewPartFromBytes(decoded, mediaType)
}
