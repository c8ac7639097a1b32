package turn

import (
	"encoding/json"
	"fmt"

	"github.com/docker/turnwire/pkg/compliance"
	"github.com/docker/turnwire/pkg/model/provider"
	"github.com/docker/turnwire/pkg/model/provider/anthropic"
	"github.com/docker/turnwire/pkg/model/provider/bedrock"
	"github.com/docker/turnwire/pkg/model/provider/gemini"
	"github.com/docker/turnwire/pkg/model/provider/openai"
)

// Encode converts compliant model messages to the request message params of
// the provider's SDK.
func Encode(kind provider.Kind, msgs []compliance.ModelMessage) (any, error) {
	switch kind {
	case provider.Anthropic:
		return anthropic.ConvertMessages(msgs)
	case provider.OpenAI:
		return openai.ConvertMessages(msgs)
	case provider.Google:
		return gemini.ConvertMessages(msgs)
	case provider.Bedrock:
		return bedrock.ConvertMessages(msgs)
	default:
		return nil, fmt.Errorf("unsupported provider kind %s", kind)
	}
}

// EncodePayload is Encode followed by JSON marshaling.
func EncodePayload(kind provider.Kind, msgs []compliance.ModelMessage) ([]byte, error) {
	params, err := Encode(kind, msgs)
	if err != nil {
		return nil, fmt.Errorf("encoding %s messages: %w", kind, err)
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s messages: %w", kind, err)
	}
	return data, nil
}
