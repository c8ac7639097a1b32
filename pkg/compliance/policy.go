package compliance

import (
	"fmt"

	"github.com/docker/turnwire/pkg/model/provider"
)

// Policy is a provider's content rule for assistant messages.
type Policy struct {
	Name string
	// StripReasoning removes reasoning parts before the emptiness check. Set
	// for providers whose reasoning representation is incompatible with ours.
	StripReasoning bool
}

// policies holds one entry per provider.Kind. A missing entry is a zero
// Policy, which checkPolicies rejects at init.
var policies = [provider.Count]Policy{
	provider.Anthropic: {Name: "anthropic"},
	provider.OpenAI:    {Name: "openai", StripReasoning: true},
	provider.Google:    {Name: "google", StripReasoning: true},
	provider.Bedrock:   {Name: "bedrock", StripReasoning: true},
}

func init() {
	if err := checkPolicies(); err != nil {
		panic(err)
	}
}

func checkPolicies() error {
	for _, k := range provider.Kinds() {
		if policies[k].Name == "" {
			return fmt.Errorf("no content policy for provider %s", k)
		}
	}
	return nil
}

// PolicyFor returns the content policy of kind. An invalid kind gets the
// strictest policy.
func PolicyFor(kind provider.Kind) Policy {
	if !kind.Valid() {
		return Policy{Name: kind.String(), StripReasoning: true}
	}
	return policies[kind]
}

// Apply filters one assistant message. It returns false when nothing
// sendable is left: no parts at all, or only reasoning.
func (p Policy) Apply(m ModelMessage) (ModelMessage, bool) {
	if m.Role != RoleAssistant {
		return m, true
	}

	parts := make([]ModelPart, 0, len(m.Parts))
	for _, part := range m.Parts {
		if part.IsBlankText() {
			continue
		}
		if p.StripReasoning && part.Type == PartTypeReasoning {
			continue
		}
		parts = append(parts, part)
	}

	substantive := false
	for _, part := range parts {
		if part.Type != PartTypeReasoning {
			substantive = true
			break
		}
	}
	if !substantive {
		return ModelMessage{}, false
	}

	m.Parts = parts
	return m, true
}
