package provider

import (
	"fmt"
	"strings"
)

// Kind identifies a model provider family. The set is closed: code that
// dispatches on Kind covers every value returned by Kinds.
type Kind int

const (
	Anthropic Kind = iota
	OpenAI
	Google
	Bedrock

	kindCount
)

var kindNames = [kindCount]string{
	Anthropic: "anthropic",
	OpenAI:    "openai",
	Google:    "google",
	Bedrock:   "bedrock",
}

// Count is the number of known provider kinds. Tables indexed by Kind are sized with it.
const Count = int(kindCount)

// Kinds returns every known provider kind.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := range kindCount {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("provider.Kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// ParseKind maps a provider name to its Kind. "gemini" is accepted as an alias for google.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "gemini" {
		return Google, nil
	}
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown provider %q (expected one of %s)", name, strings.Join(kindNames[:], ", "))
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid provider kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
