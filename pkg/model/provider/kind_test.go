package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected Kind
	}{
		{"anthropic", Anthropic},
		{"OpenAI", OpenAI},
		{" google ", Google},
		{"gemini", Google},
		{"bedrock", Bedrock},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			k, err := ParseKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, k)
		})
	}

	_, err := ParseKind("dmr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic, openai, google, bedrock")
}

func TestKindsAreNamed(t *testing.T) {
	t.Parallel()

	kinds := Kinds()
	assert.Len(t, kinds, Count)
	for _, k := range kinds {
		assert.True(t, k.Valid())
		assert.NotEmpty(t, k.String())

		text, err := k.MarshalText()
		require.NoError(t, err)

		var back Kind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}

	assert.False(t, Kind(-1).Valid())
	assert.False(t, Kind(Count).Valid())
	assert.Equal(t, "provider.Kind(9)", Kind(9).String())
}
