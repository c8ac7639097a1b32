package compliance

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/docker/turnwire/pkg/chat"
)

// ContinueSentinel is the text of the message inserted after an interrupted
// assistant message.
const ContinueSentinel = "[CONTINUE]"

// AddInterruptedSentinel inserts a synthetic user message after every partial
// assistant message, unless the next message is already a user message. The
// sentinel copies the partial message's timestamp and history sequence.
func AddInterruptedSentinel(msgs []*chat.Message) []*chat.Message {
	out := make([]*chat.Message, 0, len(msgs))
	for i, msg := range msgs {
		out = append(out, msg)
		if msg == nil || msg.Role != chat.MessageRoleAssistant || !msg.Metadata.Partial {
			continue
		}
		if i+1 < len(msgs) && msgs[i+1] != nil && msgs[i+1].Role == chat.MessageRoleUser {
			continue
		}
		// Transient: built per request and never stored, so sharing the
		// partial message's sequence is harmless.
		out = append(out, &chat.Message{
			ID:    "interrupted-" + msg.ID,
			Role:  chat.MessageRoleUser,
			Parts: []chat.Part{chat.NewTextPart(ContinueSentinel)},
			Metadata: chat.Metadata{
				HistorySequence: msg.Metadata.HistorySequence,
				Timestamp:       msg.Metadata.Timestamp,
				Synthetic:       true,
			},
		})
	}
	return out
}

// ModeTransitionText is the content of the message announcing a mode change.
func ModeTransitionText(previous, current string, tools []string) string {
	text := fmt.Sprintf("[Mode switched from %s to %s. Follow %s mode instructions.", previous, current, current)
	if len(tools) > 0 {
		text += " Available tools: " + strings.Join(tools, ", ") + "."
	}
	return text + "]"
}

// InjectModeTransition inserts a synthetic user message announcing a mode
// change right before the final user message, when currentMode differs from
// the mode of the most recent assistant message. The final user message may
// sit before that assistant message. The input is returned as is when there
// is no previous assistant, no user message, no mode on either side, or no
// change.
func InjectModeTransition(msgs []*chat.Message, currentMode string, availableTools []string) []*chat.Message {
	lastAssistant, lastUser := -1, -1
	for i, msg := range msgs {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case chat.MessageRoleAssistant:
			lastAssistant = i
		case chat.MessageRoleUser:
			lastUser = i
		}
	}

	if lastAssistant < 0 || lastUser < 0 || currentMode == "" {
		return msgs
	}
	previous := msgs[lastAssistant].Metadata.Mode
	if previous == "" || previous == currentMode {
		return msgs
	}

	anchor := msgs[lastUser]
	transition := &chat.Message{
		ID:    "mode-transition-" + uuid.NewString(),
		Role:  chat.MessageRoleUser,
		Parts: []chat.Part{chat.NewTextPart(ModeTransitionText(previous, currentMode, availableTools))},
		Metadata: chat.Metadata{
			HistorySequence: anchor.Metadata.HistorySequence,
			Timestamp:       anchor.Metadata.Timestamp,
			Mode:            currentMode,
			Synthetic:       true,
		},
	}

	out := make([]*chat.Message, 0, len(msgs)+1)
	out = append(out, msgs[:lastUser]...)
	out = append(out, transition)
	return append(out, msgs[lastUser:]...)
}
