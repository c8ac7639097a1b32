package turn

import (
	"github.com/google/uuid"

	"github.com/docker/turnwire/pkg/retry"
	"github.com/docker/turnwire/pkg/stream"
)

// Conversation owns the state of one conversation: its canonical log and its
// retry state. A Conversation is driven by a single goroutine at a time.
type Conversation struct {
	ID          string
	Aggregator  *stream.Aggregator
	Coordinator *retry.Coordinator
}

// NewConversation creates a conversation. An empty id gets a random one.
func NewConversation(id string, opts ...retry.Opt) *Conversation {
	if id == "" {
		id = uuid.NewString()
	}
	return &Conversation{
		ID:          id,
		Aggregator:  stream.NewAggregator(),
		Coordinator: retry.NewCoordinator(opts...),
	}
}
