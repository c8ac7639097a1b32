package turn

import (
	"github.com/docker/turnwire/pkg/concurrent"
	"github.com/docker/turnwire/pkg/retry"
)

// Registry holds the conversations of a process, keyed by id. It is safe for
// concurrent use; each Conversation it hands out is not.
type Registry struct {
	conversations *concurrent.Map[string, *Conversation]
	retryOpts     []retry.Opt
}

// NewRegistry creates an empty registry. opts configure the retry
// coordinator of every conversation it creates.
func NewRegistry(opts ...retry.Opt) *Registry {
	return &Registry{
		conversations: concurrent.NewMap[string, *Conversation](),
		retryOpts:     opts,
	}
}

func (r *Registry) Get(id string) (*Conversation, bool) {
	return r.conversations.Load(id)
}

// GetOrCreate returns the conversation with the given id, creating it if
// needed. The boolean reports whether it already existed.
func (r *Registry) GetOrCreate(id string) (*Conversation, bool) {
	return r.conversations.LoadOrCompute(id, func() *Conversation {
		return NewConversation(id, r.retryOpts...)
	})
}

func (r *Registry) Delete(id string) {
	r.conversations.Delete(id)
}

func (r *Registry) Len() int {
	return r.conversations.Length()
}

// Range calls f for every conversation until f returns false.
func (r *Registry) Range(f func(id string, conv *Conversation) bool) {
	r.conversations.Range(f)
}
