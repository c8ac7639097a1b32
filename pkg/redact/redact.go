// Package redact shrinks tool outputs before they are sent back to a model.
//
// Redaction only ever applies to the outbound request. Persisted and displayed
// history keep the full output.
package redact

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/docker/turnwire/pkg/chat"
)

// Func rewrites one tool output. Implementations return the input unchanged
// when they do not recognise its shape.
type Func func(output chat.ToolOutput) chat.ToolOutput

// Registry maps tool names to redaction functions.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Default returns a registry with the built-in redactors installed.
func Default() *Registry {
	r := NewRegistry()
	for _, name := range FileEditTools {
		r.Register(name, RedactFileEdit)
	}
	return r
}

// Register installs fn for toolName, replacing any previous entry.
func (r *Registry) Register(toolName string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[toolName] = fn
}

// Unregister removes the redactor for toolName, if any.
func (r *Registry) Unregister(toolName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.funcs, toolName)
}

// Has reports whether toolName has a redactor.
func (r *Registry) Has(toolName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[toolName]
	return ok
}

// Redact applies the redactor registered for toolName. Unregistered tools and
// redactors that panic leave the output untouched.
func (r *Registry) Redact(toolName string, output chat.ToolOutput) (result chat.ToolOutput) {
	if r == nil {
		return output
	}
	r.mu.RLock()
	fn, ok := r.funcs[toolName]
	r.mu.RUnlock()
	if !ok {
		return output
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Warn("Redactor panicked, passing output through", "tool", toolName, "panic", fmt.Sprint(p))
			result = output
		}
	}()
	return fn(output.Clone())
}
