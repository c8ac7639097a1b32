package compliance

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrComplianceViolation matches every *Violation.
var ErrComplianceViolation = errors.New("compliance violation")

// Violation reports where a message sequence breaks the tool adjacency rules.
type Violation struct {
	MessageIndex int
	OffendingIDs []string
	Reason       string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("compliance violation at message %d: %s [%s]", v.MessageIndex, v.Reason, strings.Join(v.OffendingIDs, ", "))
}

func (v *Violation) Is(target error) bool {
	return target == ErrComplianceViolation
}

func violation(index int, reason string, ids []string) *Violation {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	return &Violation{MessageIndex: index, OffendingIDs: ids, Reason: reason}
}

// Validate checks that every tool call is answered by the immediately next
// message, and that every tool result answers a pending call. It returns nil
// or a *Violation.
func Validate(msgs []ModelMessage) error {
	var (
		pending   []string
		pendingAt int
	)

	for i, m := range msgs {
		switch m.Role {
		case RoleTool:
			results := m.ToolResultIDs()
			if len(pending) == 0 {
				return violation(i, "tool results without preceding tool calls", results)
			}
			if slices.Contains(results, "") {
				return violation(i, "tool result without id", results)
			}
			if orphans := difference(results, pending); len(orphans) > 0 {
				return violation(i, "tool results do not match any pending call", orphans)
			}
			if missing := difference(pending, results); len(missing) > 0 {
				return violation(pendingAt, "tool calls not resolved by the next message", missing)
			}
			if dups := duplicates(results); len(dups) > 0 {
				return violation(i, "duplicate tool results", dups)
			}
			pending = nil

		default:
			if len(pending) > 0 {
				return violation(pendingAt, "tool calls not followed by their results", pending)
			}
			if m.Role != RoleAssistant {
				continue
			}
			calls := m.ToolCallIDs()
			if slices.Contains(calls, "") {
				return violation(i, "tool call without id", calls)
			}
			if dups := duplicates(calls); len(dups) > 0 {
				return violation(i, "duplicate tool calls", dups)
			}
			pending, pendingAt = calls, i
		}
	}

	if len(pending) > 0 {
		return violation(pendingAt, "tool calls left unresolved at end of conversation", pending)
	}
	return nil
}

// difference returns the ids in a that are not in b, in a's order.
func difference(a, b []string) []string {
	var out []string
	for _, id := range a {
		if !slices.Contains(b, id) {
			out = append(out, id)
		}
	}
	return out
}

func duplicates(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if seen[id] {
			out = append(out, id)
		}
		seen[id] = true
	}
	return out
}
