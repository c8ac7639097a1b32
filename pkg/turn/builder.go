// Package turn drives one conversation turn: it builds a compliant provider
// request from the canonical log and runs the stream under the retry
// coordinator.
package turn

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/docker/turnwire/pkg/chat"
	"github.com/docker/turnwire/pkg/compliance"
	"github.com/docker/turnwire/pkg/model/provider"
	"github.com/docker/turnwire/pkg/redact"
)

const tracerName = "github.com/docker/turnwire/pkg/turn"

// Options describe the request being built.
type Options struct {
	Provider provider.Kind
	// Mode is the agent mode of the turn. An empty mode disables the
	// mode-transition notice.
	Mode string
	// Tools are the tool names available in Mode.
	Tools []string
}

// Builder turns a canonical conversation log into the model messages of the
// next request.
type Builder struct {
	// Redactor shrinks tool outputs before they are sent. Nil sends outputs
	// unchanged.
	Redactor *redact.Registry

	tracer trace.Tracer
}

func NewBuilder(r *redact.Registry) *Builder {
	return &Builder{
		Redactor: r,
		tracer:   otel.Tracer(tracerName),
	}
}

// Build returns the compliant model messages for msgs. The output always
// passes compliance.Validate; a violation is a bug in the transformer and is
// returned rather than sent.
func (b *Builder) Build(ctx context.Context, msgs []*chat.Message, opts Options) ([]compliance.ModelMessage, error) {
	_, span := b.startSpan(ctx, "turn.build", trace.WithAttributes(
		attribute.String("provider", opts.Provider.String()),
		attribute.String("mode", opts.Mode),
		attribute.Int("messages.in", len(msgs)),
	))
	defer span.End()

	history := compliance.AddInterruptedSentinel(msgs)
	history = compliance.InjectModeTransition(history, opts.Mode, opts.Tools)

	modelMsgs := compliance.ToModelMessages(history, b.Redactor)
	out := compliance.Transform(modelMsgs, opts.Provider)

	span.SetAttributes(
		attribute.Int("messages.canonical", len(history)),
		attribute.Int("messages.out", len(out)),
		attribute.Int("tool_calls.dropped", countParts(modelMsgs, compliance.PartTypeToolCall)-countParts(out, compliance.PartTypeToolCall)),
	)

	if err := compliance.Validate(out); err != nil {
		var v *compliance.Violation
		if errors.As(err, &v) {
			slog.Error("Built request violates provider constraints",
				"provider", opts.Provider,
				"message_index", v.MessageIndex,
				"ids", v.OffendingIDs,
				"reason", v.Reason)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "compliance violation")
		return nil, err
	}

	slog.Debug("Built request", "provider", opts.Provider, "canonical", len(history), "messages", len(out))
	span.SetStatus(codes.Ok, "request built")
	return out, nil
}

func (b *Builder) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if b.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return b.tracer.Start(ctx, name, opts...)
}

func countParts(msgs []compliance.ModelMessage, t compliance.PartType) int {
	n := 0
	for _, m := range msgs {
		for _, p := range m.Parts {
			if p.Type == t {
				n++
			}
		}
	}
	return n
}
