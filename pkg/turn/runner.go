package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/docker/turnwire/pkg/compliance"
	"github.com/docker/turnwire/pkg/model/provider"
	"github.com/docker/turnwire/pkg/retry"
	"github.com/docker/turnwire/pkg/stream"
)

// ErrAttemptsExhausted is returned by Run when the stream kept failing past
// the configured number of retries.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted, manual retry required")

// Transport streams one model response.
//
// Stream sends msgs to the provider and calls emit for every event it
// decodes, from the calling goroutine, before returning. A nil error means
// the stream ended normally.
type Transport interface {
	Stream(ctx context.Context, kind provider.Kind, msgs []compliance.ModelMessage, emit func(stream.Event)) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, kind provider.Kind, msgs []compliance.ModelMessage, emit func(stream.Event)) error

func (f TransportFunc) Stream(ctx context.Context, kind provider.Kind, msgs []compliance.ModelMessage, emit func(stream.Event)) error {
	return f(ctx, kind, msgs, emit)
}

// Runner runs turns of a conversation against a transport, retrying failed
// streams with exponential backoff.
type Runner struct {
	Builder   *Builder
	Transport Transport
	Options   Options
	// MaxAttempts caps the number of automatic retries. Zero retries forever.
	MaxAttempts int

	tracer trace.Tracer
}

type RunnerOpt func(*Runner)

func WithMaxAttempts(n int) RunnerOpt {
	return func(r *Runner) {
		r.MaxAttempts = n
	}
}

func NewRunner(b *Builder, t Transport, opts Options, runnerOpts ...RunnerOpt) *Runner {
	r := &Runner{
		Builder:   b,
		Transport: t,
		Options:   opts,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range runnerOpts {
		opt(r)
	}
	return r
}

// Run streams one turn of conv. Every attempt rebuilds the request from the
// conversation log, so an interrupted response is sent back as partial
// context followed by the continue sentinel.
//
// Run returns nil once a stream completes, the first non-retryable error,
// ErrAttemptsExhausted, or the context error.
func (r *Runner) Run(ctx context.Context, conv *Conversation) error {
	ctx, span := r.startSpan(ctx, "turn.run", trace.WithAttributes(
		attribute.String("conversation.id", conv.ID),
		attribute.String("provider", r.Options.Provider.String()),
	))
	defer span.End()

	for {
		err := r.attempt(ctx, conv)
		if err == nil {
			span.SetStatus(codes.Ok, "stream completed")
			return nil
		}

		for _, id := range conv.Aggregator.ActiveStreams() {
			conv.Aggregator.HandleStreamAbort(stream.StreamAbort(id, err.Error()))
		}

		streamErr := retry.Classify(err)
		if !streamErr.Retryable {
			slog.Error("Stream failed", "conversation_id", conv.ID, "kind", streamErr.Kind, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, string(streamErr.Kind))
			return err
		}

		state := conv.Coordinator.StreamFailed(err)
		span.AddEvent("stream.failed", trace.WithAttributes(
			attribute.Int("attempt", state.Attempt),
			attribute.String("error.kind", string(streamErr.Kind)),
		))
		if r.MaxAttempts > 0 && state.Attempt > r.MaxAttempts {
			slog.Error("Giving up on stream", "conversation_id", conv.ID, "attempts", r.MaxAttempts, "error", err)
			span.SetStatus(codes.Error, "attempts exhausted")
			return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, r.MaxAttempts, err)
		}

		slog.Info("Retrying stream",
			"conversation_id", conv.ID,
			"attempt", state.Attempt,
			"retry_in", conv.Coordinator.Remaining(),
			"error", streamErr.Message)

		if err := conv.Coordinator.Wait(ctx); err != nil {
			if errors.Is(err, retry.ErrSuperseded) {
				slog.Debug("Pending retry superseded", "conversation_id", conv.ID)
				continue
			}
			span.SetStatus(codes.Error, "canceled")
			return err
		}
	}
}

func (r *Runner) attempt(ctx context.Context, conv *Conversation) error {
	msgs, err := r.Builder.Build(ctx, conv.Aggregator.GetAllMessages(), r.Options)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	started := false
	emit := func(ev stream.Event) {
		if _, ok := ev.(*stream.StreamStartEvent); ok && !started {
			started = true
			conv.Coordinator.StreamStarted()
		}
		conv.Aggregator.HandleEvent(ev)
	}

	return r.Transport.Stream(ctx, r.Options.Provider, msgs, emit)
}

func (r *Runner) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if r.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return r.tracer.Start(ctx, name, opts...)
}
