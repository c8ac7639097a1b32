package stream

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/docker/turnwire/pkg/chat"
)

// Aggregator assembles transport events into the canonical message log of
// one conversation.
//
// It is not safe for concurrent use. Every method runs to completion before
// the next event is applied; a host with several goroutines must confine an
// Aggregator to a single owner.
type Aggregator struct {
	messages  *orderedmap.OrderedMap[string, *chat.Message]
	streaming map[string]bool
	init      *InitMessage

	// generation is bumped by every mutation. The display cache is valid
	// while cachedGeneration matches it.
	generation       uint64
	cachedGeneration uint64
	displayed        []*DisplayedMessage
	units            map[string]projection
	initUnit         *DisplayedMessage
	initUnitSource   *InitMessage
}

type projection struct {
	msg       *chat.Message
	streaming bool
	units     []*DisplayedMessage
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		messages:   orderedmap.New[string, *chat.Message](),
		streaming:  make(map[string]bool),
		units:      make(map[string]projection),
		generation: 1,
	}
}

func (a *Aggregator) invalidate() {
	a.generation++
}

func (a *Aggregator) put(msg *chat.Message) {
	a.messages.Set(msg.ID, msg)
	a.invalidate()
}

// openMessage returns the message for a delta-like event, or nil if the
// event must be dropped.
func (a *Aggregator) openMessage(messageID, eventType string) *chat.Message {
	msg, ok := a.messages.Get(messageID)
	if !ok {
		slog.Warn("Dropping event for unknown message", "type", eventType, "message_id", messageID)
		return nil
	}
	if !a.streaming[messageID] {
		slog.Warn("Dropping event for message that is not streaming", "type", eventType, "message_id", messageID)
		return nil
	}
	return msg
}

// HandleStreamStart creates or reopens an assistant message at the given
// history sequence.
func (a *Aggregator) HandleStreamStart(ev *StreamStartEvent) {
	md := chat.Metadata{
		HistorySequence: ev.HistorySequence,
		Timestamp:       ev.Timestamp,
		Model:           ev.Model,
		Mode:            ev.Mode,
	}
	if md.Timestamp.IsZero() {
		md.Timestamp = time.Now()
	}

	msg := &chat.Message{ID: ev.MessageID, Role: chat.MessageRoleAssistant, Metadata: md}
	if existing, ok := a.messages.Get(ev.MessageID); ok {
		msg = existing.WithMetadata(md)
	}

	slog.Debug("Stream started", "message_id", ev.MessageID, "model", ev.Model, "history_sequence", ev.HistorySequence)
	a.streaming[ev.MessageID] = true
	a.put(msg)
}

// HandleStreamDelta appends a discrete text part. Deltas are not merged here.
func (a *Aggregator) HandleStreamDelta(ev *StreamDeltaEvent) {
	msg := a.openMessage(ev.MessageID, ev.EventType())
	if msg == nil {
		return
	}
	a.put(msg.AppendPart(chat.NewTextPart(ev.Text)))
}

// HandleReasoningDelta appends a discrete reasoning part.
func (a *Aggregator) HandleReasoningDelta(ev *ReasoningDeltaEvent) {
	msg := a.openMessage(ev.MessageID, ev.EventType())
	if msg == nil {
		return
	}
	p := chat.NewReasoningPart(ev.Text)
	p.Signature = ev.Signature
	a.put(msg.AppendPart(p))
}

// HandleToolCallStart appends a pending tool invocation at its arrival
// position, between whatever text parts surround it.
func (a *Aggregator) HandleToolCallStart(ev *ToolCallStartEvent) {
	msg := a.openMessage(ev.MessageID, ev.EventType())
	if msg == nil {
		return
	}
	if msg.FindToolInvocation(ev.ToolCallID) >= 0 {
		slog.Warn("Dropping duplicate tool call", "message_id", ev.MessageID, "tool_call_id", ev.ToolCallID)
		return
	}
	a.put(msg.AppendPart(chat.NewToolInvocationPart(ev.ToolCallID, ev.ToolName, ev.Args)))
}

// HandleToolCallEnd resolves the matching tool invocation in place. Results
// are accepted after the stream ended, since tools may finish later than the
// model.
func (a *Aggregator) HandleToolCallEnd(ev *ToolCallEndEvent) {
	msg, ok := a.messages.Get(ev.MessageID)
	if !ok {
		slog.Warn("Dropping tool result for unknown message", "message_id", ev.MessageID, "tool_call_id", ev.ToolCallID)
		return
	}

	idx := msg.FindToolInvocation(ev.ToolCallID)
	if idx < 0 {
		slog.Warn("Dropping tool result for unknown tool call", "message_id", ev.MessageID, "tool_call_id", ev.ToolCallID)
		return
	}

	resolved, ok := msg.Parts[idx].Resolve(ev.Result, ev.IsError)
	if !ok {
		slog.Warn("Ignoring result for already resolved tool call", "message_id", ev.MessageID, "tool_call_id", ev.ToolCallID)
		return
	}

	parts := slices.Clone(msg.Parts)
	parts[idx] = resolved
	a.put(msg.WithParts(parts))
}

// HandleStreamEnd replaces the accumulated parts with the authoritative final
// set. The message keeps its position; an unknown id creates the message.
func (a *Aggregator) HandleStreamEnd(ev *StreamEndEvent) {
	msg, ok := a.messages.Get(ev.MessageID)
	if !ok {
		msg = &chat.Message{ID: ev.MessageID, Role: chat.MessageRoleAssistant, Metadata: ev.Metadata}
	}

	md := mergeMetadata(msg.Metadata, ev.Metadata)
	// The stream ended normally, so whatever partial flag a previous abort left is stale.
	md.Partial = ev.Metadata.Partial

	final := msg.WithMetadata(md).WithParts(clonedParts(ev.Parts))
	delete(a.streaming, ev.MessageID)
	slog.Debug("Stream ended", "message_id", ev.MessageID, "parts", len(final.Parts))
	a.put(final)
}

// HandleStreamAbort marks an interrupted message as partial.
func (a *Aggregator) HandleStreamAbort(ev *StreamAbortEvent) {
	msg, ok := a.messages.Get(ev.MessageID)
	if !ok {
		slog.Warn("Dropping abort for unknown message", "message_id", ev.MessageID)
		return
	}

	md := msg.Metadata
	md.Partial = true
	md.Error = ev.Error
	delete(a.streaming, ev.MessageID)
	slog.Debug("Stream aborted", "message_id", ev.MessageID, "error", ev.Error)
	a.put(msg.WithMetadata(md))
}

// HandleDeleteMessage removes every message with one of the given sequences.
func (a *Aggregator) HandleDeleteMessage(ev *DeleteMessageEvent) {
	var ids []string
	for pair := a.messages.Oldest(); pair != nil; pair = pair.Next() {
		if slices.Contains(ev.HistorySequences, pair.Value.Metadata.HistorySequence) {
			ids = append(ids, pair.Key)
		}
	}
	for _, id := range ids {
		a.messages.Delete(id)
		delete(a.streaming, id)
	}
	if len(ids) > 0 {
		a.invalidate()
	}
}

// HandleMessage ingests an already formed message.
func (a *Aggregator) HandleMessage(ev *MessageEvent) {
	msg := ev.Message
	a.AddMessage(&msg)
}

// AddMessage stores msg as given. Its history sequence is trusted; a message
// with the same id is replaced.
func (a *Aggregator) AddMessage(msg *chat.Message) {
	if msg == nil || msg.ID == "" {
		slog.Warn("Ignoring message without id")
		return
	}
	delete(a.streaming, msg.ID)
	a.put(msg.Clone())
}

// LoadHistoricalMessages ingests a batch of already formed messages.
func (a *Aggregator) LoadHistoricalMessages(msgs []*chat.Message) {
	for _, msg := range msgs {
		if msg == nil || msg.ID == "" {
			continue
		}
		delete(a.streaming, msg.ID)
		a.messages.Set(msg.ID, msg.Clone())
	}
	a.invalidate()
}

func (a *Aggregator) HandleInitStart(ev *InitStartEvent) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	a.init = &InitMessage{
		HookPath:  ev.HookPath,
		Status:    InitStatusRunning,
		Lines:     []string{},
		Timestamp: ts,
	}
	a.invalidate()
}

func (a *Aggregator) HandleInitOutput(ev *InitOutputEvent) {
	if a.init == nil {
		slog.Warn("Dropping init output without init start")
		return
	}
	a.init = a.init.withLine(ev.Line)
	a.invalidate()
}

func (a *Aggregator) HandleInitEnd(ev *InitEndEvent) {
	if a.init == nil {
		slog.Warn("Dropping init end without init start")
		return
	}
	a.init = a.init.finished(ev.ExitCode)
	a.invalidate()
}

// Init returns the current init hook state, or nil.
func (a *Aggregator) Init() *InitMessage {
	return a.init
}

// HandleEvent applies any transport event.
func (a *Aggregator) HandleEvent(ev Event) {
	switch e := ev.(type) {
	case *StreamStartEvent:
		a.HandleStreamStart(e)
	case *StreamDeltaEvent:
		a.HandleStreamDelta(e)
	case *ReasoningDeltaEvent:
		a.HandleReasoningDelta(e)
	case *ToolCallStartEvent:
		a.HandleToolCallStart(e)
	case *ToolCallEndEvent:
		a.HandleToolCallEnd(e)
	case *StreamEndEvent:
		a.HandleStreamEnd(e)
	case *StreamAbortEvent:
		a.HandleStreamAbort(e)
	case *MessageEvent:
		a.HandleMessage(e)
	case *DeleteMessageEvent:
		a.HandleDeleteMessage(e)
	case *InitStartEvent:
		a.HandleInitStart(e)
	case *InitOutputEvent:
		a.HandleInitOutput(e)
	case *InitEndEvent:
		a.HandleInitEnd(e)
	default:
		slog.Warn("Ignoring unsupported event", "type", ev.EventType())
	}
}

// Message returns the canonical message with the given id.
func (a *Aggregator) Message(id string) (*chat.Message, bool) {
	return a.messages.Get(id)
}

// Len returns the number of canonical messages.
func (a *Aggregator) Len() int {
	return a.messages.Len()
}

// IsStreaming reports whether the message is open for deltas.
func (a *Aggregator) IsStreaming(id string) bool {
	return a.streaming[id]
}

// ActiveStreams returns the ids of open messages in history order.
func (a *Aggregator) ActiveStreams() []string {
	var ids []string
	for _, msg := range a.GetAllMessages() {
		if a.streaming[msg.ID] {
			ids = append(ids, msg.ID)
		}
	}
	return ids
}

// GetAllMessages returns the canonical log ordered by history sequence.
// Ties keep arrival order; they are a caller error and are not repaired.
func (a *Aggregator) GetAllMessages() []*chat.Message {
	msgs := make([]*chat.Message, 0, a.messages.Len())
	for pair := a.messages.Oldest(); pair != nil; pair = pair.Next() {
		msgs = append(msgs, pair.Value)
	}
	slices.SortStableFunc(msgs, func(x, y *chat.Message) int {
		return cmp.Compare(x.Metadata.HistorySequence, y.Metadata.HistorySequence)
	})
	return msgs
}

// GetDisplayedMessages returns the display projection of the log.
//
// The returned slice is the same one as the previous call when nothing was
// mutated in between. After a mutation a new slice is built; units of
// messages that did not change keep their identity, units of changed
// messages are freshly allocated.
func (a *Aggregator) GetDisplayedMessages() []*DisplayedMessage {
	if a.displayed != nil && a.cachedGeneration == a.generation {
		return a.displayed
	}

	displayed := make([]*DisplayedMessage, 0, a.messages.Len()+1)

	if a.init != nil {
		if a.initUnitSource != a.init {
			a.initUnit = projectInit(a.init)
			a.initUnitSource = a.init
		}
		displayed = append(displayed, a.initUnit)
	} else {
		a.initUnit, a.initUnitSource = nil, nil
	}

	units := make(map[string]projection, a.messages.Len())
	for _, msg := range a.GetAllMessages() {
		streaming := a.streaming[msg.ID]
		p, ok := a.units[msg.ID]
		if !ok || p.msg != msg || p.streaming != streaming {
			p = projection{msg: msg, streaming: streaming, units: projectMessage(msg, streaming)}
		}
		units[msg.ID] = p
		displayed = append(displayed, p.units...)
	}

	a.units = units
	a.displayed = displayed
	a.cachedGeneration = a.generation
	return displayed
}

func mergeMetadata(base, update chat.Metadata) chat.Metadata {
	md := base
	if update.HistorySequence != 0 {
		md.HistorySequence = update.HistorySequence
	}
	if !update.Timestamp.IsZero() {
		md.Timestamp = update.Timestamp
	}
	if update.Model != "" {
		md.Model = update.Model
	}
	if update.Mode != "" {
		md.Mode = update.Mode
	}
	if update.Error != "" {
		md.Error = update.Error
	}
	md.Partial = md.Partial || update.Partial
	md.Synthetic = md.Synthetic || update.Synthetic
	md.Compacted = md.Compacted || update.Compacted
	return md
}

func clonedParts(parts []chat.Part) []chat.Part {
	out := make([]chat.Part, len(parts))
	for i := range parts {
		out[i] = parts[i].Clone()
	}
	return out
}
