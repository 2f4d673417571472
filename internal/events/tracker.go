// Package events tracks the current event state of one device and fans
// changes out to sinks.
package events

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/technosupport/vapix-events/internal/metrics"
	"github.com/technosupport/vapix-events/internal/vapix/event"
)

// DefaultMaxEvents bounds the tracker when no size is configured.
const DefaultMaxEvents = 1024

// Change says what a message did to the tracked state.
type Change string

const (
	ChangeAdded     Change = "added"
	ChangeUpdated   Change = "updated"
	ChangeUnchanged Change = "unchanged"
	ChangeRemoved   Change = "removed"
)

// Envelope wraps an event for delivery to sinks.
type Envelope struct {
	MessageID  uuid.UUID   `json:"message_id"`
	Device     string      `json:"device"`
	ReceivedAt time.Time   `json:"received_at"`
	Change     Change      `json:"change"`
	Event      event.Event `json:"event"`
}

// Sink receives every envelope that changed the tracked state.
type Sink interface {
	Publish(ctx context.Context, env Envelope) error
}

type namedSink struct {
	name string
	sink Sink
}

// Tracker holds the latest event per topic and id.
type Tracker struct {
	device  string
	decoder *event.Decoder
	log     *zap.Logger

	// order is held across apply and fan-out so every sink sees changes in
	// the order they were applied to the cache.
	order sync.Mutex

	mu    sync.Mutex
	cache *lru.Cache[string, event.Event]
	sinks []namedSink

	now func() time.Time
}

// NewTracker returns a tracker for device holding up to maxEvents events.
// A nil decoder uses the default registry; a nil logger discards output.
func NewTracker(device string, maxEvents int, decoder *event.Decoder, log *zap.Logger) (*Tracker, error) {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	if decoder == nil {
		decoder = event.NewDecoder(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	c, err := lru.New[string, event.Event](maxEvents)
	if err != nil {
		return nil, fmt.Errorf("tracker cache: %w", err)
	}
	return &Tracker{
		device:  device,
		decoder: decoder,
		log:     log.With(zap.String("device", device)),
		cache:   c,
		now:     time.Now,
	}, nil
}

// Device returns the device name stamped on envelopes.
func (t *Tracker) Device() string {
	return t.device
}

// Decoder returns the decoder used by Handle.
func (t *Tracker) Decoder() *event.Decoder {
	return t.decoder
}

// AddSink registers s under name. Sinks must be added before messages flow.
func (t *Tracker) AddSink(name string, s Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, namedSink{name: name, sink: s})
}

// Handle decodes one raw message and applies it. ok is false when the
// message carried no notification.
func (t *Tracker) Handle(ctx context.Context, raw []byte) (Envelope, bool) {
	ev := t.decoder.Decode(raw)
	if ev.Topic == "" {
		metrics.EventsSkippedTotal.Inc()
		return Envelope{}, false
	}
	return t.HandleEvent(ctx, ev), true
}

// HandleEvent applies an already decoded event. Calls are serialized, so a
// slow sink delays later events rather than being overtaken by them.
func (t *Tracker) HandleEvent(ctx context.Context, ev event.Event) Envelope {
	metrics.EventsDecodedTotal.WithLabelValues(ev.Type, ev.Operation.String()).Inc()
	if !ev.Supported {
		metrics.EventsUnsupportedTotal.Inc()
		t.log.Debug("unsupported topic", zap.String("topic", ev.Topic))
	}

	t.order.Lock()
	defer t.order.Unlock()

	change, sinks := t.apply(ev)
	env := Envelope{
		MessageID:  uuid.New(),
		Device:     t.device,
		ReceivedAt: t.now().UTC(),
		Change:     change,
		Event:      ev,
	}
	if change != ChangeUnchanged {
		t.publish(ctx, sinks, env)
	}
	return env
}

func (t *Tracker) apply(ev event.Event) (Change, []namedSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	defer func() { metrics.EventsTracked.Set(float64(t.cache.Len())) }()

	key := ev.Key()
	if ev.Operation == event.OperationRemoved {
		// Reported even when the entry was already evicted so downstream
		// stores can drop it too.
		t.cache.Remove(key)
		return ChangeRemoved, t.sinks
	}

	prev, ok := t.cache.Peek(key)
	t.cache.Add(key, ev)
	switch {
	case !ok:
		return ChangeAdded, t.sinks
	case prev.State != ev.State || prev.IsTripped != ev.IsTripped:
		return ChangeUpdated, t.sinks
	default:
		return ChangeUnchanged, t.sinks
	}
}

func (t *Tracker) publish(ctx context.Context, sinks []namedSink, env Envelope) {
	for _, s := range sinks {
		if err := s.sink.Publish(ctx, env); err != nil {
			metrics.SinkPublishTotal.WithLabelValues(s.name, "fail").Inc()
			t.log.Warn("sink publish failed",
				zap.String("sink", s.name),
				zap.String("key", env.Event.Key()),
				zap.Error(err))
			continue
		}
		metrics.SinkPublishTotal.WithLabelValues(s.name, "success").Inc()
	}
}

// Restore seeds the tracker with previously stored events without notifying
// sinks.
func (t *Tracker) Restore(evs []event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ev := range evs {
		t.cache.Add(ev.Key(), ev)
	}
	metrics.EventsTracked.Set(float64(t.cache.Len()))
}

// Get returns the tracked event for topic and id.
func (t *Tracker) Get(topic, id string) (event.Event, bool) {
	return t.cache.Peek(event.Event{Topic: topic, ID: id}.Key())
}

// Snapshot returns the tracked events sorted by key.
func (t *Tracker) Snapshot() []event.Event {
	out := t.cache.Values()
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
