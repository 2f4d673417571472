// Package event decodes VAPIX/ONVIF event notifications into normalized
// event records.
//
// Decoding happens in two steps. Parse turns a raw XML message into a
// family-agnostic Notification. DecodeNotification classifies a Notification
// against a Registry of event families and derives identity and state.
// Decode runs both. None of them fail: undecodable input yields empty
// records and unknown topics yield best-effort events with Supported unset.
package event

import (
	"strings"
	"time"
)

// Event is the normalized record for one notification.
type Event struct {
	Operation Operation `json:"operation"`
	Topic     string    `json:"topic"`
	Source    string    `json:"source"`
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	State     string    `json:"state"`
	IsTripped bool      `json:"is_tripped"`
	Time      time.Time `json:"utc_time,omitzero"`
	Supported bool      `json:"supported"`
}

// Key identifies the signal an event belongs to across messages.
func (e Event) Key() string {
	return e.Topic + "|" + e.ID
}

// Decoder classifies notifications against a registry.
type Decoder struct {
	registry *Registry
}

// NewDecoder returns a decoder using r, or DefaultRegistry when r is nil.
func NewDecoder(r *Registry) *Decoder {
	if r == nil {
		r = DefaultRegistry
	}
	return &Decoder{registry: r}
}

// Registry returns the registry the decoder classifies against.
func (d *Decoder) Registry() *Registry {
	return d.registry
}

// Decode parses raw and classifies the result.
func (d *Decoder) Decode(raw []byte) Event {
	return d.DecodeNotification(Parse(raw))
}

// DecodeNotification classifies an already parsed notification.
func (d *Decoder) DecodeNotification(n Notification) Event {
	ev := Event{
		Operation: n.Operation,
		Topic:     n.Topic,
		Time:      n.Time,
	}

	family, ok := d.registry.Match(n.Topic, n.Sources)
	ev.Supported = ok

	switch {
	case ok && family.IDSource == TopicTail:
		_, ev.ID, _ = splitTail(n.Topic)
	case ok && n.Sources.Has(family.IDSource):
		ev.Source = family.IDSource
		ev.ID, _ = n.Sources.Get(family.IDSource)
	case len(n.Sources) == 1:
		// Best effort for unknown families or a missing id key: only an
		// unambiguous single source identifies the event.
		ev.Source, ev.ID = n.Source()
	}

	rule := RawNumeric
	value := n.Value
	if ok {
		ev.Type = family.Type
		rule = family.Rule
		if family.ValueKey != "" {
			if v, found := n.Data.Get(family.ValueKey); found {
				value = v
			}
		}
	} else {
		ev.Type = fallbackType(n.Topic)
	}

	ev.State, ev.IsTripped = Interpret(rule, value)
	return ev
}

// fallbackType labels unsupported topics with their last segment, without
// namespace prefix.
func fallbackType(topic string) string {
	if topic == "" {
		return ""
	}
	last := topic[strings.LastIndex(topic, "/")+1:]
	if _, local, ok := strings.Cut(last, ":"); ok {
		return local
	}
	return last
}

var defaultDecoder = NewDecoder(nil)

// Decode decodes raw against DefaultRegistry.
func Decode(raw []byte) Event {
	return defaultDecoder.Decode(raw)
}

// DecodeNotification classifies n against DefaultRegistry.
func DecodeNotification(n Notification) Event {
	return defaultDecoder.DecodeNotification(n)
}
