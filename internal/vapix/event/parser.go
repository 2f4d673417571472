package event

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Item is one SimpleItem of a notification source or data block.
type Item struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Items is an ordered set of items keyed by name.
type Items []Item

// Get returns the value stored under name.
func (it Items) Get(name string) (string, bool) {
	for _, i := range it {
		if i.Name == name {
			return i.Value, true
		}
	}
	return "", false
}

// Has reports whether name is present.
func (it Items) Has(name string) bool {
	_, ok := it.Get(name)
	return ok
}

// set overwrites an existing key in place so document order is kept.
func (it Items) set(name, value string) Items {
	for i := range it {
		if it[i].Name == name {
			it[i].Value = value
			return it
		}
	}
	return append(it, Item{Name: name, Value: value})
}

// Notification is the family-agnostic intermediate form of one message.
type Notification struct {
	Operation Operation `json:"operation"`
	Topic     string    `json:"topic"`
	Sources   Items     `json:"sources,omitempty"`
	DataType  string    `json:"type,omitempty"`
	Value     string    `json:"value,omitempty"`
	Data      Items     `json:"data,omitempty"`
	Time      time.Time `json:"utc_time,omitzero"`
}

// Source returns the first source pair, which is the only one for most
// families.
func (n Notification) Source() (string, string) {
	if len(n.Sources) == 0 {
		return "", ""
	}
	return n.Sources[0].Name, n.Sources[0].Value
}

// IsEmpty reports whether n carries nothing, as for the first message of a
// stream or an undecodable buffer.
func (n Notification) IsEmpty() bool {
	return n.Topic == "" && len(n.Sources) == 0 && len(n.Data) == 0
}

// Canonical topic prefixes keyed by namespace URI.
var namespaceAliases = map[string]string{
	"http://www.onvif.org/ver10/topics":     "onvif",
	"http://www.axis.com/2009/event/topics": "axis",
}

// Used when a topic prefix has no xmlns declaration in the document.
var prefixAliases = map[string]string{
	"tns1":    "onvif",
	"tnsaxis": "axis",
}

type section int

const (
	sectionNone section = iota
	sectionSource
	sectionKey
	sectionData
)

// Parse decodes the first notification message found in raw. Buffers that
// are empty, malformed, truncated or carry no notification message yield the
// zero Notification.
func Parse(raw []byte) Notification {
	n, ok := parse(raw)
	if !ok {
		return Notification{}
	}
	return n
}

func parse(raw []byte) (Notification, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Notification{}, false
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	// Firmware may declare ISO-8859-1 for device names and labels.
	dec.CharsetReader = charset.NewReaderLabel
	prefixes := map[string]string{}

	var (
		n       Notification
		found   bool
		inTopic bool
		topic   strings.Builder
		sect    = sectionNone
	)

	for {
		tok, err := dec.Token()
		if err != nil {
			// io.EOF before the message closed, or a syntax error.
			return Notification{}, false
		}

		switch t := tok.(type) {
		case xml.StartElement:
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					prefixes[a.Name.Local] = a.Value
				}
			}
			if !found {
				if t.Name.Local == "NotificationMessage" {
					found = true
				}
				continue
			}
			switch t.Name.Local {
			case "Topic":
				inTopic = true
				topic.Reset()
			case "Message":
				// The inner tt:Message carries the attributes, the wsnt wrapper does not.
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "PropertyOperation":
						n.Operation = ParseOperation(a.Value)
					case "UtcTime":
						if ts, err := time.Parse(time.RFC3339Nano, a.Value); err == nil {
							n.Time = ts.UTC()
						}
					}
				}
			case "Source":
				sect = sectionSource
			case "Key":
				sect = sectionKey
			case "Data":
				sect = sectionData
			case "SimpleItem":
				name, value := simpleItem(t)
				switch sect {
				case sectionSource:
					n.Sources = n.Sources.set(name, value)
				case sectionData:
					n.Data = n.Data.set(name, value)
				}
			}

		case xml.EndElement:
			if !found {
				continue
			}
			switch t.Name.Local {
			case "Topic":
				inTopic = false
				n.Topic = normalizeTopic(topic.String(), prefixes)
			case "Source", "Key", "Data":
				sect = sectionNone
			case "NotificationMessage":
				if len(n.Data) > 0 {
					n.DataType, n.Value = n.Data[0].Name, n.Data[0].Value
				}
				return n, true
			}

		case xml.CharData:
			if inTopic {
				topic.Write(t)
			}
		}
	}
}

func simpleItem(t xml.StartElement) (string, string) {
	var name, value string
	for _, a := range t.Attr {
		switch a.Name.Local {
		case "Name":
			name = a.Value
		case "Value":
			value = a.Value
		}
	}
	return name, value
}

// normalizeTopic rewrites "tns1:Device/tnsaxis:Sensor/PIR" into
// "onvif:Device/axis:Sensor/PIR" using the document's namespace bindings.
func normalizeTopic(raw string, prefixes map[string]string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	segments := strings.Split(raw, "/")
	for i, seg := range segments {
		prefix, local, ok := strings.Cut(seg, ":")
		if !ok {
			continue
		}
		if alias, ok := namespaceAliases[prefixes[prefix]]; ok {
			segments[i] = alias + ":" + local
		} else if alias, ok := prefixAliases[prefix]; ok {
			segments[i] = alias + ":" + local
		}
	}
	return strings.Join(segments, "/")
}
