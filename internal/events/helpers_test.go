package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/technosupport/vapix-events/internal/vapix/event"
)

const firstMessage = `<?xml version="1.0" encoding="UTF-8"?>
<tt:MetadataStream xmlns:tt="http://www.onvif.org/ver10/schema">
<tt:VideoAnalytics/></tt:MetadataStream>
`

// notification renders a single-source, single-value message.
func notification(op, topic, source, id, key, value string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<tt:MetadataStream xmlns:tt="http://www.onvif.org/ver10/schema"><tt:Event><wsnt:NotificationMessage xmlns:tns1="http://www.onvif.org/ver10/topics" xmlns:tnsaxis="http://www.axis.com/2009/event/topics" xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2"><wsnt:Topic Dialect="http://docs.oasis-open.org/wsn/t-1/TopicExpression/Simple">%s</wsnt:Topic><wsnt:Message><tt:Message UtcTime="2020-11-03T20:21:48.310748Z" PropertyOperation="%s"><tt:Source><tt:SimpleItem Name="%s" Value="%s"/></tt:Source><tt:Key></tt:Key><tt:Data><tt:SimpleItem Name="%s" Value="%s"/></tt:Data></tt:Message></wsnt:Message></wsnt:NotificationMessage></tt:Event></tt:MetadataStream>
`, topic, op, source, id, key, value))
}

func pir(op, id, state string) []byte {
	return notification(op, "tns1:Device/tnsaxis:Sensor/PIR", "sensor", id, "state", state)
}

func fenceGuard() event.Event {
	return event.Decode([]byte(`<tt:MetadataStream xmlns:tt="http://www.onvif.org/ver10/schema"><tt:Event><wsnt:NotificationMessage xmlns:tnsaxis="http://www.axis.com/2009/event/topics" xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2"><wsnt:Topic>tnsaxis:CameraApplicationPlatform/FenceGuard/Camera1Profile1</wsnt:Topic><wsnt:Message><tt:Message PropertyOperation="Changed"><tt:Source></tt:Source><tt:Data><tt:SimpleItem Name="active" Value="1"/></tt:Data></tt:Message></wsnt:Message></wsnt:NotificationMessage></tt:Event></tt:MetadataStream>`))
}

type recordingSink struct {
	mu   sync.Mutex
	envs []Envelope
	err  error
}

func (s *recordingSink) Publish(_ context.Context, env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.envs = append(s.envs, env)
	return nil
}

func (s *recordingSink) changes() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Change, 0, len(s.envs))
	for _, e := range s.envs {
		out = append(out, e.Change)
	}
	return out
}

// gatedSink blocks its first Publish until release is closed.
type gatedSink struct {
	recordingSink
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSink() *gatedSink {
	return &gatedSink{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedSink) Publish(ctx context.Context, env Envelope) error {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.recordingSink.Publish(ctx, env)
}
