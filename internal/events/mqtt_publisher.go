package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// mqttClient is the part of mqtt.Client the publisher needs.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher keeps one retained message per event on
// "<prefix>/<device>/<type>/<id>". Removed events clear their retained
// message.
type MQTTPublisher struct {
	client mqttClient
	prefix string
	qos    byte
}

func NewMQTTPublisher(client mqttClient, prefix string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/"), qos: qos}
}

// Topic returns the MQTT topic env is published on.
func (p *MQTTPublisher) Topic(env Envelope) string {
	ev := env.Event
	typ := ev.Type
	if typ == "" {
		typ = "unknown"
	}
	return strings.Join([]string{p.prefix, topicLevel(env.Device), topicLevel(typ), topicLevel(ev.ID)}, "/")
}

func (p *MQTTPublisher) Publish(ctx context.Context, env Envelope) error {
	var payload []byte
	if env.Change != ChangeRemoved {
		data, err := json.Marshal(env.Event)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		payload = data
	}

	topic := p.Topic(env)
	token := p.client.Publish(topic, p.qos, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// topicLevel makes s usable as a single MQTT topic level.
func topicLevel(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ':
			return '_'
		}
		return r
	}, s)
}

// ConnectMQTT connects to broker with auto-reconnect.
func ConnectMQTT(broker, clientID, username, password string, log *zap.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}
