package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/itohio/goscale/pkg/config"
	"github.com/itohio/goscale/pkg/scale"
)

const publishTimeout = 2 * time.Second

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// MQTT publishes results as JSON to a topic. When a Controller is attached,
// commands received on <topic>/command are executed and answered on
// <topic>/reply.
type MQTT struct {
	client mqtt.Client
	topic  string
	qos    byte
	ctl    Controller
	log    *slog.Logger
}

// NewMQTT connects to the broker. ctl may be nil.
func NewMQTT(cfg config.MQTTConfig, ctl Controller, logger *slog.Logger) (*MQTT, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MQTT{
		topic: cfg.Topic,
		qos:   cfg.QoS,
		ctl:   ctl,
		log:   logger.With("component", "mqtt"),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.log.Warn("connection lost", "err", err)
	})

	m.client = mqtt.NewClient(opts)
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	m.log.Info("connected", "broker", cfg.Broker, "topic", cfg.Topic)
	return m, nil
}

// CommandTopic is the topic commands are accepted on.
func (m *MQTT) CommandTopic() string {
	return m.topic + "/command"
}

// ReplyTopic is the topic command replies are published on.
func (m *MQTT) ReplyTopic() string {
	return m.topic + "/reply"
}

// onConnect (re)subscribes to the command topic after every connect.
func (m *MQTT) onConnect(c mqtt.Client) {
	if m.ctl == nil {
		return
	}

	token := c.Subscribe(m.CommandTopic(), m.qos, m.onCommand)
	if token.Wait() && token.Error() != nil {
		m.log.Error("subscribe failed", "topic", m.CommandTopic(), "err", token.Error())
	}
}

func (m *MQTT) onCommand(c mqtt.Client, msg mqtt.Message) {
	reply := handleCommand(m.ctl, msg.Payload())
	m.log.Info("command", "payload", string(msg.Payload()), "reply", string(reply))

	token := c.Publish(m.ReplyTopic(), m.qos, false, reply)
	if token.Wait() && token.Error() != nil {
		m.log.Warn("reply failed", "err", token.Error())
	}
}

// Send publishes r as JSON to the result topic.
func (m *MQTT) Send(ctx context.Context, r scale.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	token := m.client.Publish(m.topic, m.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	m.log.Info("disconnected")
	return nil
}
