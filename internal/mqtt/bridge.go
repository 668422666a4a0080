//go:build !no_mqtt

package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"movehub/internal/fleet"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
}

// Fleet is the subset of the fleet manager the bridge drives.
type Fleet interface {
	SetRumble(id int, amount float32) bool
	ResetPose(id int) bool
	Events() *fleet.EventBus
}

// Bridge publishes controller frames and fleet events to an MQTT broker
// and accepts rumble and pose-reset commands back. It implements
// fleet.Publisher.
type Bridge struct {
	client pahomqtt.Client
	fleet  Fleet
	prefix string
	logger *slog.Logger
	unsub  func()
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(fl Fleet, cfg Config, logger *slog.Logger) (*Bridge, error) {
	b := &Bridge{
		fleet:  fl,
		prefix: cfg.TopicPrefix,
		logger: logger.With("component", "mqtt"),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("movehub").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(bridgeStateTopic(cfg.TopicPrefix), "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.publishBridgeState("online")
			b.subscribeCommands()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	b.client = client
	return b, nil
}

// Start subscribes to fleet events and begins MQTT publishing.
func (b *Bridge) Start() {
	b.unsub = b.fleet.Events().OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

// Publish sends one data frame to the controller's topic. Frames flow at
// poll rate, so they go out QoS 0 and unretained; a missed frame is
// superseded milliseconds later by the next one.
func (b *Bridge) Publish(frame fleet.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		b.logger.Error("marshal frame", "err", err)
		return
	}
	b.client.Publish(frameTopic(b.prefix, frame.ControllerID), 0, false, payload)
}

func (b *Bridge) handleEvent(event fleet.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("marshal event", "err", err)
		return
	}
	b.publishWithTimeout(eventTopic(b.prefix, event.Type), payload, false)
}

func (b *Bridge) publishBridgeState(state string) {
	b.publishWithTimeout(bridgeStateTopic(b.prefix), []byte(state), true)
}

func (b *Bridge) publishWithTimeout(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

func (b *Bridge) subscribeCommands() {
	b.client.Subscribe(commandFilter(b.prefix), 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleCommand(msg.Topic(), msg.Payload())
	})
}

func (b *Bridge) handleCommand(topic string, payload []byte) {
	id, action, ok := parseCommandTopic(b.prefix, topic)
	if !ok {
		b.logger.Warn("unrecognized command topic", "topic", topic)
		return
	}

	switch action {
	case "rumble":
		amount, err := parseRumblePayload(payload)
		if err != nil {
			b.logger.Warn("invalid rumble command", "id", id, "err", err)
			return
		}
		if !b.fleet.SetRumble(id, amount) {
			b.logger.Warn("rumble command rejected", "id", id)
		}
	case "reset_pose":
		if !b.fleet.ResetPose(id) {
			b.logger.Warn("reset pose command rejected", "id", id)
		}
	default:
		b.logger.Warn("unknown command action", "action", action, "id", id)
	}
}
