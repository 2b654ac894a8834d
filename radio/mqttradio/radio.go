// Package mqttradio implements hal.Radio on top of an MQTT broker, so nodes
// on separate machines can share one broadcast medium.
//
// Topic layout, per radio group:
//
//	<prefix>/<group>/<nodeID>   each node publishes here (QoS 0)
//	<prefix>/<group>/+          each node subscribes here
//
// A node drops messages on its own topic so it never hears itself.
package mqttradio

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/e7canasta/tilesync/hal"
)

// Defaults for zero Config fields.
const (
	DefaultTopicPrefix    = "tilesync"
	DefaultQueueLength    = 32
	DefaultConnectTimeout = 5 * time.Second
	DefaultPublishTimeout = 2 * time.Second
)

var (
	// ErrRadioOff is returned by Send before Enable.
	ErrRadioOff = errors.New("mqttradio: radio not enabled")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("mqttradio: radio closed")
)

// Config holds broker settings for one node.
type Config struct {
	// Broker is "host:port" or a full URL ("tcp://host:1883", "ws://...").
	Broker string

	TopicPrefix string

	// NodeID is the client id and the node's publish topic. Empty means a
	// random uuid.
	NodeID string

	// QueueLength bounds the receive inbox; a full inbox drops.
	QueueLength int

	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// client is the part of mqtt.Client the radio uses.
type client interface {
	IsConnected() bool
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Stats contains radio statistics
type Stats struct {
	Connected bool
	Sent      uint64
	Received  uint64
	Dropped   uint64 // inbox full
	Errors    uint64 // failed publishes
}

// Radio is one node's MQTT transceiver.
type Radio struct {
	cfg    Config
	client client
	inbox  chan []byte

	group   atomic.Uint32
	enabled atomic.Bool
	closed  atomic.Bool

	mu         sync.Mutex
	subscribed string // active wildcard subscription, "" when none

	sent     atomic.Uint64
	received atomic.Uint64
	dropped  atomic.Uint64
	errors   atomic.Uint64
}

var _ hal.Radio = (*Radio)(nil)

// New builds a radio with a paho client. Nothing connects until Enable.
func New(cfg Config) (*Radio, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqttradio: broker is required")
	}
	r := newRadio(cfg)

	broker := r.cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(r.cfg.NodeID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOrderMatters(true)

	opts.OnConnect = func(mqtt.Client) {
		slog.Info("mqttradio: connection established",
			"broker", broker,
			"node", r.cfg.NodeID,
		)
		// A clean session loses subscriptions across reconnects.
		r.resubscribe()
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("mqttradio: connection lost, will auto-reconnect",
			"error", err,
			"broker", broker,
			"node", r.cfg.NodeID,
		)
	}

	r.client = mqtt.NewClient(opts)
	return r, nil
}

func newRadio(cfg Config) *Radio {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}
	if cfg.QueueLength <= 0 {
		cfg.QueueLength = DefaultQueueLength
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	return &Radio{cfg: cfg, inbox: make(chan []byte, cfg.QueueLength)}
}

// NodeID returns the id used as client id and publish topic suffix.
func (r *Radio) NodeID() string { return r.cfg.NodeID }

func (r *Radio) groupTopic() string {
	return r.cfg.TopicPrefix + "/" + strconv.FormatUint(uint64(r.group.Load()), 10)
}

func (r *Radio) ownTopic() string { return r.groupTopic() + "/" + r.cfg.NodeID }

// Configure implements hal.Radio. Switching group while enabled moves the
// subscription.
func (r *Radio) Configure(group uint8) error {
	if r.closed.Load() {
		return ErrClosed
	}
	r.group.Store(uint32(group))
	if r.enabled.Load() {
		return r.subscribe()
	}
	return nil
}

// Enable implements hal.Radio: connects and subscribes to the group.
func (r *Radio) Enable() error {
	if r.closed.Load() {
		return ErrClosed
	}
	if r.enabled.Load() {
		return nil
	}

	if !r.client.IsConnected() {
		slog.Info("mqttradio: connecting to broker", "broker", r.cfg.Broker, "node", r.cfg.NodeID)
		token := r.client.Connect()
		if !token.WaitTimeout(r.cfg.ConnectTimeout) {
			return fmt.Errorf("mqttradio: connection timeout")
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqttradio: connection failed: %w", err)
		}
	}

	if err := r.subscribe(); err != nil {
		return err
	}
	r.enabled.Store(true)
	return nil
}

func (r *Radio) subscribe() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	topic := r.groupTopic() + "/+"
	if r.subscribed == topic {
		return nil
	}
	if r.subscribed != "" {
		r.client.Unsubscribe(r.subscribed).WaitTimeout(r.cfg.ConnectTimeout)
	}

	token := r.client.Subscribe(topic, 0, r.onMessage)
	if !token.WaitTimeout(r.cfg.ConnectTimeout) {
		return fmt.Errorf("mqttradio: subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttradio: subscription failed: %w", err)
	}
	r.subscribed = topic

	slog.Debug("mqttradio: subscribed", "topic", topic, "node", r.cfg.NodeID)
	return nil
}

func (r *Radio) resubscribe() {
	r.mu.Lock()
	topic := r.subscribed
	r.subscribed = ""
	r.mu.Unlock()

	if topic == "" {
		return
	}
	if err := r.subscribe(); err != nil {
		slog.Warn("mqttradio: resubscribe failed", "error", err, "node", r.cfg.NodeID)
	}
}

// onMessage queues a peer's broadcast. Runs on paho's router goroutine.
func (r *Radio) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if msg.Topic() == r.ownTopic() || !r.enabled.Load() {
		return
	}

	payload := append([]byte(nil), msg.Payload()...)
	select {
	case r.inbox <- payload:
		r.received.Add(1)
	default:
		r.dropped.Add(1)
		slog.Debug("mqttradio: inbox full, dropping message", "topic", msg.Topic())
	}
}

// Send implements hal.Radio. Publishes at QoS 0: delivery is best effort.
func (r *Radio) Send(msg []byte) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if !r.enabled.Load() {
		return ErrRadioOff
	}

	token := r.client.Publish(r.ownTopic(), 0, false, msg)
	if !token.WaitTimeout(r.cfg.PublishTimeout) {
		r.errors.Add(1)
		return fmt.Errorf("mqttradio: publish timeout")
	}
	if err := token.Error(); err != nil {
		r.errors.Add(1)
		return fmt.Errorf("mqttradio: publish failed: %w", err)
	}
	r.sent.Add(1)
	return nil
}

// Receive implements hal.Radio. Never blocks.
func (r *Radio) Receive() ([]byte, bool) {
	if !r.enabled.Load() {
		return nil, false
	}
	select {
	case msg := <-r.inbox:
		return msg, true
	default:
		return nil, false
	}
}

// Stats returns radio statistics
func (r *Radio) Stats() Stats {
	return Stats{
		Connected: r.client.IsConnected(),
		Sent:      r.sent.Load(),
		Received:  r.received.Load(),
		Dropped:   r.dropped.Load(),
		Errors:    r.errors.Load(),
	}
}

// Close unsubscribes and disconnects. Idempotent.
func (r *Radio) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.enabled.Store(false)

	r.mu.Lock()
	topic := r.subscribed
	r.subscribed = ""
	r.mu.Unlock()

	if r.client.IsConnected() {
		if topic != "" {
			r.client.Unsubscribe(topic).WaitTimeout(r.cfg.ConnectTimeout)
		}
		r.client.Disconnect(250) // 250ms grace period
		slog.Info("mqttradio: disconnected", "node", r.cfg.NodeID)
	}
	return nil
}
