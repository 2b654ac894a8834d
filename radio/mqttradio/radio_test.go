package mqttradio

import (
	"errors"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeBroker delivers synchronously to every single-level wildcard
// subscription matching the publish topic.
type fakeBroker struct {
	mu   sync.Mutex
	subs map[*fakeClient]map[string]mqtt.MessageHandler
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subs: map[*fakeClient]map[string]mqtt.MessageHandler{}}
}

func (b *fakeBroker) publish(topic string, payload []byte) {
	b.mu.Lock()
	var handlers []mqtt.MessageHandler
	for _, subs := range b.subs {
		for filter, h := range subs {
			if strings.TrimSuffix(filter, "/+") == path.Dir(topic) {
				handlers = append(handlers, h)
			}
		}
	}
	b.mu.Unlock()
	for _, h := range handlers {
		h(nil, fakeMessage{topic: topic, payload: payload})
	}
}

type fakeClient struct {
	broker     *fakeBroker
	connected  bool
	publishErr error
	published  []string
}

func (c *fakeClient) IsConnected() bool { return c.connected }
func (c *fakeClient) Connect() mqtt.Token {
	c.connected = true
	return doneToken{}
}
func (c *fakeClient) Disconnect(uint) { c.connected = false }

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	if c.publishErr != nil {
		return doneToken{err: c.publishErr}
	}
	c.published = append(c.published, topic)
	c.broker.publish(topic, payload.([]byte))
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, h mqtt.MessageHandler) mqtt.Token {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	if c.broker.subs[c] == nil {
		c.broker.subs[c] = map[string]mqtt.MessageHandler{}
	}
	c.broker.subs[c][topic] = h
	return doneToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	for _, t := range topics {
		delete(c.broker.subs[c], t)
	}
	return doneToken{}
}

func newTestRadio(t *testing.T, b *fakeBroker, id string, cfg Config) (*Radio, *fakeClient) {
	t.Helper()
	cfg.NodeID = id
	r := newRadio(cfg)
	c := &fakeClient{broker: b}
	r.client = c
	return r, c
}

func enable(t *testing.T, r *Radio, group uint8) {
	t.Helper()
	if err := r.Configure(group); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := r.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
}

// TestBroadcastSkipsSender verifies peers hear a publish and the sender does not.
func TestBroadcastSkipsSender(t *testing.T) {
	b := newFakeBroker()
	a, ac := newTestRadio(t, b, "a", Config{})
	peer, _ := newTestRadio(t, b, "b", Config{})
	enable(t, a, 1)
	enable(t, peer, 1)

	if err := a.Send([]byte("REQUEST")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if ac.published[0] != "tilesync/1/a" {
		t.Errorf("published to %q, want tilesync/1/a", ac.published[0])
	}
	if msg, ok := peer.Receive(); !ok || string(msg) != "REQUEST" {
		t.Errorf("peer got (%q, %v)", msg, ok)
	}
	if msg, ok := a.Receive(); ok {
		t.Errorf("sender heard itself: %q", msg)
	}
	if s := a.Stats(); s.Sent != 1 || !s.Connected {
		t.Errorf("sender stats = %+v", s)
	}
}

func TestGroupsAreIsolated(t *testing.T) {
	b := newFakeBroker()
	a, _ := newTestRadio(t, b, "a", Config{TopicPrefix: "wall"})
	other, _ := newTestRadio(t, b, "b", Config{TopicPrefix: "wall"})
	enable(t, a, 1)
	enable(t, other, 2)

	_ = a.Send([]byte("x"))
	if _, ok := other.Receive(); ok {
		t.Fatal("message crossed radio groups")
	}

	// Moving b onto group 1 moves its subscription.
	if err := other.Configure(1); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	_ = a.Send([]byte("y"))
	if msg, ok := other.Receive(); !ok || string(msg) != "y" {
		t.Errorf("after regroup got (%q, %v)", msg, ok)
	}
}

func TestInboxFullDrops(t *testing.T) {
	b := newFakeBroker()
	a, _ := newTestRadio(t, b, "a", Config{})
	peer, _ := newTestRadio(t, b, "b", Config{QueueLength: 2})
	enable(t, a, 1)
	enable(t, peer, 1)

	for i := 0; i < 5; i++ {
		_ = a.Send([]byte{byte('0' + i)})
	}
	if s := peer.Stats(); s.Received != 2 || s.Dropped != 3 {
		t.Errorf("peer stats = %+v, want Received=2 Dropped=3", s)
	}
	if msg, _ := peer.Receive(); string(msg) != "0" {
		t.Errorf("oldest message = %q, want 0", msg)
	}
}

func TestSendErrors(t *testing.T) {
	b := newFakeBroker()
	r, c := newTestRadio(t, b, "a", Config{})

	if err := r.Send([]byte("x")); !errors.Is(err, ErrRadioOff) {
		t.Fatalf("Send before Enable: err = %v, want ErrRadioOff", err)
	}

	enable(t, r, 1)
	c.publishErr = errors.New("not connected")
	if err := r.Send([]byte("x")); err == nil {
		t.Fatal("Send should surface publish failures")
	}
	if got := r.Stats().Errors; got != 1 {
		t.Errorf("Errors = %d, want 1", got)
	}

	_ = r.Close()
	_ = r.Close()
	if err := r.Send([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close: err = %v, want ErrClosed", err)
	}
	if c.connected {
		t.Error("Close did not disconnect")
	}
}

func TestDefaults(t *testing.T) {
	r := newRadio(Config{})
	if r.NodeID() == "" || r.cfg.TopicPrefix != DefaultTopicPrefix || cap(r.inbox) != DefaultQueueLength {
		t.Errorf("defaults not applied: %+v", r.cfg)
	}
	if _, err := New(Config{}); err == nil {
		t.Error("New without broker should fail")
	}
	if _, err := New(Config{Broker: "localhost:1883"}); err != nil {
		t.Errorf("New failed: %v", err)
	}
}
