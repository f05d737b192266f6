// Package bridge feeds remote input into the engine over MQTT.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/engine/geom"
	"github.com/nathoo/qdcore/engine/input"
	"github.com/nathoo/qdcore/logger"
)

// Input receives decoded events. *engine.Engine satisfies it; both calls
// only enqueue, so they are safe from the MQTT goroutine.
type Input interface {
	PushMouse(ev input.MouseEvent, pos geom.Vec2f)
	PushKey(code int, down bool)
}

// ErrBadPayload wraps every payload decoding failure.
var ErrBadPayload = errors.New("bridge: bad payload")

// Payload is one remote input message.
//
//	{"device":"mouse","event":"left_down","x":120,"y":80}
//	{"device":"keyboard","key":"space","down":true}
type Payload struct {
	Device string          `json:"device"`
	Event  string          `json:"event,omitempty"`
	X      float64         `json:"x,omitempty"`
	Y      float64         `json:"y,omitempty"`
	Key    json.RawMessage `json:"key,omitempty"`
	Down   bool            `json:"down,omitempty"`
}

// Dispatch decodes data and pushes the event onto in.
func Dispatch(data []byte, in Input) error {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch p.Device {
	case "mouse":
		ev, ok := input.ParseMouseEvent(p.Event)
		if !ok {
			return fmt.Errorf("%w: unknown mouse event %q", ErrBadPayload, p.Event)
		}
		in.PushMouse(ev, geom.Vec2f{X: p.X, Y: p.Y})
	case "keyboard":
		code, err := keyCode(p.Key)
		if err != nil {
			return err
		}
		in.PushKey(code, p.Down)
	default:
		return fmt.Errorf("%w: unknown device %q", ErrBadPayload, p.Device)
	}
	return nil
}

// keyCode accepts a numeric code or a key name.
func keyCode(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: missing key", ErrBadPayload)
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		n, err := strconv.Atoi(string(raw))
		if err != nil {
			return 0, fmt.Errorf("%w: key %s", ErrBadPayload, raw)
		}
		return n, nil
	}
	code, ok := input.ParseKey(name)
	if !ok {
		return 0, fmt.Errorf("%w: unknown key %q", ErrBadPayload, name)
	}
	return code, nil
}

// Bridge is a connected MQTT subscription.
type Bridge struct {
	client paho.Client
	topic  string
	in     Input

	mu       sync.Mutex
	received int
	rejected int
}

// New creates a bridge but does not connect.
func New(broker, clientID, topic string, in Input) *Bridge {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	b := &Bridge{topic: topic, in: in}
	// Resubscribe after every reconnect.
	opts.SetOnConnectHandler(func(c paho.Client) {
		c.Subscribe(b.topic, 1, b.handle)
	})
	b.client = paho.NewClient(opts)
	return b
}

// Start connects to the broker. It does not block indefinitely.
func (b *Bridge) Start() error {
	token := b.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return errors.New("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return err
	}
	logger.Log.WithFields(logrus.Fields{"topic": b.topic}).Info("input bridge connected")
	return nil
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() { b.client.Disconnect(1000) }

func (b *Bridge) handle(_ paho.Client, msg paho.Message) {
	b.Handle(msg.Payload())
}

// Handle dispatches one payload and keeps the tallies.
func (b *Bridge) Handle(data []byte) {
	err := Dispatch(data, b.in)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.rejected++
		logger.Log.WithFields(logrus.Fields{"topic": b.topic, "error": err}).Warn("input rejected")
		return
	}
	b.received++
}

// Stats returns the number of accepted and rejected payloads.
func (b *Bridge) Stats() (received, rejected int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.received, b.rejected
}
