package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// bufferCapacity bounds how many messages are held across a broker
// outage. At the default notification cadence this is hours of events.
const bufferCapacity = 64

// RealPublisher publishes to an actual MQTT broker, buffering messages
// while the connection is down and replaying them on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *zap.SugaredLogger

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. The broker
// being unreachable at startup is not an error: paho keeps retrying in
// the background and events are buffered until it connects.
func NewRealPublisher(broker string, log *zap.SugaredLogger) *RealPublisher {
	p := &RealPublisher{
		log: log,
		buf: newRingBuffer(bufferCapacity),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("bilge-monitor").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { p.drain() })

	p.client = paho.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Infof("mqtt: broker %s not reachable yet, buffering events", broker)
	} else if err := token.Error(); err != nil {
		log.Warnf("mqtt: connect to %s: %v", broker, err)
	}

	return p
}

// PublishState sends a state transition (QoS 0, not retained).
func (p *RealPublisher) PublishState(event StateEvent) error {
	payload, err := FormatStatePayload(event)
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}
	return p.publish(TopicEvents, 0, false, payload)
}

// PublishAlert mirrors a notification to the broker at QoS 1.
func (p *RealPublisher) PublishAlert(event AlertEvent) error {
	payload, err := FormatAlertPayload(event)
	if err != nil {
		return fmt.Errorf("format alert payload: %w", err)
	}
	return p.publish(TopicEvents, 1, false, payload)
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// publish hands the message to paho, or to the ring buffer while the
// connection is down.
func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		if p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained}) {
			p.log.Warnf("mqtt: buffer full (%d messages), dropping oldest", bufferCapacity)
		}
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// drain replays buffered messages after (re)connecting. Runs on paho's
// connect callback goroutine.
func (p *RealPublisher) drain() {
	p.mu.Lock()
	msgs := p.buf.drainAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	p.log.Infof("mqtt: connected, replaying %d buffered messages", len(msgs))
	for _, m := range msgs {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			p.log.Warnf("mqtt: replay timeout on %s", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			p.log.Warnf("mqtt: replay on %s: %v", m.topic, err)
		}
	}
}

// IsConnected reports whether the broker connection is live.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
