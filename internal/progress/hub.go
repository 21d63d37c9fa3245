package progress

import (
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/pubsub/v2"
)

var logger = loggo.GetLogger("repoupgrade.progress")

// Handler receives progress messages in publish order
type Handler func(Message)

// Hub is an in-process publish/subscribe channel for progress messages.
// Each subscriber gets its own delivery goroutine, so messages arrive
// in FIFO order per subscription.
type Hub struct {
	hub *pubsub.SimpleHub
}

// NewHub creates a hub that logs through loggo
func NewHub() *Hub {
	return &Hub{
		hub: pubsub.NewSimpleHub(&pubsub.SimpleHubConfig{
			Logger: loggo.GetLogger("repoupgrade.progress.hub"),
		}),
	}
}

// Subscribe registers handler on topic. The returned function removes
// exactly this subscription.
func (h *Hub) Subscribe(topic string, handler Handler) (func(), error) {
	if topic == "" {
		return nil, errors.NotValidf("empty topic")
	}
	if handler == nil {
		return nil, errors.NotValidf("nil handler")
	}

	unsubscribe := h.hub.Subscribe(topic, func(topic string, data interface{}) {
		msg, ok := asMessage(data)
		if !ok {
			logger.Warningf("dropping %T payload on %q", data, topic)
			return
		}
		handler(msg)
	})
	return unsubscribe, nil
}

// Publish sends msg to every subscriber of topic
func (h *Hub) Publish(topic string, msg Message) {
	logger.Tracef("publish %s %v on %q", msg.Type, msg.Value, topic)
	h.hub.Publish(topic, msg)
}

func asMessage(data interface{}) (Message, bool) {
	switch v := data.(type) {
	case Message:
		return v, true
	case *Message:
		if v == nil {
			return Message{}, false
		}
		return *v, true
	case map[string]interface{}:
		t, _ := v["type"].(string)
		if t == "" {
			return Message{}, false
		}
		return Message{Type: MessageType(t), Value: v["value"]}, true
	default:
		return Message{}, false
	}
}

// Publisher publishes on a fixed topic
type Publisher struct {
	hub   *Hub
	topic string
}

// NewPublisher binds a publisher to topic
func NewPublisher(hub *Hub, topic string) *Publisher {
	return &Publisher{hub: hub, topic: topic}
}

func (p *Publisher) Log(line string) {
	p.hub.Publish(p.topic, LogMessage(line))
}

func (p *Publisher) Percent(percent int) {
	p.hub.Publish(p.topic, PercentMessage(percent))
}

func (p *Publisher) Status(status Status) {
	p.hub.Publish(p.topic, StatusMessage(status))
}
