package broker

import (
	"context"
	"fmt"
)

// Producer publishes messages on one Channel. It must be Registered
// before Publish/Invoke/Feed/Notify will succeed.
type Producer struct {
	channel    *Channel
	registered bool
}

// NewProducer creates an unregistered Producer bound to channel.
func NewProducer(channel *Channel) *Producer {
	return &Producer{channel: channel}
}

// Register registers the producer with its channel. Idempotent.
func (p *Producer) Register() {
	p.channel.registerProducer(p)
	p.registered = true
}

// Deregister removes the producer from its channel. Idempotent.
func (p *Producer) Deregister() {
	p.channel.deregisterProducer(p)
	p.registered = false
}

// Publish publishes msg on the producer's channel.
func (p *Producer) Publish(msg Msg) error {
	if !p.registered {
		return fmt.Errorf("broker: producer not registered with channel %q", p.channel.Name)
	}
	p.channel.broker.publish(p.channel, msg)
	return nil
}

// Invoke builds and publishes a CmdMsg.
func (p *Producer) Invoke(sender string, headers map[string]any, cmd string, cmdArgs map[string]any) (*CmdMsg, error) {
	msg := NewCmdMsg(sender, headers, cmd, cmdArgs)
	if err := p.Publish(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Feed builds and publishes a DataMsg.
func (p *Producer) Feed(sender string, headers map[string]any, data any) (*DataMsg, error) {
	msg := NewDataMsg(sender, headers, data)
	if err := p.Publish(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Notify builds and publishes an EventMsg.
func (p *Producer) Notify(sender string, headers map[string]any, event string, data any) (*EventMsg, error) {
	msg := NewEventMsg(sender, headers, event, data)
	if err := p.Publish(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// WithProducer registers a scoped Producer on channel, runs fn, and
// deregisters on every exit path — the Go equivalent of entering and
// leaving the Python source's Producer context manager.
func WithProducer(channel *Channel, fn func(*Producer) error) error {
	p := NewProducer(channel)
	p.Register()
	defer p.Deregister()
	return fn(p)
}

// Consumer receives messages from one Channel via an unbounded FIFO
// inbox. It must be Registered before Get will succeed.
type Consumer struct {
	channel    *Channel
	registered bool
	inQueue    *Queue[Msg]
}

// NewConsumer creates an unregistered Consumer bound to channel.
func NewConsumer(channel *Channel) *Consumer {
	return &Consumer{channel: channel, inQueue: NewQueue[Msg]()}
}

// Register registers the consumer with its channel. Idempotent.
func (c *Consumer) Register() {
	c.channel.registerConsumer(c)
	c.registered = true
}

// Deregister removes the consumer from its channel. Idempotent.
func (c *Consumer) Deregister() {
	c.channel.deregisterConsumer(c)
	c.registered = false
}

// msgReceived enqueues a dispatched message for this consumer. Only
// called by the broker's dispatcher.
func (c *Consumer) msgReceived(msg Msg) {
	c.inQueue.Put(msg)
}

// Get blocks until a message arrives, or ctx is done.
func (c *Consumer) Get(ctx context.Context) (Msg, error) {
	if !c.registered {
		return nil, fmt.Errorf("broker: consumer not registered with channel %q", c.channel.Name)
	}
	return c.inQueue.Get(ctx)
}

// Pending returns the number of messages currently queued for this
// consumer.
func (c *Consumer) Pending() int {
	return c.inQueue.Len()
}

// WithConsumer registers a scoped Consumer on channel, runs fn, and
// deregisters on every exit path.
func WithConsumer(channel *Channel, fn func(*Consumer) error) error {
	c := NewConsumer(channel)
	c.Register()
	defer c.Deregister()
	return fn(c)
}
