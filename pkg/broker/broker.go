package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oldline/p3gateway/pkg/endpoint"
)

type dispatchItem struct {
	channel *Channel
	msg     Msg
}

// Broker owns a set of named Channels and one always-on dispatch
// goroutine that fans published messages out to every consumer
// registered on the target channel at dispatch time. Three channels
// always exist: wiretap, dead_letter, and null.
type Broker struct {
	mu       sync.Mutex
	channels map[string]*Channel

	wiretapChannel    *Channel
	deadLetterChannel *Channel
	nullChannel       *Channel

	inQueue   *Queue[dispatchItem]
	scheduler *endpoint.Scheduler
	job       *endpoint.Job
}

// New creates a Broker and starts its dispatcher job.
func New() *Broker {
	b := &Broker{
		channels:  make(map[string]*Channel),
		inQueue:   NewQueue[dispatchItem](),
		scheduler: endpoint.NewScheduler(),
	}

	b.wiretapChannel = b.AddChannel("wiretap")
	b.deadLetterChannel = b.AddChannel("dead_letter")
	b.nullChannel = b.AddChannel("null")

	b.job = b.scheduler.StartJob(context.Background(), "broker-dispatcher", b.dispatcher)
	return b
}

// Close stops the dispatcher job and waits for it to exit.
func (b *Broker) Close() {
	b.job.Cancel()
	<-b.job.Done()
}

func (b *Broker) dispatcher(ctx context.Context) error {
	for {
		item, err := b.inQueue.Get(ctx)
		if err != nil {
			return err
		}
		for _, consumer := range item.channel.Consumers() {
			consumer.msgReceived(item.msg)
		}
	}
}

// RegisterChannel registers an already-constructed Channel. Returns an
// error if a channel with the same name is already registered.
func (b *Broker) RegisterChannel(c *Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.channels[c.Name]; exists {
		return fmt.Errorf("broker: channel %q already registered", c.Name)
	}
	b.channels[c.Name] = c
	return nil
}

// DeregisterChannel removes a channel. Idempotent.
func (b *Broker) DeregisterChannel(c *Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.channels, c.Name)
}

// HasChannel reports whether a channel with the given name is
// registered.
func (b *Broker) HasChannel(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.channels[name]
	return ok
}

// AddChannel returns the Channel with the given name, creating and
// registering it if it doesn't already exist. Idempotent.
func (b *Broker) AddChannel(name string) *Channel {
	b.mu.Lock()
	if c, ok := b.channels[name]; ok {
		b.mu.Unlock()
		return c
	}
	c := newChannel(name, b)
	b.channels[name] = c
	b.mu.Unlock()
	return c
}

// GetChannel returns the Channel with the given name, or an error if
// it is not registered.
func (b *Broker) GetChannel(name string) (*Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.channels[name]
	if !ok {
		return nil, fmt.Errorf("broker: unknown channel %q", name)
	}
	return c, nil
}

// WiretapChannel returns the broker's always-present wiretap channel.
func (b *Broker) WiretapChannel() *Channel { return b.wiretapChannel }

// DeadLetterChannel returns the broker's always-present dead_letter
// channel.
func (b *Broker) DeadLetterChannel() *Channel { return b.deadLetterChannel }

// NullChannel returns the broker's always-present, consumer-less null
// channel.
func (b *Broker) NullChannel() *Channel { return b.nullChannel }

// NewProducer creates an unregistered Producer for the named channel.
// The channel must already be registered with the broker.
func (b *Broker) NewProducer(channelName string) (*Producer, error) {
	c, err := b.GetChannel(channelName)
	if err != nil {
		return nil, err
	}
	return NewProducer(c), nil
}

// NewConsumer creates an unregistered Consumer for the named channel.
// The channel must already be registered with the broker.
func (b *Broker) NewConsumer(channelName string) (*Consumer, error) {
	c, err := b.GetChannel(channelName)
	if err != nil {
		return nil, err
	}
	return NewConsumer(c), nil
}

// publish is the Channel-identity entry point used by Producer.Publish.
func (b *Broker) publish(channel *Channel, msg Msg) {
	msg.Base().Timestamp = time.Now().UTC()
	b.routeAndEnqueue(channel, msg)
}

// Publish publishes msg on the named channel directly, bypassing the
// Producer registration requirement. Publishing to an unregistered
// channel name routes msg to dead_letter instead.
func (b *Broker) Publish(channelName string, msg Msg) {
	msg.Base().Timestamp = time.Now().UTC()

	b.mu.Lock()
	c, ok := b.channels[channelName]
	b.mu.Unlock()

	if !ok {
		b.routeDeadLetter(channelName, msg)
		return
	}
	b.routeAndEnqueue(c, msg)
}

func (b *Broker) routeAndEnqueue(channel *Channel, msg Msg) {
	b.inQueue.Put(dispatchItem{channel: channel, msg: msg})
	b.feedWiretap(channel, msg)
}

func (b *Broker) routeDeadLetter(channelName string, msg Msg) {
	wrapped := newDeadLetterMsg(channelName, msg)
	wrapped.Timestamp = time.Now().UTC()
	b.inQueue.Put(dispatchItem{channel: b.deadLetterChannel, msg: wrapped})
}

// feedWiretap mirrors every publish onto the wiretap channel, except
// publishes that are themselves wiretap or dead-letter traffic — that
// would wiretap the wiretap and loop forever.
func (b *Broker) feedWiretap(channel *Channel, msg Msg) {
	if channel == b.wiretapChannel || channel == b.deadLetterChannel {
		return
	}
	tap := newWiretapMsg(channel, msg)
	tap.Timestamp = time.Now().UTC()
	b.inQueue.Put(dispatchItem{channel: b.wiretapChannel, msg: tap})
}
