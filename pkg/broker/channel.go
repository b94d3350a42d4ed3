package broker

import "sync"

// Channel is a named medium for transmitting messages, with an
// ordered list of producers and consumers. Channel names are unique
// per broker.
type Channel struct {
	Name   string
	broker *Broker

	mu        sync.Mutex
	producers []*Producer
	consumers []*Consumer
}

func newChannel(name string, b *Broker) *Channel {
	return &Channel{Name: name, broker: b}
}

func (c *Channel) registerProducer(p *Producer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.producers {
		if existing == p {
			return
		}
	}
	c.producers = append(c.producers, p)
}

func (c *Channel) deregisterProducer(p *Producer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.producers {
		if existing == p {
			c.producers = append(c.producers[:i], c.producers[i+1:]...)
			return
		}
	}
}

func (c *Channel) registerConsumer(consumer *Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.consumers {
		if existing == consumer {
			return
		}
	}
	c.consumers = append(c.consumers, consumer)
}

func (c *Channel) deregisterConsumer(consumer *Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.consumers {
		if existing == consumer {
			c.consumers = append(c.consumers[:i], c.consumers[i+1:]...)
			return
		}
	}
}

// Consumers returns a snapshot of the channel's currently registered
// consumers, safe to range over after the lock is released.
func (c *Channel) Consumers() []*Consumer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Consumer, len(c.consumers))
	copy(out, c.consumers)
	return out
}
