// Package bridge republishes broker wiretap and dead-letter traffic to
// Redis, so an external observer can watch a running gateway without
// registering its own in-process consumer.
package bridge

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/oldline/p3gateway/pkg/broker"
	"github.com/oldline/p3gateway/pkg/redis"
)

// Config configures a RedisSink.
type Config struct {
	Addr              string
	Password          string
	DB                int
	WiretapChannel    string
	DeadLetterChannel string
}

// DefaultConfig returns the sink's default Redis channel names.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:              addr,
		WiretapChannel:    "p3:wiretap",
		DeadLetterChannel: "p3:deadletter",
	}
}

// wireMsg is the CBOR envelope published to Redis for each forwarded
// broker message.
type wireMsg struct {
	MsgID   int64          `cbor:"msg_id"`
	Intent  string         `cbor:"intent"`
	Sender  string         `cbor:"sender"`
	Headers map[string]any `cbor:"headers,omitempty"`
	Body    any            `cbor:"body,omitempty"`
}

// RedisSink subscribes broker.Consumers to a Broker's wiretap and
// dead_letter channels and republishes every message it sees to Redis,
// CBOR-encoding the body the way the teacher's writeUARTMessage does.
type RedisSink struct {
	cfg    Config
	client *redis.Client

	wiretap    *broker.Consumer
	deadLetter *broker.Consumer

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewRedisSink connects to Redis and registers consumers on b's
// wiretap and dead_letter channels. Call Run to start forwarding.
func NewRedisSink(cfg Config, b *broker.Broker) (*RedisSink, error) {
	client, err := redis.New(cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("bridge: connect to redis: %w", err)
	}

	wiretap := broker.NewConsumer(b.WiretapChannel())
	wiretap.Register()

	deadLetter := broker.NewConsumer(b.DeadLetterChannel())
	deadLetter.Register()

	return &RedisSink{
		cfg:        cfg,
		client:     client,
		wiretap:    wiretap,
		deadLetter: deadLetter,
	}, nil
}

// Run starts the forwarding goroutines. It returns immediately; call
// Close to stop them.
func (s *RedisSink) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.forward(ctx, s.wiretap, s.cfg.WiretapChannel)
	go s.forward(ctx, s.deadLetter, s.cfg.DeadLetterChannel)
}

func (s *RedisSink) forward(ctx context.Context, consumer *broker.Consumer, redisChannel string) {
	defer s.wg.Done()

	for {
		msg, err := consumer.Get(ctx)
		if err != nil {
			return
		}

		payload, err := encodeWireMsg(msg)
		if err != nil {
			log.Printf("bridge: failed to encode message for %s: %v", redisChannel, err)
			continue
		}

		if err := s.client.Publish(redisChannel, payload); err != nil {
			log.Printf("bridge: failed to publish to %s: %v", redisChannel, err)
			continue
		}

		log.Printf("bridge: forwarded msg_id=%d to %s (%s)", msg.Base().MsgID, redisChannel, hex.EncodeToString(payload[:min(len(payload), 16)]))
	}
}

func encodeWireMsg(msg broker.Msg) ([]byte, error) {
	base := msg.Base()
	w := wireMsg{
		MsgID:   base.MsgID,
		Intent:  base.Intent.String(),
		Sender:  base.Sender,
		Headers: base.Headers,
		Body:    bodyOf(msg),
	}

	data, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal cbor: %w", err)
	}
	return data, nil
}

// bodyOf extracts the variant-specific payload for CBOR encoding. The
// wiretap/dead-letter wrapper types recurse into the wrapped message's
// own body so the Redis consumer sees the original payload, not a
// nested wrapper.
func bodyOf(msg broker.Msg) any {
	switch m := msg.(type) {
	case *broker.CmdMsg:
		return map[string]any{"cmd": m.Cmd, "cmd_args": m.CmdArgs}
	case *broker.DataMsg:
		return map[string]any{"data": m.Data}
	case *broker.EventMsg:
		return map[string]any{"event": m.Event, "data": m.Data}
	case *broker.DeadLetterMsg:
		return map[string]any{"channel_name": m.ChannelName, "msg": bodyOf(m.Msg)}
	case *broker.WiretapMsg:
		return map[string]any{"channel": m.Channel.Name, "msg": bodyOf(m.Msg)}
	default:
		return nil
	}
}

// Close stops the forwarding goroutines, deregisters the sink's
// consumers, and closes the Redis client.
func (s *RedisSink) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.wiretap.Deregister()
	s.deadLetter.Deregister()
	return s.client.Close()
}
