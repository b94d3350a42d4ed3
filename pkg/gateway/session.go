// Package gateway ties the codec (pkg/p3), the byte-stream endpoint
// (pkg/endpoint), and the pub/sub broker (pkg/broker) together into a
// running P3 session: read frames off a transport, decode them, and
// publish the result; accept outbound packets and write them back.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/oldline/p3gateway/pkg/broker"
	"github.com/oldline/p3gateway/pkg/endpoint"
	"github.com/oldline/p3gateway/pkg/p3"
)

// headerSize is the fixed-size prefix of a P3 frame preceding the
// payload: sync(1) + crc(2) + length(2) + tx_seq(1) + rx_seq(1) +
// packet_type(1).
const headerSize = 8

// Session owns one endpoint.Endpoint speaking P3 from the server side
// of the connection and publishes decoded traffic on a broker channel
// named "session:<id>".
type Session struct {
	id       string
	ep       *endpoint.Endpoint
	b        *broker.Broker
	channel  *broker.Channel
	producer *broker.Producer

	txSeq byte
	rxSeq byte
}

// NewSession creates a Session bound to ep, registers its own channel
// and producer on b, and returns it. Call Run to start the read loop.
func NewSession(id string, ep *endpoint.Endpoint, b *broker.Broker) *Session {
	channel := b.AddChannel(fmt.Sprintf("session:%s", id))
	producer := broker.NewProducer(channel)
	producer.Register()

	return &Session{
		id:       id,
		ep:       ep,
		b:        b,
		channel:  channel,
		producer: producer,
	}
}

// Channel returns the session's dedicated broker channel.
func (s *Session) Channel() *broker.Channel { return s.channel }

// PeerAddr returns the address of the connected client, or "" once
// the session's endpoint has disconnected.
func (s *Session) PeerAddr() string { return s.ep.GetPeerName() }

// Close deregisters the session's producer and closes its endpoint.
func (s *Session) Close() error {
	s.producer.Deregister()
	return s.ep.Close()
}

// Run drives the read loop until ctx is cancelled or the endpoint's
// transport closes.
func (s *Session) Run(ctx context.Context) error {
	for {
		pkt, err := s.readPacket(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("gateway: session %s: %w", s.id, err)
		}

		if err := s.handlePacket(ctx, pkt); err != nil {
			log.Printf("gateway: session %s: handle packet: %v", s.id, err)
		}
	}
}

// readPacket reads one complete frame off the endpoint: an 8-byte
// header, then the remainder of the frame as claimed by the header's
// length field (payload plus the trailing msg_end byte).
func (s *Session) readPacket(ctx context.Context) (*p3.Packet, error) {
	header, err := s.ep.RecvExactly(ctx, headerSize)
	if err != nil {
		return nil, fmt.Errorf("recv header: %w", err)
	}

	length := int(header[3])<<8 | int(header[4])
	remaining := length - 3 + 1 // payload bytes (length - 3) plus msg_end
	if remaining < 1 {
		remaining = 1
	}

	rest, err := s.ep.RecvExactly(ctx, remaining)
	if err != nil {
		return nil, fmt.Errorf("recv body: %w", err)
	}

	frame := make([]byte, 0, headerSize+len(rest))
	frame = append(frame, header...)
	frame = append(frame, rest...)

	pkt, err := p3.Decode(frame, p3.Client)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return pkt, nil
}

// handlePacket validates pkt and either publishes it to the session
// channel or replies with a NAK, per the soft-validation-failure
// policy: a bad CRC does not surface as a Go error, it produces a wire
// reply.
func (s *Session) handlePacket(ctx context.Context, pkt *p3.Packet) error {
	if !pkt.IsValidCRC() {
		return s.sendNak(ctx, pkt, p3.NakCRC)
	}
	if !pkt.KnownType {
		// The wire protocol has no NakError code for "unrecognized
		// packet_type" (original_source/src/pyol/p3/packet.py's
		// NakError is CRC/SEQ/LEN only, and is_valid(strict=True)
		// never produces this case on its own). NakLEN is the closest
		// available fit: an unknown type means the frame's shape
		// can't be interpreted, which is nearer to a length/framing
		// complaint than a sequencing one.
		return s.sendNak(ctx, pkt, p3.NakLEN)
	}

	s.rxSeq = pkt.TxSeq

	switch pkt.Type {
	case p3.TypeACK, p3.TypeNAK, p3.TypeHEARTBEAT:
		_, err := s.producer.Notify(s.id, nil, eventName(pkt.Type), nil)
		return err
	default:
		_, err := s.producer.Feed(s.id, map[string]any{"packet_type": pkt.Type}, pkt.Payload)
		return err
	}
}

func eventName(t p3.PacketType) string {
	switch t {
	case p3.TypeACK:
		return "ack"
	case p3.TypeNAK:
		return "nak"
	case p3.TypeHEARTBEAT:
		return "heartbeat"
	default:
		return "unknown"
	}
}

func (s *Session) sendNak(ctx context.Context, pkt *p3.Packet, reason p3.NakError) error {
	nak := p3.ServerNakPacket(s.txSeq, pkt.TxSeq, reason)
	s.txSeq++
	return s.ep.Send(ctx, nak.Encode())
}

// Send builds the wire form of pkt and writes it to the endpoint,
// observing backpressure through Endpoint.Send/Flush.
func (s *Session) Send(ctx context.Context, pkt *p3.Packet) error {
	return s.ep.Send(ctx, pkt.Encode())
}

// NextTxSeq returns the session's current outbound sequence number and
// advances it, for callers constructing their own packets via
// p3.ServerPacket.
func (s *Session) NextTxSeq() byte {
	seq := s.txSeq
	s.txSeq++
	return seq
}

// LastRxSeq returns the most recently observed inbound sequence
// number.
func (s *Session) LastRxSeq() byte {
	return s.rxSeq
}
