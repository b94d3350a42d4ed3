package p3

// newPacket builds a fresh, not-yet-encoded Packet for the given
// direction/type/sequence numbers/payload, with Sync/MsgEnd/Length/CRC
// set to their canonical values. This is the Go equivalent of
// PacketKit.client_packet/server_packet in the Python source.
func newPacket(dir Direction, pt PacketType, txSeq, rxSeq byte, payload []byte) *Packet {
	p := &Packet{
		Sync:      SyncByte,
		TxSeq:     txSeq,
		RxSeq:     rxSeq,
		Type:      pt,
		RawType:   uint8(pt),
		KnownType: true,
		Payload:   payload,
		MsgEnd:    MsgEndByte,
		Dir:       dir,
	}
	p.Length = uint16(len(p.Payload) + 3)
	p.CRC = p.ComputeCRC()
	return p
}

// ClientPacket builds a client-direction packet of the given type.
func ClientPacket(pt PacketType, txSeq, rxSeq byte, payload []byte) *Packet {
	return newPacket(Client, pt, txSeq, rxSeq, payload)
}

// ServerPacket builds a server-direction packet of the given type.
func ServerPacket(pt PacketType, txSeq, rxSeq byte, payload []byte) *Packet {
	return newPacket(Server, pt, txSeq, rxSeq, payload)
}

// ClientDataPacket builds a client-direction DATA packet.
func ClientDataPacket(txSeq, rxSeq byte, token [2]byte, data []byte) *Packet {
	return ClientPacket(TypeDATA, txSeq, rxSeq, DataPayload{Token: token, Data: data}.Bytes())
}

// ServerDataPacket builds a server-direction DATA packet.
func ServerDataPacket(txSeq, rxSeq byte, token [2]byte, data []byte) *Packet {
	return ServerPacket(TypeDATA, txSeq, rxSeq, DataPayload{Token: token, Data: data}.Bytes())
}

// ClientAckPacket builds a client-direction ACK packet (empty payload).
func ClientAckPacket(txSeq, rxSeq byte) *Packet {
	return ClientPacket(TypeACK, txSeq, rxSeq, nil)
}

// ServerAckPacket builds a server-direction ACK packet (empty payload).
func ServerAckPacket(txSeq, rxSeq byte) *Packet {
	return ServerPacket(TypeACK, txSeq, rxSeq, nil)
}

// ClientNakPacket builds a client-direction NAK packet carrying a single
// NakError byte.
func ClientNakPacket(txSeq, rxSeq byte, nak NakError) *Packet {
	return ClientPacket(TypeNAK, txSeq, rxSeq, []byte{byte(nak)})
}

// ServerNakPacket builds a server-direction NAK packet carrying a single
// NakError byte.
func ServerNakPacket(txSeq, rxSeq byte, nak NakError) *Packet {
	return ServerPacket(TypeNAK, txSeq, rxSeq, []byte{byte(nak)})
}

// ClientHeartbeatPacket builds a client-direction HEARTBEAT packet.
func ClientHeartbeatPacket(txSeq, rxSeq byte) *Packet {
	return ClientPacket(TypeHEARTBEAT, txSeq, rxSeq, nil)
}

// ServerHeartbeatPacket builds a server-direction HEARTBEAT packet.
func ServerHeartbeatPacket(txSeq, rxSeq byte) *Packet {
	return ServerPacket(TypeHEARTBEAT, txSeq, rxSeq, nil)
}

// ClientInitPacket builds a client-direction INIT packet carrying a
// V3InitPayload.
func ClientInitPacket(txSeq, rxSeq byte, init V3InitPayload) *Packet {
	return ClientPacket(TypeINIT, txSeq, rxSeq, init.Bytes())
}

// ServerInitPacket builds a server-direction INIT packet carrying a
// V3InitPayload.
func ServerInitPacket(txSeq, rxSeq byte, init V3InitPayload) *Packet {
	return ServerPacket(TypeINIT, txSeq, rxSeq, init.Bytes())
}
