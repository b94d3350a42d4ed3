package p3

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrPayloadTooSmall is returned when a payload decoder is handed fewer
// bytes than its fixed-format requires.
var ErrPayloadTooSmall = errors.New("p3: payload too small")

// DataPayload is the payload carried by a DATA (0x20) packet: a two-byte
// token followed by opaque data.
type DataPayload struct {
	Token [2]byte
	Data  []byte
}

// Bytes serializes the payload to its wire form.
func (d DataPayload) Bytes() []byte {
	out := make([]byte, 0, 2+len(d.Data))
	out = append(out, d.Token[:]...)
	out = append(out, d.Data...)
	return out
}

// Len returns the encoded length of the payload.
func (d DataPayload) Len() int {
	return 2 + len(d.Data)
}

// DecodeDataPayload parses a DataPayload from raw payload bytes.
func DecodeDataPayload(payload []byte) (DataPayload, error) {
	if len(payload) < 2 {
		return DataPayload{}, fmt.Errorf("%w: got %d bytes", ErrPayloadTooSmall, len(payload))
	}

	var d DataPayload
	copy(d.Token[:], payload[:2])
	d.Data = append([]byte(nil), payload[2:]...)
	return d, nil
}

// V3InitPayload is the fixed 49-byte INIT payload for V3 (older) clients.
// Field order and widths are exactly as specified in spec.md §3/§6.2.
type V3InitPayload struct {
	Platform      uint8
	MajorVer      uint8
	MinorVer      uint8
	Unused        uint8
	MachineMemory uint8
	AppMemory     uint8
	PCType        uint16
	ReleaseMonth  uint8
	ReleaseDay    uint8
	CustomerClass uint16
	UDOTimestamp  uint32
	DOSVer        uint16
	SessionFlags  uint16
	VideoType     uint8
	CPUType       uint8
	MediaType     uint32
	WinVer        uint32
	WinMemoryMode uint8
	HorizontalRes uint16
	VerticalRes   uint16
	NumColors     uint16
	Filler        uint8
	Region        uint16
	Languages     [4]uint16
	ConnectSpeed  uint8
}

// V3InitPayloadSize is the fixed wire size of a V3InitPayload.
const V3InitPayloadSize = 49

// DefaultV3InitPayload returns a V3InitPayload with the defaults given in
// spec.md §6.2 (everything else zero).
func DefaultV3InitPayload() V3InitPayload {
	return V3InitPayload{
		Platform:      0x03,
		MajorVer:      0x6E,
		MinorVer:      0x5F,
		MachineMemory: 0x10,
		ReleaseMonth:  0x05,
		ReleaseDay:    0x0F,
	}
}

// Bytes serializes the payload to its fixed 49-byte big-endian wire form.
func (v V3InitPayload) Bytes() []byte {
	out := make([]byte, V3InitPayloadSize)
	be := binary.BigEndian

	out[0] = v.Platform
	out[1] = v.MajorVer
	out[2] = v.MinorVer
	out[3] = v.Unused
	out[4] = v.MachineMemory
	out[5] = v.AppMemory
	be.PutUint16(out[6:8], v.PCType)
	out[8] = v.ReleaseMonth
	out[9] = v.ReleaseDay
	be.PutUint16(out[10:12], v.CustomerClass)
	be.PutUint32(out[12:16], v.UDOTimestamp)
	be.PutUint16(out[16:18], v.DOSVer)
	be.PutUint16(out[18:20], v.SessionFlags)
	out[20] = v.VideoType
	out[21] = v.CPUType
	be.PutUint32(out[22:26], v.MediaType)
	be.PutUint32(out[26:30], v.WinVer)
	out[30] = v.WinMemoryMode
	be.PutUint16(out[31:33], v.HorizontalRes)
	be.PutUint16(out[33:35], v.VerticalRes)
	be.PutUint16(out[35:37], v.NumColors)
	out[37] = v.Filler
	be.PutUint16(out[38:40], v.Region)
	be.PutUint16(out[40:42], v.Languages[0])
	be.PutUint16(out[42:44], v.Languages[1])
	be.PutUint16(out[44:46], v.Languages[2])
	be.PutUint16(out[46:48], v.Languages[3])
	out[48] = v.ConnectSpeed

	return out
}

// Len always returns V3InitPayloadSize.
func (v V3InitPayload) Len() int {
	return V3InitPayloadSize
}

// DecodeV3InitPayload parses a fixed-layout V3InitPayload from raw payload
// bytes.
func DecodeV3InitPayload(payload []byte) (V3InitPayload, error) {
	if len(payload) < V3InitPayloadSize {
		return V3InitPayload{}, fmt.Errorf("%w: got %d bytes", ErrPayloadTooSmall, len(payload))
	}

	be := binary.BigEndian
	var v V3InitPayload

	v.Platform = payload[0]
	v.MajorVer = payload[1]
	v.MinorVer = payload[2]
	v.Unused = payload[3]
	v.MachineMemory = payload[4]
	v.AppMemory = payload[5]
	v.PCType = be.Uint16(payload[6:8])
	v.ReleaseMonth = payload[8]
	v.ReleaseDay = payload[9]
	v.CustomerClass = be.Uint16(payload[10:12])
	v.UDOTimestamp = be.Uint32(payload[12:16])
	v.DOSVer = be.Uint16(payload[16:18])
	v.SessionFlags = be.Uint16(payload[18:20])
	v.VideoType = payload[20]
	v.CPUType = payload[21]
	v.MediaType = be.Uint32(payload[22:26])
	v.WinVer = be.Uint32(payload[26:30])
	v.WinMemoryMode = payload[30]
	v.HorizontalRes = be.Uint16(payload[31:33])
	v.VerticalRes = be.Uint16(payload[33:35])
	v.NumColors = be.Uint16(payload[35:37])
	v.Filler = payload[37]
	v.Region = be.Uint16(payload[38:40])
	v.Languages[0] = be.Uint16(payload[40:42])
	v.Languages[1] = be.Uint16(payload[42:44])
	v.Languages[2] = be.Uint16(payload[44:46])
	v.Languages[3] = be.Uint16(payload[46:48])
	v.ConnectSpeed = payload[48]

	return v, nil
}
