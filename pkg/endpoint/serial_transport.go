package endpoint

import (
	"fmt"

	"go.bug.st/serial"
)

// serialTransport adapts a serial.Port to Transport. A serial link has
// no peer address, so PeerAddr always reports "".
type serialTransport struct {
	serial.Port
}

func (serialTransport) PeerAddr() string { return "" }

// SerialConfig describes how to open a serial port for a P3 link,
// adapted from the teacher's usock.New serial.Config setup.
type SerialConfig struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits
}

// DefaultSerialConfig returns the 8N1 configuration the teacher used
// for its nRF52 UART link.
func DefaultSerialConfig(device string, baudRate int) SerialConfig {
	return SerialConfig{
		Device:   device,
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// OpenSerial opens a serial port and returns an Endpoint attached to
// it.
func OpenSerial(cfg SerialConfig) (*Endpoint, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   cfg.Parity,
		StopBits: cfg.StopBits,
	}

	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("endpoint: open serial port %s: %w", cfg.Device, err)
	}

	ep := New()
	ep.Attach(serialTransport{port})
	return ep, nil
}
