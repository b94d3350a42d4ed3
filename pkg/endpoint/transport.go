package endpoint

// Transport is the minimal byte-stream a Endpoint drives: something
// that can be read from, written to, closed, and (where it makes
// sense) identified by a peer address.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error

	// PeerAddr returns a string identifying the remote end, or "" if
	// the transport has no notion of one (e.g. a serial port).
	PeerAddr() string
}
