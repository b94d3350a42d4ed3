package endpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
)

// ErrBufferAwaited is returned by Recv/RecvExactly/WaitForBuffer when
// another goroutine is already blocked waiting on the receive buffer.
// The underlying asyncio source enforces the same single-waiter rule
// (a second concurrent waiter almost always indicates a protocol bug,
// not a legitimate use case) and raises RuntimeError for it; Go gets a
// typed error instead.
var ErrBufferAwaited = errors.New("endpoint: buffer already awaited by another caller")

// ErrNotConnected is returned by Send when no transport is attached.
var ErrNotConnected = errors.New("endpoint: not connected")

// Endpoint is a byte-stream connection with a receive buffer and
// context-cancellable blocking reads, grounded on the teacher's
// USOCK read-loop-plus-mutex shape but generalized to any Transport.
type Endpoint struct {
	connected *Flag

	mu            sync.Mutex
	writingPaused bool
	flushWaiters  map[chan struct{}]struct{}
	buffer        bytes.Buffer
	bufferWaiter  chan struct{}

	transport Transport

	closeOnce sync.Once
	done      chan struct{}
	readErr   error
}

// New creates a disconnected Endpoint. Call Attach to bind a Transport.
func New() *Endpoint {
	return &Endpoint{
		connected:    NewFlag(false),
		flushWaiters: make(map[chan struct{}]struct{}),
		done:         make(chan struct{}),
	}
}

// Connected reports the endpoint's connection state as a waitable Flag.
func (e *Endpoint) Connected() *Flag {
	return e.connected
}

// GetPeerName returns the address of the transport's remote end, or
// "" if the endpoint is disconnected or the transport has no notion
// of a peer address (e.g. a serial port).
func (e *Endpoint) GetPeerName() string {
	if !e.connected.IsSet() {
		return ""
	}
	e.mu.Lock()
	t := e.transport
	e.mu.Unlock()
	if t == nil {
		return ""
	}
	return t.PeerAddr()
}

// Attach binds transport to the endpoint and starts its read loop.
// This is the Go equivalent of connection_made firing after the event
// loop establishes a connection.
func (e *Endpoint) Attach(transport Transport) {
	e.mu.Lock()
	e.transport = transport
	e.writingPaused = false
	e.mu.Unlock()

	e.connected.Set()
	go e.readLoop()
}

func (e *Endpoint) readLoop() {
	defer close(e.done)

	buf := make([]byte, 4096)
	for {
		n, err := e.transport.Read(buf)
		if n > 0 {
			e.mu.Lock()
			e.buffer.Write(buf[:n])
			waiter := e.bufferWaiter
			e.bufferWaiter = nil
			e.mu.Unlock()

			if waiter != nil {
				close(waiter)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("endpoint: read error: %v", err)
			}
			e.mu.Lock()
			e.readErr = err
			e.mu.Unlock()
			e.connected.Clear()
			return
		}
	}
}

// Close shuts down the transport and marks the endpoint disconnected.
func (e *Endpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.writingPaused = true
		t := e.transport
		e.mu.Unlock()

		e.connected.Clear()
		if t != nil {
			err = t.Close()
		}
		<-e.done
	})
	return err
}

// Send writes data to the transport, then waits for it to drain.
func (e *Endpoint) Send(ctx context.Context, data []byte) error {
	e.mu.Lock()
	t := e.transport
	e.mu.Unlock()
	if t == nil {
		return ErrNotConnected
	}

	if _, err := t.Write(data); err != nil {
		return fmt.Errorf("endpoint: write: %w", err)
	}
	return e.Flush(ctx)
}

// Flush waits until the endpoint's writing side is no longer paused.
// Plain net.Conn and serial writes are already blocking, so this is
// typically a no-op; it exists so transports that do signal
// backpressure (via PauseWriting/ResumeWriting) can make Send's
// callers wait the same way the asyncio original does.
func (e *Endpoint) Flush(ctx context.Context) error {
	e.mu.Lock()
	if !e.writingPaused {
		e.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	e.flushWaiters[ch] = struct{}{}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.flushWaiters, ch)
		e.mu.Unlock()
	}()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PauseWriting marks the endpoint's output as backpressured. A
// Transport implementation that can detect a full OS send buffer may
// call this to make Flush's callers wait.
func (e *Endpoint) PauseWriting() {
	e.mu.Lock()
	e.writingPaused = true
	e.mu.Unlock()
}

// ResumeWriting clears backpressure and wakes any Flush waiters.
func (e *Endpoint) ResumeWriting() {
	e.mu.Lock()
	e.writingPaused = false
	waiters := e.flushWaiters
	e.flushWaiters = make(map[chan struct{}]struct{}, len(waiters))
	e.mu.Unlock()

	for ch := range waiters {
		close(ch)
	}
}

// Recv receives at most size bytes, blocking until at least one byte
// is available.
func (e *Endpoint) Recv(ctx context.Context, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("endpoint: invalid size %d, must be >= 0", size)
	}
	if size == 0 {
		return nil, nil
	}

	e.mu.Lock()
	empty := e.buffer.Len() == 0
	e.mu.Unlock()
	if empty {
		if err := e.waitForBuffer(ctx, "Recv"); err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]byte, size)
	n, _ := e.buffer.Read(out)
	return out[:n], nil
}

// RecvExactly receives exactly size bytes, blocking until all of them
// have arrived.
func (e *Endpoint) RecvExactly(ctx context.Context, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("endpoint: invalid size %d, must be >= 0", size)
	}
	if size == 0 {
		return nil, nil
	}

	for {
		e.mu.Lock()
		have := e.buffer.Len()
		e.mu.Unlock()
		if have >= size {
			break
		}
		if err := e.waitForBuffer(ctx, "RecvExactly"); err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]byte, size)
	n, _ := e.buffer.Read(out)
	return out[:n], nil
}

// WaitForBuffer blocks until the receive buffer has at least one byte.
func (e *Endpoint) WaitForBuffer(ctx context.Context) error {
	return e.waitForBuffer(ctx, "WaitForBuffer")
}

func (e *Endpoint) waitForBuffer(ctx context.Context, caller string) error {
	e.mu.Lock()
	if e.buffer.Len() > 0 {
		e.mu.Unlock()
		return nil
	}
	if e.bufferWaiter != nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s() called while another caller is waiting", ErrBufferAwaited, caller)
	}
	ch := make(chan struct{})
	e.bufferWaiter = ch
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		e.mu.Lock()
		if e.bufferWaiter == ch {
			e.bufferWaiter = nil
		}
		e.mu.Unlock()
		return ctx.Err()
	}
}
