// Package msgchan implements spec.md §4.2's Message Channel: per-connection
// framed send/receive over a byte-stream (an SSH exec channel, in this
// module's transport realization — see SPEC_FULL.md §A) with a bounded
// outbound backlog and a contract that must never block the event loop.
//
// The underlying io.ReadWriteCloser (an ssh.Channel in production) offers
// no non-blocking mode of its own, so — exactly as nosshtradamus's Asynk
// wraps a blocking io.Writer in a buffered, goroutine-fed sink — a
// background writer goroutine performs the actual blocking Write calls
// while Enqueue/TrySend only ever touch an in-memory buffer under a mutex.
// Unlike Asynk, which blocks the caller once its ring is full, Enqueue here
// returns a hard failure on overflow: spec §4.2 requires the backlog be
// bounded "so a stalled peer cannot grow memory without bound," and §7
// treats backlog overflow as a failure of that remote, not backpressure.
package msgchan

import (
	"errors"
	"io"
	"sync"

	"github.com/edceza/enthrall/internal/wireproto"
)

// ErrBacklogOverflow is returned by Enqueue when accepting msg would push
// the outbound buffer past its configured quota.
var ErrBacklogOverflow = errors.New("msgchan: outbound backlog overflow")

// DefaultMaxBacklog is the default bound on buffered-but-unsent outbound
// bytes per channel.
const DefaultMaxBacklog = 1 << 20 // 1 MiB

// Channel wraps one bidirectional byte stream with framed, non-blocking
// send/receive, per spec §4.2.
type Channel struct {
	rwc        io.ReadWriteCloser
	maxBacklog int

	writeMu  sync.Mutex
	outbound []byte
	notify   chan struct{}

	writeErrMu sync.Mutex
	writeErr   error
	progress   bool // set by the writer goroutine since the last TrySend poll

	readMu     sync.Mutex
	framer     wireproto.Framer
	readErr    error
	readClosed bool

	closeOnce sync.Once
}

// New wraps rwc with a bounded outbound backlog of maxBacklog bytes. A
// maxBacklog of 0 selects DefaultMaxBacklog.
func New(rwc io.ReadWriteCloser, maxBacklog int) *Channel {
	if maxBacklog <= 0 {
		maxBacklog = DefaultMaxBacklog
	}
	c := &Channel{
		rwc:        rwc,
		maxBacklog: maxBacklog,
		notify:     make(chan struct{}, 1),
	}
	go c.writerLoop()
	go c.readerLoop()
	return c
}

// Enqueue frames and buffers msg for sending. It returns ErrBacklogOverflow
// (without buffering anything) if doing so would exceed the configured
// backlog quota.
func (c *Channel) Enqueue(msg *wireproto.Message) error {
	encoded, err := wireproto.Encode(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if len(c.outbound)+len(encoded) > c.maxBacklog {
		return ErrBacklogOverflow
	}
	c.outbound = append(c.outbound, encoded...)
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// HasOutbound reports whether any bytes remain buffered for send.
func (c *Channel) HasOutbound() bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return len(c.outbound) > 0
}

// TrySend reports whether the background writer has made progress (>0),
// is still waiting for data to drain (0), or hit a fatal write error (<0).
// It never itself blocks.
func (c *Channel) TrySend() int {
	c.writeErrMu.Lock()
	defer c.writeErrMu.Unlock()
	if c.writeErr != nil {
		return -1
	}
	if c.progress {
		c.progress = false
		return 1
	}
	return 0
}

// TryRecv attempts to decode one complete message already read from the
// stream. Returns (msg, 1) on success, (nil, 0) if no complete frame is
// buffered yet (not an error), or (nil, <0) on a framing error or EOF; the
// read error itself is available from RecvError.
func (c *Channel) TryRecv() (*wireproto.Message, int) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	msg, ok, err := c.framer.Next()
	if err != nil {
		return nil, -1
	}
	if ok {
		return msg, 1
	}
	if c.readErr != nil {
		return nil, -1
	}
	return nil, 0
}

// RecvError exposes the terminal read error (EOF or otherwise), if any,
// for logging when TryRecv reports <0.
func (c *Channel) RecvError() error {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	return c.readErr
}

// SendError exposes the terminal write error, if any.
func (c *Channel) SendError() error {
	c.writeErrMu.Lock()
	defer c.writeErrMu.Unlock()
	return c.writeErr
}

// Close closes the underlying stream and discards buffered state. Safe to
// call more than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.rwc.Close()
		c.writeMu.Lock()
		c.outbound = nil
		c.writeMu.Unlock()
		close(c.notify)
	})
	return err
}

func (c *Channel) writerLoop() {
	for range c.notify {
		for {
			c.writeMu.Lock()
			if len(c.outbound) == 0 {
				c.writeMu.Unlock()
				break
			}
			chunk := c.outbound
			c.writeMu.Unlock()

			n, err := c.rwc.Write(chunk)
			if err != nil {
				c.writeErrMu.Lock()
				c.writeErr = err
				c.writeErrMu.Unlock()
				return
			}

			c.writeMu.Lock()
			if n >= len(c.outbound) {
				c.outbound = c.outbound[:0]
			} else {
				c.outbound = c.outbound[n:]
			}
			c.writeMu.Unlock()

			c.writeErrMu.Lock()
			c.progress = true
			c.writeErrMu.Unlock()
		}
	}
}

func (c *Channel) readerLoop() {
	buf := make([]byte, 32*1024)
	for {
		n, err := c.rwc.Read(buf)
		if n > 0 {
			c.readMu.Lock()
			c.framer.Feed(buf[:n])
			c.readMu.Unlock()
		}
		if err != nil {
			c.readMu.Lock()
			if c.readErr == nil {
				c.readErr = err
			}
			c.readClosed = true
			c.readMu.Unlock()
			return
		}
	}
}
