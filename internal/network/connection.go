// Package network implements the per-connection framing/dispatch layer
// and the protocol-phase handshake/status/login handlers. Each
// Connection owns a read flow and a write flow; the current handler is
// swapped atomically with respect to dispatch, so a handler's SetPhase
// and SetHandler calls take effect strictly before the next frame.
package network

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ErikPelli/mc1710d/internal/protocol"
)

// Phase is one of the four connection phases named in spec.md §3.2.
// Transitions are one-way: Handshake -> {Status, Login}, Login -> Play.
type Phase int32

const (
	PhaseHandshake Phase = iota
	PhaseStatus
	PhaseLogin
	PhasePlay
)

func (p Phase) String() string {
	switch p {
	case PhaseHandshake:
		return "handshake"
	case PhaseStatus:
		return "status"
	case PhaseLogin:
		return "login"
	case PhasePlay:
		return "play"
	default:
		return "unknown"
	}
}

// Handler processes one packet id/body pair for whichever phase it was
// installed under.
type Handler interface {
	HandlePacket(c *Connection, id int32, body *bytes.Reader) error
}

// Connection represents one client socket: its phase, its current
// handler, an exclusively-owned read path, and a FIFO outbound queue
// drained by a dedicated writer goroutine.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader

	remoteAddr string

	phase atomic.Int32

	handlerMu sync.Mutex
	handler   Handler

	outMu     sync.Mutex
	outCond   *sync.Cond
	outQueue  [][]byte
	closed    bool

	// lastDisconnect is set to the human-readable disconnect reason (JSON
	// chat component text) when a phase sends a disconnect before
	// closing.
	lastDisconnect string
}

// New wraps conn into a Connection starting in PhaseHandshake with no
// handler installed (callers must SetHandler before calling Serve).
func New(conn net.Conn) *Connection {
	c := &Connection{
		conn:       conn,
		reader:     bufio.NewReaderSize(conn, 8192),
		remoteAddr: conn.RemoteAddr().String(),
	}
	c.phase.Store(int32(PhaseHandshake))
	c.outCond = sync.NewCond(&c.outMu)
	return c
}

// RemoteAddr returns the connection's remote address string.
func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// Phase returns the connection's current phase.
func (c *Connection) Phase() Phase { return Phase(c.phase.Load()) }

// SetPhase transitions the connection to a new phase. Callers are
// expected to only move forward per the one-way phase graph; this
// function does not itself validate the edge, since phase handlers are
// the ones that know which edges are legal.
func (c *Connection) SetPhase(p Phase) { c.phase.Store(int32(p)) }

// SetHandler installs h as the packet handler for subsequent dispatches.
// The swap is a single pointer assignment under a lock, so it is atomic
// with respect to the dispatch loop reading the handler.
func (c *Connection) SetHandler(h Handler) {
	c.handlerMu.Lock()
	c.handler = h
	c.handlerMu.Unlock()
}

func (c *Connection) currentHandler() Handler {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	return c.handler
}

// Send enqueues a packet for the writer flow, preserving enqueue order.
func (c *Connection) Send(pkt *protocol.Packet) error {
	payload, err := pkt.Encode()
	if err != nil {
		return err
	}
	var framed bytes.Buffer
	if err := protocol.WriteFrame(&framed, payload); err != nil {
		return err
	}
	return c.enqueue(framed.Bytes())
}

func (c *Connection) enqueue(framed []byte) error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if c.closed {
		return io.ErrClosedPipe
	}
	c.outQueue = append(c.outQueue, framed)
	c.outCond.Signal()
	return nil
}

// Disconnect sends a disconnect/kick JSON chat component (the caller
// supplies the packet id appropriate to the current phase) then closes
// the connection once the writer has drained it.
func (c *Connection) Disconnect(pkt *protocol.Packet, reason string) {
	c.lastDisconnect = reason
	_ = c.Send(pkt)
	c.closeWriterWhenDrained()
}

// CloseAfterDrain marks the connection for closing once its outbound
// queue has been fully written, without enqueuing anything itself. Used
// after a handler has already queued its final packet (e.g. a status
// Pong) and simply wants the socket to close once it's on the wire.
func (c *Connection) CloseAfterDrain() {
	c.closeWriterWhenDrained()
}

func (c *Connection) closeWriterWhenDrained() {
	// The writer goroutine observes c.closed and the empty queue, exits,
	// and closes the socket, which also ends Serve's read loop.
	c.outMu.Lock()
	c.closed = true
	c.outCond.Signal()
	c.outMu.Unlock()
}

// Close closes the underlying socket immediately, aborting all in-flight
// work on this connection. Queued outbound packets are dropped.
func (c *Connection) Close() error {
	c.outMu.Lock()
	c.closed = true
	c.outQueue = nil
	c.outCond.Signal()
	c.outMu.Unlock()
	return c.conn.Close()
}

// Serve runs the read-dispatch loop on the calling goroutine and starts
// a writer goroutine; it returns when the connection is closed or a
// protocol error ends the read loop.
func (c *Connection) Serve() {
	go c.writeLoop()
	defer c.closeWriterWhenDrained()

	for {
		payload, err := protocol.ReadFrame(c.reader)
		if err != nil {
			return
		}
		id, body, err := protocol.ParsePacket(payload)
		if err != nil {
			return
		}
		h := c.currentHandler()
		if h == nil {
			return
		}
		if err := h.HandlePacket(c, id, body); err != nil {
			return
		}
	}
}

func (c *Connection) writeLoop() {
	defer c.conn.Close()
	for {
		c.outMu.Lock()
		for len(c.outQueue) == 0 && !c.closed {
			c.outCond.Wait()
		}
		if len(c.outQueue) == 0 && c.closed {
			c.outMu.Unlock()
			return
		}
		batch := c.outQueue
		c.outQueue = nil
		c.outMu.Unlock()

		for _, frame := range batch {
			if err := writeFull(c.conn, frame); err != nil {
				c.outMu.Lock()
				c.closed = true
				c.outMu.Unlock()
				return
			}
		}
	}
}

// writeFull loops on short writes so a frame is always emitted whole.
func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
