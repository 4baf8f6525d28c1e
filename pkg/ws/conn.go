package ws

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Conn is an established WebSocket connection. It owns the upgraded byte
// stream and exposes it as a consumable sequence of inbound Messages and a
// sink for outbound ones.
//
// A Conn supports one logical reader and any number of writers: reads must
// come from a single goroutine, writes are serialized internally. Reading and
// writing may proceed concurrently - the protocol is full-duplex, but each
// direction is sequential.
//
// Timeout and cancellation policy belongs to the transport that produced the
// stream; the Conn itself never imposes deadlines.
type Conn struct {
	rwc    io.ReadWriteCloser
	br     *bufio.Reader
	client bool // client role masks outbound frames

	writeMu    sync.Mutex
	bw         *bufio.Writer
	wroteClose bool

	asm        assembler
	readErr    error // sticky terminal read state
	maxPayload int64
	maxFrame   int

	logger *zap.Logger
}

// newConn wraps an upgraded byte stream. br may carry bytes already buffered
// by the HTTP layer (server-side hijack); nil means a fresh reader.
func newConn(rwc io.ReadWriteCloser, br *bufio.Reader, client bool, maxFrame int, logger *zap.Logger) *Conn {
	if br == nil {
		br = bufio.NewReader(rwc)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{
		rwc:        rwc,
		br:         br,
		bw:         bufio.NewWriter(rwc),
		client:     client,
		maxPayload: defaultMaxPayload,
		maxFrame:   maxFrame,
		logger:     logger,
	}
}

// ReadMessage blocks until the next complete message arrives and returns it.
// Every variant is delivered, control messages included: a Ping is answered
// with a Pong before delivery, and the first Close triggers a close reply.
// After a Close has been delivered, and after any protocol or transport
// error, subsequent calls return the same terminal error.
func (c *Conn) ReadMessage() (Message, error) {
	if c.readErr != nil {
		return Message{}, c.readErr
	}

	for {
		f, err := readFrame(c.br, !c.client, c.maxPayload)
		if err != nil {
			// A clean end of stream between frames still means the
			// peer vanished without a close frame.
			if errors.Is(err, io.EOF) {
				err = ErrConnectionClosed
			}
			c.readErr = err
			return Message{}, err
		}

		msg, ok, err := c.asm.push(f)
		if err != nil {
			c.readErr = err
			return Message{}, err
		}
		if !ok {
			continue
		}

		c.logger.Debug("message received",
			zap.Stringer("type", msg.Type),
			zap.Int("length", len(msg.Data)),
		)

		switch msg.Type {
		case PingMessage:
			if err := c.WritePong(msg.Data); err != nil && !errors.Is(err, ErrConnectionClosed) {
				c.readErr = err
				return Message{}, err
			}
		case CloseMessage:
			c.replyClose(msg.Data)
			c.readErr = ErrConnectionClosed
		}

		return msg, nil
	}
}

// replyClose echoes the peer's close, best effort. Sent at most once per
// connection; WriteMessage enforces that.
func (c *Conn) replyClose(payload []byte) {
	code, _, err := ParseClose(payload)
	if err != nil || code == CloseNoStatusReceived {
		code = CloseNormalClosure
	}
	if err := c.WriteClose(code, ""); err != nil && !errors.Is(err, ErrConnectionClosed) {
		c.logger.Debug("close reply failed", zap.Error(err))
	}
}

// WriteMessage serializes a message onto the wire. Data messages are split
// into continuation frames when the connection has a maximum frame size
// configured; control messages always go out as a single frame. Safe for
// concurrent use.
func (c *Conn) WriteMessage(msg Message) error {
	frames, err := msg.frames(c.maxFrame)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.wroteClose {
		return ErrConnectionClosed
	}
	if msg.Type == CloseMessage {
		c.wroteClose = true
	}

	for _, f := range frames {
		f.masked = c.client
		if err := writeFrame(c.bw, f); err != nil {
			return err
		}
	}

	c.logger.Debug("message sent",
		zap.Stringer("type", msg.Type),
		zap.Int("length", len(msg.Data)),
		zap.Int("frames", len(frames)),
	)
	return nil
}

// WriteText sends a text message. The payload should be valid UTF-8; the
// peer is entitled to drop the connection otherwise.
func (c *Conn) WriteText(s string) error {
	return c.WriteMessage(Message{Type: TextMessage, Data: []byte(s)})
}

// WriteBinary sends a binary message.
func (c *Conn) WriteBinary(data []byte) error {
	return c.WriteMessage(Message{Type: BinaryMessage, Data: data})
}

// WritePing sends a ping with the given payload (125 bytes at most).
func (c *Conn) WritePing(data []byte) error {
	return c.WriteMessage(Message{Type: PingMessage, Data: data})
}

// WritePong sends a pong with the given payload (125 bytes at most).
func (c *Conn) WritePong(data []byte) error {
	return c.WriteMessage(Message{Type: PongMessage, Data: data})
}

// WriteClose sends a close frame carrying a status code and optional reason.
// Only the first close frame is written; later attempts report
// ErrConnectionClosed.
func (c *Conn) WriteClose(code int, reason string) error {
	return c.WriteMessage(Message{Type: CloseMessage, Data: FormatClose(code, reason)})
}

// Close sends a normal-closure close frame, best effort, and closes the
// underlying stream.
func (c *Conn) Close() error {
	_ = c.WriteClose(CloseNormalClosure, "")
	if err := c.rwc.Close(); err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}
