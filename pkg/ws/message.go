package ws

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// MessageType identifies the variant of a Message. The values match the wire
// opcodes, so conversion between the two is direct.
type MessageType int

// Message type values.
const (
	TextMessage   MessageType = 1
	BinaryMessage MessageType = 2
	CloseMessage  MessageType = 8
	PingMessage   MessageType = 9
	PongMessage   MessageType = 10
)

// String returns a human-readable name for the message type.
func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	case CloseMessage:
		return "close"
	case PingMessage:
		return "ping"
	case PongMessage:
		return "pong"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Message is one complete application-level unit, possibly reassembled from
// several fragments. Text payloads are guaranteed valid UTF-8 on the inbound
// path; Close payloads can be split with ParseClose.
type Message struct {
	Type MessageType
	Data []byte
}

// Close status codes (RFC 6455 Section 7.4.1).
const (
	CloseNormalClosure    = 1000
	CloseGoingAway        = 1001
	CloseProtocolError    = 1002
	CloseNoStatusReceived = 1005
	CloseInvalidPayload   = 1007
	CloseMessageTooBig    = 1009
	CloseInternalError    = 1011
)

// ParseClose splits a close payload into status code and reason. An empty
// payload is legal and reports CloseNoStatusReceived; a single-byte payload
// is too short to carry the big-endian status code and is a protocol
// violation.
func ParseClose(data []byte) (code int, reason string, err error) {
	if len(data) == 0 {
		return CloseNoStatusReceived, "", nil
	}
	if len(data) < 2 {
		return 0, "", ErrInvalidClosePayload
	}
	if !utf8.Valid(data[2:]) {
		return 0, "", ErrInvalidUTF8
	}
	return int(binary.BigEndian.Uint16(data[:2])), string(data[2:]), nil
}

// FormatClose encodes a close payload from a status code and reason.
func FormatClose(code int, reason string) []byte {
	buf := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(buf, uint16(code))
	copy(buf[2:], reason)
	return buf
}

// assembler reconstructs messages from the inbound frame sequence. It holds
// the single piece of per-connection protocol state: at most one fragmented
// message in progress. Control frames pass straight through and never touch
// that state, so they may be interleaved between fragments.
type assembler struct {
	active bool
	opcode byte
	buf    []byte
}

// push feeds the next frame to the state machine. It returns a complete
// message and true when one is ready. Any sequencing violation is terminal
// for the connection.
func (a *assembler) push(f *frame) (Message, bool, error) {
	if isControlOpcode(f.opcode) {
		// A close payload of exactly one byte cannot hold a status code.
		if f.opcode == opcodeClose && len(f.payload) == 1 {
			return Message{}, false, ErrInvalidClosePayload
		}
		return Message{Type: MessageType(f.opcode), Data: f.payload}, true, nil
	}

	switch {
	case f.opcode == opcodeContinuation:
		if !a.active {
			return Message{}, false, ErrUnexpectedContinuation
		}
		a.buf = append(a.buf, f.payload...)
	case a.active:
		return Message{}, false, ErrFragmentInProgress
	default:
		a.active = true
		a.opcode = f.opcode
		a.buf = append([]byte(nil), f.payload...)
	}

	if !f.fin {
		return Message{}, false, nil
	}

	msg := Message{Type: MessageType(a.opcode), Data: a.buf}
	a.active = false
	a.opcode = 0
	a.buf = nil

	// UTF-8 validity is a property of the assembled message, not of the
	// individual fragments (a rune may span a fragment boundary).
	if msg.Type == TextMessage && !utf8.Valid(msg.Data) {
		return Message{}, false, ErrInvalidUTF8
	}
	return msg, true, nil
}

// frames decomposes a message into wire frames. Control messages always map
// to a single frame. Data messages map to a single frame too, unless maxSize
// is positive and the payload is larger, in which case the payload is split
// into a first frame plus continuations of at most maxSize bytes each.
func (m Message) frames(maxSize int) ([]*frame, error) {
	op := byte(m.Type)
	if !isValidOpcode(op) || op == opcodeContinuation {
		return nil, fmt.Errorf("%w: message type %d", ErrInvalidOpcode, int(m.Type))
	}

	if isControlOpcode(op) || maxSize <= 0 || len(m.Data) <= maxSize {
		return []*frame{{fin: true, opcode: op, payload: m.Data}}, nil
	}

	var frames []*frame
	rest := m.Data
	for first := true; ; first = false {
		n := min(len(rest), maxSize)
		f := &frame{opcode: opcodeContinuation, payload: rest[:n]}
		if first {
			f.opcode = op
		}
		rest = rest[n:]
		f.fin = len(rest) == 0
		frames = append(frames, f)
		if f.fin {
			return frames, nil
		}
	}
}
