package ws

import (
	"bufio"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WebSocket frame opcodes (RFC 6455 Section 5.2).
// 0x0-0x2 are data frames, 0x8-0xA are control frames; the rest are reserved.
const (
	opcodeContinuation = 0x0
	opcodeText         = 0x1
	opcodeBinary       = 0x2
	opcodeClose        = 0x8
	opcodePing         = 0x9
	opcodePong         = 0xA
)

const (
	// maxControlPayload is the RFC 6455 Section 5.5 limit for control
	// frame payloads.
	maxControlPayload = 125

	// defaultMaxPayload bounds a single inbound frame payload (32 MiB).
	// Overridable per connection.
	defaultMaxPayload = 32 << 20
)

// frame is one wire-format unit: a fragment of a data message or a complete
// control signal.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-------+-+-------------+-------------------------------+
//	|F|R|R|R| opcode|M| Payload len |    Extended payload length    |
//	|I|S|S|S|  (4)  |A|     (7)     |             (16/64)           |
//	|N|V|V|V|       |S|             |   (if payload len==126/127)   |
//	+-+-+-+-+-------+-+-------------+-------------------------------+
//	|  Masking-key, if MASK set     |          Payload Data         |
//	+-------------------------------+-------------------------------+
type frame struct {
	fin              bool
	rsv1, rsv2, rsv3 bool
	opcode           byte
	masked           bool
	maskKey          [4]byte
	payload          []byte
}

func isControlOpcode(opcode byte) bool {
	return opcode&0x08 != 0
}

func isValidOpcode(opcode byte) bool {
	switch opcode {
	case opcodeContinuation, opcodeText, opcodeBinary,
		opcodeClose, opcodePing, opcodePong:
		return true
	default:
		return false
	}
}

// readFrame reads and validates one frame from the stream. expectMasked is
// the masking rule for the local role: a server expects masked frames from
// clients, a client expects unmasked frames from servers.
//
// A clean end of stream before the first header byte surfaces as io.EOF; any
// end of stream after that is ErrTruncatedFrame. On any validation failure
// the stream must be considered broken - frames carry no resynchronization
// marker, so there is no partial recovery.
func readFrame(r *bufio.Reader, expectMasked bool, maxPayload int64) (*frame, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedFrame
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	f := &frame{
		fin:    header[0]&0x80 != 0,
		rsv1:   header[0]&0x40 != 0,
		rsv2:   header[0]&0x20 != 0,
		rsv3:   header[0]&0x10 != 0,
		opcode: header[0] & 0x0F,
		masked: header[1]&0x80 != 0,
	}

	// No extensions are negotiated, so reserved bits are a protocol
	// violation rather than something to ignore.
	if f.rsv1 || f.rsv2 || f.rsv3 {
		return nil, ErrReservedBits
	}
	if !isValidOpcode(f.opcode) {
		return nil, fmt.Errorf("%w: 0x%X", ErrInvalidOpcode, f.opcode)
	}
	if isControlOpcode(f.opcode) && !f.fin {
		return nil, ErrControlFragmented
	}
	if f.masked != expectMasked {
		if f.masked {
			return nil, ErrMaskUnexpected
		}
		return nil, ErrMaskRequired
	}

	payloadLen := uint64(header[1] & 0x7F)
	switch payloadLen {
	case 126:
		var ext [2]byte
		if err := readFrameBytes(r, ext[:]); err != nil {
			return nil, err
		}
		payloadLen = uint64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if err := readFrameBytes(r, ext[:]); err != nil {
			return nil, err
		}
		payloadLen = binary.BigEndian.Uint64(ext[:])
		// RFC 6455 Section 5.2: the most significant bit must be zero.
		if payloadLen&(1<<63) != 0 {
			return nil, ErrInvalidLength
		}
	}

	if isControlOpcode(f.opcode) && payloadLen > maxControlPayload {
		return nil, ErrControlTooLarge
	}
	if maxPayload > 0 && payloadLen > uint64(maxPayload) {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, payloadLen)
	}

	if f.masked {
		if err := readFrameBytes(r, f.maskKey[:]); err != nil {
			return nil, err
		}
	}

	if payloadLen > 0 {
		f.payload = make([]byte, payloadLen)
		if err := readFrameBytes(r, f.payload); err != nil {
			return nil, err
		}
		if f.masked {
			maskBytes(f.payload, f.maskKey)
		}
	}

	return f, nil
}

// readFrameBytes fills buf from the stream. Once a frame header has been
// seen the stream must deliver the whole frame, so any end of stream here is
// a truncation, not a clean close.
func readFrameBytes(r *bufio.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncatedFrame
		}
		return fmt.Errorf("read frame: %w", err)
	}
	return nil
}

// writeFrame serializes one frame and flushes it. A masked frame gets a fresh
// random mask key; the caller's payload is never modified, masking happens on
// a copy.
func writeFrame(w *bufio.Writer, f *frame) error {
	if isControlOpcode(f.opcode) {
		if !f.fin {
			return ErrControlFragmented
		}
		if len(f.payload) > maxControlPayload {
			return ErrControlTooLarge
		}
	}

	var header [2]byte
	if f.fin {
		header[0] |= 0x80
	}
	header[0] |= f.opcode & 0x0F
	if f.masked {
		header[1] |= 0x80
	}

	// Smallest length encoding that fits (RFC 6455 Section 5.2).
	payloadLen := uint64(len(f.payload))
	var ext []byte
	switch {
	case payloadLen <= 125:
		header[1] |= byte(payloadLen)
	case payloadLen <= 0xFFFF:
		header[1] |= 126
		ext = make([]byte, 2)
		binary.BigEndian.PutUint16(ext, uint16(payloadLen))
	default:
		header[1] |= 127
		ext = make([]byte, 8)
		binary.BigEndian.PutUint64(ext, payloadLen)
	}

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if len(ext) > 0 {
		if _, err := w.Write(ext); err != nil {
			return fmt.Errorf("write extended length: %w", err)
		}
	}

	payload := f.payload
	if f.masked {
		if _, err := rand.Read(f.maskKey[:]); err != nil {
			return fmt.Errorf("generate mask key: %w", err)
		}
		if _, err := w.Write(f.maskKey[:]); err != nil {
			return fmt.Errorf("write mask key: %w", err)
		}
		payload = make([]byte, len(f.payload))
		copy(payload, f.payload)
		maskBytes(payload, f.maskKey)
	}

	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush frame: %w", err)
	}
	return nil
}

// maskBytes XORs data in place with the 4-byte mask key (RFC 6455 Section
// 5.3). XOR is self-inverse, so the same call masks and unmasks.
func maskBytes(data []byte, key [4]byte) {
	for i := range data {
		data[i] ^= key[i%4]
	}
}
