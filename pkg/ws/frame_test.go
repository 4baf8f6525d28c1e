package ws

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(data []byte) *bufio.Reader {
	return bufio.NewReader(bytes.NewReader(data))
}

func TestReadFrame(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		expectMasked bool
		wantErr      error
		verify       func(t *testing.T, f *frame)
	}{
		{
			name: "unmasked text frame",
			data: []byte{
				0x81, // FIN + text opcode
				0x05, // no mask, 5 byte payload
				'H', 'e', 'l', 'l', 'o',
			},
			verify: func(t *testing.T, f *frame) {
				assert.True(t, f.fin)
				assert.Equal(t, byte(opcodeText), f.opcode)
				assert.False(t, f.masked)
				assert.Equal(t, []byte("Hello"), f.payload)
			},
		},
		{
			name: "masked binary frame is unmasked on read",
			data: func() []byte {
				payload := []byte{0x01, 0x02, 0x03}
				key := [4]byte{0xAA, 0xBB, 0xCC, 0xDD}
				masked := make([]byte, len(payload))
				for i := range payload {
					masked[i] = payload[i] ^ key[i%4]
				}
				return append([]byte{
					0x82, // FIN + binary opcode
					0x83, // mask bit + 3 byte payload
					key[0], key[1], key[2], key[3],
				}, masked...)
			}(),
			expectMasked: true,
			verify: func(t *testing.T, f *frame) {
				assert.Equal(t, byte(opcodeBinary), f.opcode)
				assert.True(t, f.masked)
				assert.Equal(t, []byte{0x01, 0x02, 0x03}, f.payload)
			},
		},
		{
			name: "non-final text fragment",
			data: []byte{0x01, 0x02, 'H', 'e'}, // FIN clear
			verify: func(t *testing.T, f *frame) {
				assert.False(t, f.fin)
				assert.Equal(t, byte(opcodeText), f.opcode)
			},
		},
		{
			name:    "reserved bit set",
			data:    []byte{0xC1, 0x00}, // FIN + RSV1 + text
			wantErr: ErrReservedBits,
		},
		{
			name:    "reserved opcode",
			data:    []byte{0x83, 0x00}, // FIN + opcode 0x3
			wantErr: ErrInvalidOpcode,
		},
		{
			name:    "fragmented ping",
			data:    []byte{0x09, 0x00}, // ping without FIN
			wantErr: ErrControlFragmented,
		},
		{
			name:    "ping with 126 byte payload",
			data:    []byte{0x89, 0x7E, 0x00, 0x7E}, // ping, 16-bit length 126
			wantErr: ErrControlTooLarge,
		},
		{
			name: "64-bit length with high bit set",
			data: []byte{
				0x82, 0x7F,
				0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			},
			wantErr: ErrInvalidLength,
		},
		{
			name:         "unmasked frame where masking is required",
			data:         []byte{0x81, 0x01, 'x'},
			expectMasked: true,
			wantErr:      ErrMaskRequired,
		},
		{
			name:    "masked frame where masking is forbidden",
			data:    []byte{0x81, 0x81, 0x01, 0x02, 0x03, 0x04, 'x'},
			wantErr: ErrMaskUnexpected,
		},
		{
			name:    "payload truncated",
			data:    []byte{0x81, 0x05, 'H', 'e'},
			wantErr: ErrTruncatedFrame,
		},
		{
			name:    "header truncated",
			data:    []byte{0x81},
			wantErr: ErrTruncatedFrame,
		},
		{
			name:    "extended length truncated",
			data:    []byte{0x82, 0x7E, 0x01},
			wantErr: ErrTruncatedFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := readFrame(reader(tt.data), tt.expectMasked, 0)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.verify(t, f)
		})
	}
}

func TestReadFrameCleanEOF(t *testing.T) {
	// An empty stream is a clean end between frames, not a truncation.
	_, err := readFrame(reader(nil), false, 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFramePayloadLimit(t *testing.T) {
	data := append([]byte{0x82, 0x7E, 0x10, 0x00}, make([]byte, 4096)...) // declares 4096 bytes
	_, err := readFrame(reader(data), false, 1024)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestWriteFrameRoundTrip(t *testing.T) {
	payloads := map[string][]byte{
		"empty":  nil,
		"small":  []byte("Hello"),
		"binary": {0x00, 0xFF, 0x7E, 0x7F},
	}

	for name, payload := range payloads {
		for _, masked := range []bool{false, true} {
			suffix := "unmasked"
			if masked {
				suffix = "masked"
			}
			t.Run(name+"_"+suffix, func(t *testing.T) {
				var buf bytes.Buffer
				w := bufio.NewWriter(&buf)
				in := &frame{fin: true, opcode: opcodeBinary, masked: masked, payload: payload}
				require.NoError(t, writeFrame(w, in))

				out, err := readFrame(reader(buf.Bytes()), masked, 0)
				require.NoError(t, err)
				assert.Equal(t, in.fin, out.fin)
				assert.Equal(t, in.opcode, out.opcode)
				assert.Equal(t, in.masked, out.masked)
				// Mask keys are random per frame; only the unmasked
				// payload has to survive the trip.
				assert.Equal(t, payload, out.payload)
			})
		}
	}
}

func TestWriteFrameLengthEncodings(t *testing.T) {
	tests := []struct {
		payloadLen int
		wantMarker byte // value of the 7-bit length field
		wantHeader int  // total bytes before the payload
	}{
		{0, 0, 2},
		{125, 125, 2},
		{126, 126, 4},
		{65535, 126, 4},
		{65536, 127, 10},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		w := bufio.NewWriter(&buf)
		in := &frame{fin: true, opcode: opcodeBinary, payload: make([]byte, tt.payloadLen)}
		require.NoError(t, writeFrame(w, in))

		raw := buf.Bytes()
		assert.Equal(t, tt.wantMarker, raw[1]&0x7F, "length marker for %d bytes", tt.payloadLen)
		assert.Equal(t, tt.wantHeader+tt.payloadLen, len(raw), "frame size for %d bytes", tt.payloadLen)

		out, err := readFrame(reader(raw), false, 0)
		require.NoError(t, err)
		assert.Equal(t, tt.payloadLen, len(out.payload), "decoded length for %d bytes", tt.payloadLen)
	}
}

func TestWriteFrameControlValidation(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := writeFrame(w, &frame{fin: false, opcode: opcodePing})
	assert.ErrorIs(t, err, ErrControlFragmented)

	err = writeFrame(w, &frame{fin: true, opcode: opcodePing, payload: make([]byte, 126)})
	assert.ErrorIs(t, err, ErrControlTooLarge)
}

func TestWriteFrameDoesNotMutatePayload(t *testing.T) {
	payload := []byte("sensitive")
	original := append([]byte(nil), payload...)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, writeFrame(w, &frame{fin: true, opcode: opcodeText, masked: true, payload: payload}))

	assert.Equal(t, original, payload)
}

func TestMaskBytesSelfInverse(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x01},
		[]byte("Hello, WebSocket!"),
		bytes.Repeat([]byte{0xA5, 0x5A}, 500),
	}
	keys := [][4]byte{
		{0x00, 0x00, 0x00, 0x00},
		{0xFF, 0xFF, 0xFF, 0xFF},
		{0x12, 0x34, 0x56, 0x78},
	}

	for _, payload := range payloads {
		for _, key := range keys {
			data := append([]byte{}, payload...)
			maskBytes(data, key)
			maskBytes(data, key)
			assert.Equal(t, payload, data)
		}
	}
}
