package ws

import (
	"errors"
	"fmt"
)

// Handshake failures. All of these are terminal for the connection attempt:
// the connection never transitions to frame mode and this layer never retries.
var (
	// ErrUnsupportedScheme indicates a dial URL with a scheme other than
	// ws, wss, http or https.
	ErrUnsupportedScheme = errors.New("ws: unsupported URL scheme")

	// ErrMissingAcceptHeader indicates a 101 response without a
	// Sec-WebSocket-Accept header.
	ErrMissingAcceptHeader = errors.New("ws: no Sec-WebSocket-Accept header in response")

	// ErrWrongAcceptHeader indicates the Sec-WebSocket-Accept value did not
	// match the one derived from our key. The comparison is exact-byte.
	ErrWrongAcceptHeader = errors.New("ws: wrong Sec-WebSocket-Accept header")

	// ErrUpgradeFailed indicates the HTTP layer refused to relinquish the
	// underlying connection after a 101 response.
	ErrUpgradeFailed = errors.New("ws: HTTP layer did not relinquish the connection")
)

// Framing and message failures. WebSocket framing has no resynchronization
// token, so every one of these is terminal: the connection must be torn down,
// not resynchronized.
var (
	// ErrReservedBits indicates a frame with RSV1/RSV2/RSV3 set. No
	// extensions are negotiated, so the bits must be zero.
	ErrReservedBits = errors.New("ws: reserved bits must be zero")

	// ErrInvalidOpcode indicates a reserved or unknown opcode (0x3-0x7, 0xB-0xF).
	ErrInvalidOpcode = errors.New("ws: invalid opcode")

	// ErrControlFragmented indicates a control frame with FIN clear.
	ErrControlFragmented = errors.New("ws: fragmented control frame")

	// ErrControlTooLarge indicates a control frame payload over 125 bytes.
	ErrControlTooLarge = errors.New("ws: control frame payload exceeds 125 bytes")

	// ErrInvalidLength indicates a 64-bit payload length with the most
	// significant bit set.
	ErrInvalidLength = errors.New("ws: invalid payload length")

	// ErrFrameTooLarge indicates a frame payload over the configured limit.
	ErrFrameTooLarge = errors.New("ws: frame payload exceeds limit")

	// ErrTruncatedFrame indicates the stream ended while a frame was
	// incomplete. Distinct from a clean close between frames.
	ErrTruncatedFrame = errors.New("ws: stream ended inside a frame")

	// ErrMaskRequired indicates an unmasked frame where the protocol role
	// requires masking (client-to-server).
	ErrMaskRequired = errors.New("ws: frame from client is not masked")

	// ErrMaskUnexpected indicates a masked frame where the protocol role
	// forbids masking (server-to-client).
	ErrMaskUnexpected = errors.New("ws: frame from server is masked")

	// ErrUnexpectedContinuation indicates a continuation frame with no
	// fragmented message in progress.
	ErrUnexpectedContinuation = errors.New("ws: continuation frame without a message in progress")

	// ErrFragmentInProgress indicates a new text or binary frame while a
	// fragmented message is still being assembled.
	ErrFragmentInProgress = errors.New("ws: data frame while a fragmented message is in progress")

	// ErrInvalidUTF8 indicates a text payload, or a close reason, that is
	// not valid UTF-8 once fully assembled.
	ErrInvalidUTF8 = errors.New("ws: invalid UTF-8 in text payload")

	// ErrInvalidClosePayload indicates a close payload of exactly one byte,
	// too short to carry a status code.
	ErrInvalidClosePayload = errors.New("ws: close payload shorter than status code")

	// ErrConnectionClosed is reported once a close frame has been exchanged
	// or the connection is otherwise done.
	ErrConnectionClosed = errors.New("ws: connection closed")
)

// Server-side handshake failures.
var (
	// ErrInvalidMethod indicates an upgrade request with a method other than GET.
	ErrInvalidMethod = errors.New("ws: handshake method must be GET")

	// ErrMissingUpgrade indicates a missing or invalid Upgrade header.
	ErrMissingUpgrade = errors.New("ws: missing or invalid Upgrade header")

	// ErrMissingConnection indicates a missing or invalid Connection header.
	ErrMissingConnection = errors.New("ws: missing or invalid Connection header")

	// ErrMissingKey indicates a missing Sec-WebSocket-Key header.
	ErrMissingKey = errors.New("ws: missing Sec-WebSocket-Key header")

	// ErrUnsupportedVersion indicates a Sec-WebSocket-Version other than 13.
	ErrUnsupportedVersion = errors.New("ws: unsupported Sec-WebSocket-Version")

	// ErrOriginDenied indicates the configured origin check rejected the request.
	ErrOriginDenied = errors.New("ws: origin check failed")

	// ErrHijackFailed indicates the HTTP server connection cannot be hijacked.
	ErrHijackFailed = errors.New("ws: cannot hijack connection")
)

// StatusError reports a handshake response with a status other than
// 101 Switching Protocols. The observed status code is preserved so callers
// can distinguish, say, an auth failure from a plain HTTP endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ws: handshake rejected with status %d", e.Code)
}
