package ws

import (
	"crypto/rand"
	"crypto/sha1" // #nosec G505 -- SHA-1 is mandated by RFC 6455 Section 1.3, not used for security
	"encoding/base64"
	"fmt"
)

// keyGUID is the fixed GUID from RFC 6455 Section 1.3, appended to the client
// key when deriving the Sec-WebSocket-Accept value.
const keyGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// generateKey produces a new Sec-WebSocket-Key value: 16 random bytes,
// base64-encoded. The key only needs to avoid collisions between connection
// attempts; it carries no security value.
func generateKey() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate handshake key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// acceptKey computes the Sec-WebSocket-Accept value for a client key:
// base64(SHA-1(key + GUID)). Deterministic, so both peers arrive at the
// same value independently.
func acceptKey(key string) string {
	sum := sha1.Sum([]byte(key + keyGUID)) // #nosec G401 -- see above
	return base64.StdEncoding.EncodeToString(sum[:])
}
