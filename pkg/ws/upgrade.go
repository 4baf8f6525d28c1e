package ws

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// UpgradeOptions configures the server half of the opening handshake.
// All fields are optional.
type UpgradeOptions struct {
	// CheckOrigin can reject cross-origin requests. Nil allows every
	// origin.
	CheckOrigin func(*http.Request) bool

	// MaxFrameSize mirrors Dialer.MaxFrameSize for outbound messages.
	MaxFrameSize int

	// Logger receives debug logging for the connection. Nil disables it.
	Logger *zap.Logger
}

// Upgrade validates a client's opening handshake, answers with
// 101 Switching Protocols and takes over the HTTP connection. The returned
// Conn is in the server role: it sends unmasked frames and requires masked
// ones from the peer.
func Upgrade(w http.ResponseWriter, r *http.Request, opts *UpgradeOptions) (*Conn, error) {
	if opts == nil {
		opts = &UpgradeOptions{}
	}

	if r.Method != http.MethodGet {
		return nil, ErrInvalidMethod
	}
	if !headerHasToken(r.Header.Get("Upgrade"), "websocket") {
		return nil, ErrMissingUpgrade
	}
	if !headerHasToken(r.Header.Get("Connection"), "upgrade") {
		return nil, ErrMissingConnection
	}
	if v := r.Header.Get("Sec-WebSocket-Version"); v != "13" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, v)
	}
	key := r.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return nil, ErrMissingKey
	}
	if opts.CheckOrigin != nil && !opts.CheckOrigin(r) {
		return nil, ErrOriginDenied
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		return nil, ErrHijackFailed
	}
	netConn, bufrw, err := hijacker.Hijack()
	if err != nil {
		return nil, fmt.Errorf("ws: hijack: %w", err)
	}

	// The response goes out by hand: after Hijack the http package no
	// longer touches the connection.
	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + acceptKey(key) + "\r\n\r\n"
	if _, err := bufrw.WriteString(response); err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("ws: write handshake response: %w", err)
	}
	if err := bufrw.Flush(); err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("ws: flush handshake response: %w", err)
	}

	// Reuse the hijacked reader: it may already hold bytes the client
	// sent right behind its handshake.
	return newConn(netConn, bufrw.Reader, false, opts.MaxFrameSize, opts.Logger), nil
}

// headerHasToken reports whether a comma-separated header value contains the
// token, case-insensitively (HTTP convention for these headers).
func headerHasToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
