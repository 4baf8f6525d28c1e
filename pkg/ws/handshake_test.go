package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler upgrades the request and echoes data messages back until the
// client closes.
func echoHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch msg.Type {
			case TextMessage, BinaryMessage:
				if err := conn.WriteMessage(msg); err != nil {
					return
				}
			case CloseMessage:
				return
			}
		}
	}
}

// rawHandler hijacks the connection and writes an arbitrary handshake
// response, bypassing the usual validation on the server side.
func rawHandler(t *testing.T, respond func(key string) string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		hijacker, ok := w.(http.Hijacker)
		require.True(t, ok)
		netConn, bufrw, err := hijacker.Hijack()
		require.NoError(t, err)
		defer netConn.Close()

		_, err = bufrw.WriteString(respond(r.Header.Get("Sec-WebSocket-Key")))
		require.NoError(t, err)
		require.NoError(t, bufrw.Flush())
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialEcho(t *testing.T) {
	srv := httptest.NewServer(echoHandler(t))
	defer srv.Close()

	for _, rawURL := range []string{wsURL(srv), srv.URL} {
		t.Run(rawURL[:strings.Index(rawURL, ":")], func(t *testing.T) {
			conn, err := Dial(context.Background(), rawURL)
			require.NoError(t, err)
			defer conn.Close()

			require.NoError(t, conn.WriteText("hello"))
			msg, err := conn.ReadMessage()
			require.NoError(t, err)
			assert.Equal(t, TextMessage, msg.Type)
			assert.Equal(t, "hello", string(msg.Data))
		})
	}
}

func TestDialSendsHandshakeHeaders(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		conn, err := Upgrade(w, r, nil)
		if err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	d := &Dialer{Header: http.Header{"Authorization": {"Bearer token"}}}
	conn, err := d.DialContext(context.Background(), wsURL(srv))
	require.NoError(t, err)
	conn.Close()

	got := <-headers

	assert.Equal(t, "websocket", got.Get("Upgrade"))
	assert.Equal(t, "Upgrade", got.Get("Connection"))
	assert.Equal(t, "13", got.Get("Sec-WebSocket-Version"))
	assert.NotEmpty(t, got.Get("Sec-WebSocket-Key"))
	assert.Equal(t, "Bearer token", got.Get("Authorization"))
}

func TestDialUnsupportedScheme(t *testing.T) {
	_, err := Dial(context.Background(), "ftp://example.com/socket")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestDialNon101Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), wsURL(srv))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusOK, statusErr.Code)
	assert.Contains(t, statusErr.Error(), "200")
}

func TestDialMissingAcceptHeader(t *testing.T) {
	srv := httptest.NewServer(rawHandler(t, func(string) string {
		return "HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\n" +
			"Connection: Upgrade\r\n\r\n"
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), wsURL(srv))
	assert.ErrorIs(t, err, ErrMissingAcceptHeader)
}

func TestDialWrongAcceptHeader(t *testing.T) {
	srv := httptest.NewServer(rawHandler(t, func(string) string {
		return "HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\n" +
			"Connection: Upgrade\r\n" +
			"Sec-WebSocket-Accept: bm90IHRoZSByaWdodCBkaWdlc3Q=\r\n\r\n"
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), wsURL(srv))
	assert.ErrorIs(t, err, ErrWrongAcceptHeader)
}

func TestDialUpgradeNotHonored(t *testing.T) {
	// Correct status and accept digest, but without the Upgrade and
	// Connection headers the transport does not switch protocols and no
	// raw stream is handed over.
	srv := httptest.NewServer(rawHandler(t, func(key string) string {
		return "HTTP/1.1 101 Switching Protocols\r\n" +
			"Sec-WebSocket-Accept: " + acceptKey(key) + "\r\n\r\n"
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), wsURL(srv))
	assert.ErrorIs(t, err, ErrUpgradeFailed)
}

func TestDialTransportError(t *testing.T) {
	// Nothing is listening here.
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/socket")
	require.Error(t, err)

	// Transport failures stay untyped - none of the handshake sentinels
	// apply before a response exists.
	assert.NotErrorIs(t, err, ErrMissingAcceptHeader)
	assert.NotErrorIs(t, err, ErrWrongAcceptHeader)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestDialContextCancellation(t *testing.T) {
	srv := httptest.NewServer(echoHandler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dial(ctx, wsURL(srv))
	assert.ErrorIs(t, err, context.Canceled)
}

func upgradeRequest() *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/socket", nil)
	r.Header.Set("Upgrade", "websocket")
	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Sec-WebSocket-Version", "13")
	r.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return r
}

func TestUpgradeValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *http.Request)
		opts    *UpgradeOptions
		wantErr error
	}{
		{
			name:    "method not GET",
			mutate:  func(r *http.Request) { r.Method = http.MethodPost },
			wantErr: ErrInvalidMethod,
		},
		{
			name:    "missing Upgrade header",
			mutate:  func(r *http.Request) { r.Header.Del("Upgrade") },
			wantErr: ErrMissingUpgrade,
		},
		{
			name:    "missing Connection header",
			mutate:  func(r *http.Request) { r.Header.Del("Connection") },
			wantErr: ErrMissingConnection,
		},
		{
			name:    "wrong version",
			mutate:  func(r *http.Request) { r.Header.Set("Sec-WebSocket-Version", "8") },
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "missing key",
			mutate:  func(r *http.Request) { r.Header.Del("Sec-WebSocket-Key") },
			wantErr: ErrMissingKey,
		},
		{
			name:   "origin rejected",
			mutate: func(r *http.Request) { r.Header.Set("Origin", "https://evil.example") },
			opts: &UpgradeOptions{
				CheckOrigin: func(*http.Request) bool { return false },
			},
			wantErr: ErrOriginDenied,
		},
		{
			name:    "response writer cannot hijack",
			mutate:  func(*http.Request) {},
			wantErr: ErrHijackFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := upgradeRequest()
			tt.mutate(r)

			// httptest.ResponseRecorder does not implement
			// http.Hijacker, which is exactly what the last case
			// needs; the earlier validations fail before hijacking.
			_, err := Upgrade(httptest.NewRecorder(), r, tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHeaderHasToken(t *testing.T) {
	assert.True(t, headerHasToken("Upgrade", "upgrade"))
	assert.True(t, headerHasToken("keep-alive, Upgrade", "upgrade"))
	assert.True(t, headerHasToken("WEBSOCKET", "websocket"))
	assert.False(t, headerHasToken("keep-alive", "upgrade"))
	assert.False(t, headerHasToken("", "upgrade"))
}
