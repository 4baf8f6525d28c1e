package ws

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"
)

// Dialer negotiates client WebSocket connections. The HTTP client it uses is
// an explicit collaborator owned by the caller - there is no hidden
// process-wide client. The zero value is ready to use.
type Dialer struct {
	// HTTPClient issues the handshake request and relinquishes the
	// underlying connection on a 101 response. It must speak HTTP/1.1:
	// the upgrade mechanism is not defined over HTTP/2. Nil means a
	// private HTTP/1.1-only client owned by this Dialer.
	HTTPClient *http.Client

	// Header lists extra request headers sent with the handshake, e.g.
	// authorization or cookies. The protocol-mandated headers cannot be
	// overridden.
	Header http.Header

	// MaxFrameSize, when positive, splits outbound data messages into
	// fragments of at most this many payload bytes. Zero disables
	// outbound fragmentation.
	MaxFrameSize int

	// Logger receives debug logging for the handshake and the resulting
	// connection. Nil disables logging.
	Logger *zap.Logger

	fallbackOnce sync.Once
	fallback     *http.Client
}

// DefaultDialer is the Dialer used by the package-level Dial.
var DefaultDialer = &Dialer{}

// Dial is shorthand for DefaultDialer.DialContext.
func Dial(ctx context.Context, rawURL string) (*Conn, error) {
	return DefaultDialer.DialContext(ctx, rawURL)
}

// DialContext performs the opening handshake against rawURL and returns the
// upgraded connection. Accepted schemes are ws, wss, http and https; ws and
// wss are rewritten to their HTTP equivalents for the handshake request,
// host, path and query are preserved.
//
// Failures are typed: ErrUnsupportedScheme, a wrapped transport error, a
// *StatusError for any status other than 101, ErrMissingAcceptHeader,
// ErrWrongAcceptHeader, or ErrUpgradeFailed. None of them are retried here.
func (d *Dialer) DialContext(ctx context.Context, rawURL string) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ws: parse URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		// Already an HTTP scheme, use as-is.
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	key, err := generateKey()
	if err != nil {
		return nil, fmt.Errorf("ws: %w", err)
	}
	expected := acceptKey(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("ws: build handshake request: %w", err)
	}
	for name, values := range d.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", key)

	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("starting handshake", zap.String("url", u.String()))

	resp, err := d.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("ws: handshake request: %w", err)
	}

	if resp.StatusCode != http.StatusSwitchingProtocols {
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode}
	}

	accept := resp.Header.Get("Sec-WebSocket-Accept")
	if accept == "" {
		_ = resp.Body.Close()
		return nil, ErrMissingAcceptHeader
	}
	// Exact-byte comparison, no normalization.
	if accept != expected {
		_ = resp.Body.Close()
		return nil, ErrWrongAcceptHeader
	}

	// Connection takeover: on a 101 response the net/http transport hands
	// the raw connection to us through the response body.
	rwc, ok := resp.Body.(io.ReadWriteCloser)
	if !ok {
		_ = resp.Body.Close()
		return nil, ErrUpgradeFailed
	}

	logger.Debug("handshake complete", zap.String("url", u.String()))
	return newConn(rwc, nil, true, d.MaxFrameSize, d.Logger), nil
}

// httpClient returns the configured client, or lazily builds the Dialer's
// own fallback.
func (d *Dialer) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	d.fallbackOnce.Do(func() {
		d.fallback = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				// HTTP/1.1 only: a non-nil empty TLSNextProto
				// keeps the transport from negotiating HTTP/2,
				// which has no Upgrade mechanism.
				TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
			},
		}
	})
	return d.fallback
}
