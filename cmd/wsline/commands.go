package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/wsline/internal/config"
	"github.com/muurk/wsline/internal/logging"
	"github.com/muurk/wsline/pkg/ws"
)

// Command flags
var (
	extraHeaders []string
	binaryMode   bool
	maxFrameSize int
	pingInterval int
	dialTimeout  int
	serveAddr    string
)

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(endpointCmd)

	for _, cmd := range []*cobra.Command{connectCmd, pingCmd} {
		cmd.Flags().StringArrayVarP(&extraHeaders, "header", "H", nil, "Extra handshake header (Name: Value), repeatable")
		cmd.Flags().IntVar(&dialTimeout, "timeout", 15, "Handshake timeout in seconds")
	}
	connectCmd.Flags().BoolVar(&binaryMode, "binary", false, "Send stdin lines as binary messages")
	connectCmd.Flags().IntVar(&maxFrameSize, "max-frame", 0, "Fragment outbound messages at this payload size (0 = no fragmentation)")
	connectCmd.Flags().IntVar(&pingInterval, "ping-interval", 0, "Keepalive ping period in seconds (0 = use config default)")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address for the echo server")
}

// resolveTarget maps a CLI target (endpoint name or literal URL) to a URL and
// the merged handshake headers from the registry and --header flags.
func resolveTarget(target string) (string, http.Header, *config.Registry, error) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return "", nil, nil, fmt.Errorf("load config: %w", err)
	}

	url, saved := registry.Resolve(target)

	header := http.Header{}
	for name, value := range saved {
		header.Set(name, value)
	}
	for _, h := range extraHeaders {
		name, value, found := strings.Cut(h, ":")
		if !found {
			return "", nil, nil, fmt.Errorf("invalid header %q (expected \"Name: Value\")", h)
		}
		header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	return url, header, registry, nil
}

// connectCmd opens an interactive connection
var connectCmd = &cobra.Command{
	Use:   "connect <url-or-endpoint>",
	Short: "Connect to a WebSocket server and exchange messages",
	Long: `Connect to a WebSocket server.

Inbound text messages are printed to stdout; lines read from stdin are sent
as text (or binary with --binary). Closing stdin (Ctrl-D) performs a clean
close handshake. The target may be a ws://, wss://, http:// or https:// URL,
or the name of a saved endpoint.`,
	Example: `  # Connect to a public echo server
  wsline connect wss://echo.example.com

  # Connect to a saved endpoint with an extra header
  wsline connect feed -H "Authorization: Bearer $TOKEN"

  # Fragment large outbound messages into 4 KiB frames
  wsline connect ws://localhost:8080/ws --max-frame 4096`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	url, header, registry, err := resolveTarget(args[0])
	if err != nil {
		return err
	}

	if maxFrameSize == 0 && registry.Preferences != nil {
		maxFrameSize = registry.Preferences.MaxFrameSize
	}
	if pingInterval == 0 && registry.Preferences != nil {
		pingInterval = registry.Preferences.PingInterval
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dial(ctx, url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Fprintf(os.Stderr, "Connected to %s (Ctrl-D to close, Ctrl-C to abort)\n", url)
	registry.TouchEndpoint(args[0])
	_ = registry.Save()

	g, gctx := errgroup.WithContext(ctx)

	// Unblock the reader when interrupted.
	go func() {
		<-gctx.Done()
		_ = conn.Close()
	}()

	// Reader: print every inbound message.
	g.Go(func() error {
		for {
			msg, err := conn.ReadMessage()
			if err != nil {
				if errors.Is(err, ws.ErrConnectionClosed) || gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("read: %w", err)
			}
			logging.LogMessage(url, "received", msg.Type.String(), msg.Data)

			switch msg.Type {
			case ws.TextMessage:
				fmt.Println(string(msg.Data))
			case ws.BinaryMessage:
				fmt.Fprintf(os.Stderr, "[binary message, %d bytes]\n", len(msg.Data))
			case ws.CloseMessage:
				code, reason, _ := ws.ParseClose(msg.Data)
				fmt.Fprintf(os.Stderr, "Closed by peer: %d %s\n", code, reason)
				return nil
			}
		}
	})

	// Keepalive pings.
	g.Go(func() error {
		if pingInterval <= 0 {
			<-gctx.Done()
			return nil
		}
		ticker := time.NewTicker(time.Duration(pingInterval) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := conn.WritePing(nil); err != nil {
					if errors.Is(err, ws.ErrConnectionClosed) {
						return nil
					}
					return fmt.Errorf("ping: %w", err)
				}
			}
		}
	})

	// Writer: forward stdin lines. Runs outside the group so a server-side
	// close doesn't leave us waiting on a blocked stdin read.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			kind := ws.TextMessage
			if binaryMode {
				kind = ws.BinaryMessage
			}
			if err := conn.WriteMessage(ws.Message{Type: kind, Data: line}); err != nil {
				return
			}
			logging.LogMessage(url, "sent", kind.String(), line)
		}
		// stdin closed: start the closing handshake
		_ = conn.WriteClose(ws.CloseNormalClosure, "")
	}()

	return g.Wait()
}

// pingCmd measures a ping round-trip
var pingCmd = &cobra.Command{
	Use:   "ping <url-or-endpoint>",
	Short: "Measure a WebSocket ping round-trip",
	Args:  cobra.ExactArgs(1),
	RunE:  runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	url, header, _, err := resolveTarget(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dial(ctx, url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	payload := []byte("wsline")
	start := time.Now()
	if err := conn.WritePing(payload); err != nil {
		return fmt.Errorf("send ping: %w", err)
	}

	type result struct {
		rtt time.Duration
		err error
	}
	done := make(chan result, 1)
	go func() {
		for {
			msg, err := conn.ReadMessage()
			if err != nil {
				done <- result{err: err}
				return
			}
			if msg.Type == ws.PongMessage {
				done <- result{rtt: time.Since(start)}
				return
			}
		}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("waiting for pong: %w", res.err)
		}
		fmt.Printf("Pong from %s: rtt=%s\n", url, res.rtt.Round(time.Microsecond))
		return nil
	case <-time.After(time.Duration(dialTimeout) * time.Second):
		return fmt.Errorf("no pong from %s within %ds", url, dialTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dial performs the handshake with a timeout and consistent logging.
func dial(ctx context.Context, url string, header http.Header) (*ws.Conn, error) {
	dialer := &ws.Dialer{
		Header:       header,
		MaxFrameSize: maxFrameSize,
		Logger:       logging.GetLogger(),
	}

	dialCtx, cancel := context.WithTimeout(ctx, time.Duration(dialTimeout)*time.Second)
	defer cancel()

	logging.LogConnection(url, "handshake_started")
	conn, err := dialer.DialContext(dialCtx, url)
	if err != nil {
		logging.LogHandshake(url, false, err.Error())
		return nil, fmt.Errorf("connect to %s: %w", url, err)
	}
	logging.LogHandshake(url, true, "")
	return conn, nil
}

// serveCmd runs a local echo server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local WebSocket echo server",
	Long: `Run a WebSocket echo server for testing clients.

Every text and binary message is echoed back unchanged. Pings are answered
automatically. The server speaks plain HTTP; put it behind a TLS proxy if
wss:// is needed.`,
	Example: `  # Listen on the default address
  wsline serve

  # Listen on all interfaces
  wsline serve --addr :9000`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", handleEcho)

	fmt.Printf("Echo server listening on ws://%s/\n", serveAddr)
	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Upgrade(w, r, &ws.UpgradeOptions{Logger: logging.GetLogger()})
	if err != nil {
		logging.Warn("Upgrade rejected",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer conn.Close()

	logging.LogConnection(r.RemoteAddr, "websocket_upgraded")

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			logging.LogConnection(r.RemoteAddr, "websocket_closed")
			return
		}
		logging.LogMessage(r.RemoteAddr, "received", msg.Type.String(), msg.Data)

		switch msg.Type {
		case ws.TextMessage, ws.BinaryMessage:
			if err := conn.WriteMessage(msg); err != nil {
				logging.Warn("Echo failed",
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				return
			}
		case ws.CloseMessage:
			return
		}
	}
}

// endpointCmd manages saved endpoints
var endpointCmd = &cobra.Command{
	Use:   "endpoint",
	Short: "Manage saved endpoints",
	Long: `Manage named WebSocket endpoints.

Saved endpoints pair a URL with extra handshake headers, and can be used in
place of a URL with the connect and ping commands.`,
}

func init() {
	endpointAddCmd.Flags().StringArrayVarP(&extraHeaders, "header", "H", nil, "Handshake header to store (Name: Value), repeatable")

	endpointCmd.AddCommand(endpointListCmd)
	endpointCmd.AddCommand(endpointAddCmd)
	endpointCmd.AddCommand(endpointRemoveCmd)
}

var endpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if len(registry.Endpoints) == 0 {
			fmt.Println("No saved endpoints. Use 'wsline endpoint add <name> <url>' to add one.")
			return nil
		}

		names := make([]string, 0, len(registry.Endpoints))
		for name := range registry.Endpoints {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ep := registry.Endpoints[name]
			fmt.Printf("%-20s %s", name, ep.URL)
			if len(ep.Headers) > 0 {
				fmt.Printf("  (%d header(s))", len(ep.Headers))
			}
			if !ep.LastUsed.IsZero() {
				fmt.Printf("  last used %s", ep.LastUsed.Format("2006-01-02 15:04"))
			}
			fmt.Println()
		}
		return nil
	},
}

var endpointAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Save an endpoint under a name",
	Example: `  wsline endpoint add feed wss://example.com/feed
  wsline endpoint add api ws://localhost:8080/ws -H "Authorization: Bearer abc"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		var headers map[string]string
		if len(extraHeaders) > 0 {
			headers = make(map[string]string, len(extraHeaders))
			for _, h := range extraHeaders {
				name, value, found := strings.Cut(h, ":")
				if !found {
					return fmt.Errorf("invalid header %q (expected \"Name: Value\")", h)
				}
				headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
			}
		}

		registry.SetEndpoint(args[0], args[1], headers)
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("Saved endpoint %q -> %s\n", args[0], args[1])
		return nil
	},
}

var endpointRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a saved endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if !registry.RemoveEndpoint(args[0]) {
			return fmt.Errorf("no endpoint named %q", args[0])
		}
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("Removed endpoint %q\n", args[0])
		return nil
	},
}
