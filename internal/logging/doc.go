// Package logging provides structured logging for the wsline tool.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used by the CLI and its embedded echo server. It provides both
// general logging functions and specialized functions for WebSocket-specific
// logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: detailed debugging info (hex dumps, frame traffic, ping/pong)
//   - Info: normal operations (handshakes, connections, messages)
//   - Warn: non-fatal issues (write failures, dropped connections)
//   - Error: fatal issues (startup failures)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Connected",
//	    zap.String("url", "wss://example.com/feed"),
//	    zap.Duration("handshake", elapsed),
//	)
//
// # Specialized Logging
//
// Connection logging:
//
//	logging.LogConnection(target, "handshake_started")
//	logging.LogConnection(target, "websocket_upgraded")
//	logging.LogConnection(target, "websocket_closed")
//
// Message logging:
//
//	logging.LogMessage(target, "received", msg.Type.String(), msg.Data)
//	logging.LogMessage(target, "sent", msg.Type.String(), msg.Data)
//
// # Configuration
//
// Logging is silent by default so that CLI output stays clean. Set the
// WSLINE_LOG_LEVEL environment variable, or call Initialize with an explicit
// level:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
