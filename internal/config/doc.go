// Package config provides user configuration management for the wsline tool.
//
// This package manages a YAML-based configuration file that stores named
// WebSocket endpoints (URL plus extra handshake headers) and application
// preferences. The configuration follows OS-specific conventions for storage
// location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/wsline/config.yaml or $HOME/.config/wsline/config.yaml
//   - macOS: $HOME/.config/wsline/config.yaml
//   - Windows: %LOCALAPPDATA%\wsline\config.yaml
//
// # Usage Example
//
//	// Load the global registry
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Save an endpoint under a short name
//	registry.SetEndpoint("feed", "wss://example.com/feed", map[string]string{
//	    "Authorization": "Bearer ...",
//	})
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Later: resolve a command-line target
//	url, headers := registry.Resolve("feed")
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across
// goroutines. File operations are protected by a mutex to ensure atomic
// writes.
package config
