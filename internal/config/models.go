package config

import "time"

// Registry represents the entire user configuration file.
// It stores named WebSocket endpoints and application preferences.
type Registry struct {
	Version     int                  `yaml:"version"`
	Endpoints   map[string]*Endpoint `yaml:"endpoints,omitempty"` // Keyed by user-chosen name
	Preferences *Preferences         `yaml:"preferences,omitempty"`
}

// Endpoint is a saved WebSocket target. The name it is stored under acts as
// a shorthand for the URL on the command line.
type Endpoint struct {
	URL      string            `yaml:"url"`                 // ws://, wss://, http:// or https://
	Headers  map[string]string `yaml:"headers,omitempty"`   // Extra handshake headers (e.g. Authorization)
	LastUsed time.Time         `yaml:"last_used,omitempty"` // Last successful connection time
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	// PingInterval is the keepalive ping period in seconds for the
	// connect command. Zero disables keepalive pings.
	PingInterval int `yaml:"ping_interval"`

	// MaxFrameSize, when positive, fragments outbound data messages into
	// frames of at most this many payload bytes.
	MaxFrameSize int `yaml:"max_frame_size,omitempty"`
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:   1,
		Endpoints: make(map[string]*Endpoint),
		Preferences: &Preferences{
			PingInterval: 30,
		},
	}
}

// GetEndpoint retrieves a saved endpoint by name.
// Returns nil if the endpoint doesn't exist in the registry.
func (r *Registry) GetEndpoint(name string) *Endpoint {
	return r.Endpoints[name]
}

// SetEndpoint adds or replaces a saved endpoint.
func (r *Registry) SetEndpoint(name, url string, headers map[string]string) {
	if r.Endpoints == nil {
		r.Endpoints = make(map[string]*Endpoint)
	}
	r.Endpoints[name] = &Endpoint{
		URL:     url,
		Headers: headers,
	}
}

// RemoveEndpoint deletes a saved endpoint.
// Returns true if the endpoint existed.
func (r *Registry) RemoveEndpoint(name string) bool {
	if _, ok := r.Endpoints[name]; !ok {
		return false
	}
	delete(r.Endpoints, name)
	return true
}

// TouchEndpoint updates the last-used timestamp for an endpoint, if it exists.
func (r *Registry) TouchEndpoint(name string) {
	if ep, ok := r.Endpoints[name]; ok {
		ep.LastUsed = time.Now()
	}
}

// Resolve maps a command-line target to a URL and headers. A target that
// matches a saved endpoint name resolves to that endpoint; anything else is
// treated as a literal URL.
func (r *Registry) Resolve(target string) (url string, headers map[string]string) {
	if ep := r.GetEndpoint(target); ep != nil {
		return ep.URL, ep.Headers
	}
	return target, nil
}
