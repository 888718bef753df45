package llm

import (
	"strings"
	"sync"
)

// Endpoint holds the inference server base URL shared by all sessions.
// Requests read it once at dispatch, so a change never affects one in flight.
type Endpoint struct {
	mu  sync.RWMutex
	url string
}

// NewEndpoint creates an endpoint for baseURL
func NewEndpoint(baseURL string) *Endpoint {
	return &Endpoint{url: normalize(baseURL)}
}

// URL returns the current base URL
func (e *Endpoint) URL() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.url
}

// Set replaces the base URL and reports whether it changed
func (e *Endpoint) Set(baseURL string) bool {
	baseURL = normalize(baseURL)
	e.mu.Lock()
	defer e.mu.Unlock()
	if baseURL == e.url {
		return false
	}
	e.url = baseURL
	return true
}

func normalize(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}
