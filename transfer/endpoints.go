package transfer

import (
	"fmt"
	"strings"
)

// Endpoint describes where a batch's requests go for one upload context.
type Endpoint struct {
	Name      string
	UploadURL string
	ScanURL   string
}

// Registry is a closed table mapping upload-context strings to endpoints,
// validated once at startup. Unrecognized contexts fall back to the default
// entry instead of failing at call time.
type Registry struct {
	entries    map[string]Endpoint
	defaultKey string
}

// NewRegistry validates every entry and requires defaultKey to be present.
func NewRegistry(defaultKey string, entries map[string]Endpoint) (*Registry, error) {
	if _, ok := entries[defaultKey]; !ok {
		return nil, fmt.Errorf("endpoint registry missing default entry %q", defaultKey)
	}
	for key, ep := range entries {
		if ep.UploadURL == "" {
			return nil, fmt.Errorf("endpoint %q has no upload URL", key)
		}
	}
	return &Registry{entries: entries, defaultKey: defaultKey}, nil
}

// DefaultRegistry builds the standard context table for a single server.
func DefaultRegistry(baseURL string) (*Registry, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	api := baseURL + "/api/filegate/v1"
	entry := func(name string) Endpoint {
		return Endpoint{Name: name, UploadURL: api + "/upload", ScanURL: api + "/scan"}
	}
	return NewRegistry("default", map[string]Endpoint{
		"default":    entry("default"),
		"attachment": entry("attachment"),
		"media":      entry("media"),
	})
}

// Resolve returns the endpoint for the parsed upload context, falling back
// to the default entry when the context is unrecognized.
func (r *Registry) Resolve(context string) Endpoint {
	if ep, ok := r.entries[strings.TrimSpace(context)]; ok {
		return ep
	}
	return r.entries[r.defaultKey]
}
