// Package cache provides pluggable byte caching for rendered artifacts.
package cache

import (
	"context"
	"time"
)

// Cache is the interface all cache backends implement.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with an optional TTL. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys for the render pipeline.
type Keyer interface {
	// RenderKey generates a key for a rendered fragment: the artifact kind
	// plus the request payload hash and any knobs that change the output.
	RenderKey(kind, payloadHash string, opts RenderKeyOpts) string

	// FetchKey generates a key for fetched remote bytes (deck images).
	FetchKey(url string) string
}

// RenderKeyOpts are the options that affect render output and therefore
// must be part of the cache key.
type RenderKeyOpts struct {
	Theme  string
	Layout string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// RenderKey generates a key for rendered output.
func (k *DefaultKeyer) RenderKey(kind, payloadHash string, opts RenderKeyOpts) string {
	return hashKey("render:"+kind, payloadHash, opts.Theme, opts.Layout)
}

// FetchKey generates a key for fetched remote bytes.
func (k *DefaultKeyer) FetchKey(url string) string {
	return hashKey("fetch", url)
}
