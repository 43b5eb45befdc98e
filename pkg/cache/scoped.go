package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// Different users share a cache backend but must never see each other's
// entries, so every key carries the owning user's namespace.
//
// Example usage:
//
//	userKeyer := NewScopedKeyer(NewDefaultKeyer(), "user:abc123:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// RenderKey generates a prefixed key for rendered output.
func (k *ScopedKeyer) RenderKey(kind, payloadHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(kind, payloadHash, opts)
}

// FetchKey generates a prefixed key for fetched remote bytes.
func (k *ScopedKeyer) FetchKey(url string) string {
	return k.prefix + k.inner.FetchKey(url)
}
