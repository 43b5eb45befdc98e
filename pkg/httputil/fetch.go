package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gunho/artifact/pkg/cache"
)

// DefaultMaxFetchBytes caps how much a single asset fetch may read.
// Remote URLs come from user payloads, so responses are never trusted to
// be reasonably sized.
const DefaultMaxFetchBytes = 10 << 20 // 10 MiB

// Fetcher downloads remote assets with retry and a response size cap.
type Fetcher struct {
	client   *http.Client
	maxBytes int64

	cache    cache.Cache
	keyer    cache.Keyer
	cacheTTL time.Duration
}

// NewFetcher creates a Fetcher. A nil client uses a 10 second timeout;
// maxBytes <= 0 uses DefaultMaxFetchBytes.
func NewFetcher(client *http.Client, maxBytes int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFetchBytes
	}
	return &Fetcher{client: client, maxBytes: maxBytes}
}

// WithCache memoizes successful downloads so repeated asset URLs are not
// re-fetched within ttl. A nil keyer uses the default.
func (f *Fetcher) WithCache(c cache.Cache, keyer cache.Keyer, ttl time.Duration) *Fetcher {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	f.cache = c
	f.keyer = keyer
	f.cacheTTL = ttl
	return f
}

// fetchedAsset is the cached form of a download.
type fetchedAsset struct {
	Data        []byte `json:"data"`
	ContentType string `json:"contentType"`
}

// Fetch downloads url and returns the body bytes and Content-Type.
// Network errors, 5xx, and 429 responses are retried with backoff; other
// non-2xx statuses fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	var key string
	if f.cache != nil {
		key = f.keyer.FetchKey(url)
		if data, hit, err := f.cache.Get(ctx, key); err == nil && hit {
			var a fetchedAsset
			if err := json.Unmarshal(data, &a); err == nil {
				return a.Data, a.ContentType, nil
			}
			_ = f.cache.Delete(ctx, key)
		}
	}

	var body []byte
	var contentType string

	err := RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return &RetryableError{Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return &RetryableError{Err: fmt.Errorf("GET %s: status %d", url, resp.StatusCode)}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
		if err != nil {
			return &RetryableError{Err: err}
		}
		if int64(len(data)) > f.maxBytes {
			return fmt.Errorf("GET %s: response exceeds %d bytes", url, f.maxBytes)
		}

		body = data
		contentType = resp.Header.Get("Content-Type")
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	if f.cache != nil {
		if data, err := json.Marshal(fetchedAsset{Data: body, ContentType: contentType}); err == nil {
			_ = f.cache.Set(ctx, key, data, f.cacheTTL)
		}
	}
	return body, contentType, nil
}
