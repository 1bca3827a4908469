// Package images decodes the images pages embed: data URIs from pasted and
// inserted pictures, local files referenced by path and, when a fetcher is
// configured, http(s) sources.
package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrRemote is returned for http(s) sources when the cache has no fetcher.
var ErrRemote = errors.New("remote image sources are not loaded")

// Cache caches decoded images by source.
type Cache struct {
	cache   map[string]image.Image
	mu      sync.RWMutex
	fetcher Fetcher
}

type CacheOption func(*Cache)

// WithFetcher lets the cache load http(s) sources through f.
func WithFetcher(f Fetcher) CacheOption {
	return func(c *Cache) { c.fetcher = f }
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{cache: make(map[string]image.Image)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCache = NewCache()

// LoadImage decodes src through the package cache.
func LoadImage(src string) (image.Image, error) {
	return defaultCache.Load(src)
}

// IsDataURI reports whether src is an inline data: URI.
func IsDataURI(src string) bool {
	return strings.HasPrefix(src, "data:")
}

// LoadImageFromDataURI decodes a data URI without caching.
func LoadImageFromDataURI(uri string) (image.Image, error) {
	data, err := DecodeDataURI(uri)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// Load decodes a data URI or a file path. Results are cached by src.
func (c *Cache) Load(src string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.cache[src]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	data, err := c.readSource(src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	c.mu.Lock()
	c.cache[src] = img
	c.mu.Unlock()
	return img, nil
}

func (c *Cache) readSource(src string) ([]byte, error) {
	switch {
	case IsDataURI(src):
		return DecodeDataURI(src)
	case IsNetworkURL(src):
		if c.fetcher == nil {
			return nil, ErrRemote
		}
		ctx, cancel := context.WithTimeout(context.Background(), FetchTimeout)
		defer cancel()
		data, ctype, err := c.fetcher.Fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		if ctype != "" && !strings.HasPrefix(strings.ToLower(ctype), "image/") {
			return nil, fmt.Errorf("unexpected content type for image %s: %s", src, ctype)
		}
		return data, nil
	case strings.HasPrefix(src, "file://"):
		src = strings.TrimPrefix(src, "file://")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return data, nil
}

// DecodeDataURI returns the payload of a data: URI.
func DecodeDataURI(uri string) ([]byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders drop padding.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("decoding data URI: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding data URI: %w", err)
	}
	return []byte(s), nil
}

// EncodeDataURI wraps raw image bytes as a base64 data URI.
func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// GetImageDimensions returns the pixel size of the image at src.
func GetImageDimensions(src string) (width, height int, err error) {
	img, err := LoadImage(src)
	if err != nil {
		return 0, 0, err
	}
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}
