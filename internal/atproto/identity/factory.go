// Package identity resolves atProto handles and DIDs, fronting the indigo
// directory with an in-process cache.
package identity

import (
	"net/http"
	"time"
)

// Config holds configuration for the identity resolver
type Config struct {
	HTTPClient *http.Client
	PLCURL     string
	UserAgent  string
	CacheTTL   time.Duration
	CacheSize  int
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		PLCURL:     "https://plc.directory",
		UserAgent:  "Skythread/1.0",
		CacheTTL:   24 * time.Hour,
		CacheSize:  4096,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewResolver creates a caching identity resolver
func NewResolver(config Config) Resolver {
	defaults := DefaultConfig()
	if config.PLCURL == "" {
		config.PLCURL = defaults.PLCURL
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.CacheSize <= 0 {
		config.CacheSize = defaults.CacheSize
	}
	if config.HTTPClient == nil {
		config.HTTPClient = defaults.HTTPClient
	}

	base := newBaseResolver(config.PLCURL, config.UserAgent, config.HTTPClient)
	return newCachingResolver(base, NewMemoryCache(config.CacheSize, config.CacheTTL))
}
